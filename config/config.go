// Package config loads the recognizer configuration from a YAML file.
package config

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ieee0824/cuedspeech-go/decoder"
)

// Config is the on-disk recognizer configuration.
type Config struct {
	Decoder struct {
		TokensPath    string  `yaml:"tokens_path"`
		LexiconPath   string  `yaml:"lexicon_path"`
		LMPath        string  `yaml:"lm_path"`
		NBest         int     `yaml:"nbest"`
		BeamSize      int     `yaml:"beam_size"`
		BeamSizeToken int     `yaml:"beam_size_token"`
		BeamThreshold float64 `yaml:"beam_threshold"`
		LMWeight      float64 `yaml:"lm_weight"`
		WordScore     float64 `yaml:"word_score"`
		UnkScore      float64 `yaml:"unk_score"`
		SilScore      float64 `yaml:"sil_score"`
		LogAdd        bool    `yaml:"log_add"`
		BlankToken    string  `yaml:"blank_token"`
		SilToken      string  `yaml:"sil_token"`
		UnkWord       string  `yaml:"unk_word"`
	} `yaml:"decoder"`

	Model struct {
		Path string `yaml:"path"`
	} `yaml:"model"`

	Corrector struct {
		HomophonesPath string `yaml:"homophones_path"`
		LMPath         string `yaml:"lm_path"`
		BeamWidth      int    `yaml:"beam_width"`
	} `yaml:"corrector"`
}

// DefaultConfig returns a configuration mirroring the decoder defaults.
func DefaultConfig() *Config {
	cfg := &Config{}
	d := decoder.DefaultConfig()
	cfg.Decoder.NBest = d.NBest
	cfg.Decoder.BeamSize = d.BeamSize
	cfg.Decoder.BeamSizeToken = d.BeamSizeToken
	cfg.Decoder.BeamThreshold = d.BeamThreshold
	cfg.Decoder.LMWeight = d.LMWeight
	cfg.Decoder.WordScore = d.WordScore
	cfg.Decoder.UnkScore = d.UnkScore
	cfg.Decoder.SilScore = d.SilScore
	cfg.Decoder.LogAdd = d.LogAdd
	cfg.Decoder.BlankToken = d.BlankToken
	cfg.Decoder.SilToken = d.SilToken
	cfg.Decoder.UnkWord = d.UnkWord
	cfg.Corrector.BeamWidth = 20
	return cfg
}

// Load reads a YAML config file over the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// DecoderConfig maps the file onto beam search parameters. A zero
// unk_score in the file keeps the -inf default (YAML can also state
// -.inf explicitly).
func (c *Config) DecoderConfig() decoder.Config {
	d := decoder.DefaultConfig()
	d.NBest = c.Decoder.NBest
	d.BeamSize = c.Decoder.BeamSize
	d.BeamSizeToken = c.Decoder.BeamSizeToken
	d.BeamThreshold = c.Decoder.BeamThreshold
	d.LMWeight = c.Decoder.LMWeight
	d.WordScore = c.Decoder.WordScore
	if c.Decoder.UnkScore != 0 {
		d.UnkScore = c.Decoder.UnkScore
	} else {
		d.UnkScore = math.Inf(-1)
	}
	d.SilScore = c.Decoder.SilScore
	d.LogAdd = c.Decoder.LogAdd
	if c.Decoder.BlankToken != "" {
		d.BlankToken = c.Decoder.BlankToken
	}
	if c.Decoder.SilToken != "" {
		d.SilToken = c.Decoder.SilToken
	}
	if c.Decoder.UnkWord != "" {
		d.UnkWord = c.Decoder.UnkWord
	}
	return d
}
