package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	d := cfg.DecoderConfig()
	if d.BeamSize != 40 || d.BeamSizeToken != -1 || d.NBest != 1 {
		t.Errorf("beam defaults = %+v", d)
	}
	if d.BeamThreshold != 50.0 || d.LMWeight != 3.23 {
		t.Errorf("score defaults = %+v", d)
	}
	if !math.IsInf(d.UnkScore, -1) {
		t.Errorf("unk score = %v, want -inf", d.UnkScore)
	}
	if d.BlankToken != "<BLANK>" || d.SilToken != "_" || d.UnkWord != "<UNK>" {
		t.Errorf("symbols = %q/%q/%q", d.BlankToken, d.SilToken, d.UnkWord)
	}
}

func TestLoad(t *testing.T) {
	content := `decoder:
  tokens_path: /models/tokens.txt
  lexicon_path: /models/lexicon.txt
  lm_path: /models/lm.bin
  beam_size: 80
  lm_weight: 2.5
  log_add: true
model:
  path: /models/seq.tflite
corrector:
  homophones_path: /models/homophones.jsonl
  lm_path: /models/french.arpa
  beam_width: 10
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Decoder.TokensPath != "/models/tokens.txt" {
		t.Errorf("tokens path = %q", cfg.Decoder.TokensPath)
	}
	if cfg.Model.Path != "/models/seq.tflite" {
		t.Errorf("model path = %q", cfg.Model.Path)
	}
	if cfg.Corrector.BeamWidth != 10 {
		t.Errorf("beam width = %d, want 10", cfg.Corrector.BeamWidth)
	}

	d := cfg.DecoderConfig()
	if d.BeamSize != 80 || d.LMWeight != 2.5 || !d.LogAdd {
		t.Errorf("overrides not applied: %+v", d)
	}
	// Untouched keys keep their defaults.
	if d.BeamThreshold != 50.0 {
		t.Errorf("beam threshold = %v, want default 50", d.BeamThreshold)
	}
	if !math.IsInf(d.UnkScore, -1) {
		t.Errorf("unk score = %v, want -inf", d.UnkScore)
	}
}

func TestLoad_Missing(t *testing.T) {
	if _, err := Load("/does/not/exist.yaml"); err == nil {
		t.Error("expected error for missing config file")
	}
}
