// Command cuedecode streams landmark frames (JSONL) through the
// recognizer and prints the rolling transcript.
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	cuedspeech "github.com/ieee0824/cuedspeech-go"
	"github.com/ieee0824/cuedspeech-go/config"
	"github.com/ieee0824/cuedspeech-go/corrector"
	"github.com/ieee0824/cuedspeech-go/landmark"
	"github.com/ieee0824/cuedspeech-go/seqmodel"
)

// frameJSON is one input line: landmark triples per modality.
type frameJSON struct {
	Face [][3]float32 `json:"face"`
	Hand [][3]float32 `json:"hand"`
	Pose [][3]float32 `json:"pose"`
}

func main() {
	var (
		cfgPath    string
		tokensPath string
		lexPath    string
		lmPath     string
		modelPath  string
		homPath    string
		homLMPath  string
		verbose    bool
	)

	cmd := &cobra.Command{
		Use:   "cuedecode [landmarks.jsonl]",
		Short: "Decode cued-speech landmark streams to phonemes and text",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				logrus.SetLevel(logrus.DebugLevel)
			}

			cfg := config.DefaultConfig()
			if cfgPath != "" {
				loaded, err := config.Load(cfgPath)
				if err != nil {
					return err
				}
				cfg = loaded
			}
			if tokensPath != "" {
				cfg.Decoder.TokensPath = tokensPath
			}
			if lexPath != "" {
				cfg.Decoder.LexiconPath = lexPath
			}
			if lmPath != "" {
				cfg.Decoder.LMPath = lmPath
			}
			if modelPath != "" {
				cfg.Model.Path = modelPath
			}
			if homPath != "" {
				cfg.Corrector.HomophonesPath = homPath
			}
			if homLMPath != "" {
				cfg.Corrector.LMPath = homLMPath
			}

			if cfg.Decoder.TokensPath == "" || cfg.Decoder.LexiconPath == "" || cfg.Decoder.LMPath == "" {
				return fmt.Errorf("tokens, lexicon and lm paths are required")
			}

			opts := []cuedspeech.Option{cuedspeech.WithDecoderConfig(cfg.DecoderConfig())}
			if cfg.Corrector.HomophonesPath != "" && cfg.Corrector.LMPath != "" {
				c, err := corrector.New(cfg.Corrector.HomophonesPath, cfg.Corrector.LMPath)
				if err != nil {
					logrus.Warnf("corrector unavailable: %v", err)
				} else {
					c.SetBeamWidth(cfg.Corrector.BeamWidth)
					opts = append(opts, cuedspeech.WithCorrectorModel(c))
				}
			}

			rec, err := cuedspeech.NewRecognizer(
				cfg.Decoder.TokensPath, cfg.Decoder.LexiconPath, cfg.Decoder.LMPath, opts...)
			if err != nil {
				return err
			}

			model := seqmodel.NewAdapter(seqmodel.NewTFLite())
			if cfg.Model.Path == "" || !model.Load(cfg.Model.Path) {
				return fmt.Errorf("load sequence model: %s", cfg.Model.Path)
			}

			in := os.Stdin
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}

			return run(rec, model, in, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&cfgPath, "config", "", "path to YAML config file")
	cmd.Flags().StringVar(&tokensPath, "tokens", "", "path to token vocabulary file")
	cmd.Flags().StringVar(&lexPath, "lexicon", "", "path to lexicon file")
	cmd.Flags().StringVar(&lmPath, "lm", "", "path to ARPA language model")
	cmd.Flags().StringVar(&modelPath, "model", "", "path to sequence model (.tflite)")
	cmd.Flags().StringVar(&homPath, "homophones", "", "path to homophones JSONL file")
	cmd.Flags().StringVar(&homLMPath, "homophones-lm", "", "path to corrector ARPA language model")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	if err := cmd.Execute(); err != nil {
		logrus.Fatal(err)
	}
}

func run(rec *cuedspeech.Recognizer, model *seqmodel.Adapter, in io.Reader, out io.Writer) error {
	strm := rec.NewStream(model)
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var fj frameJSON
		if err := json.Unmarshal([]byte(line), &fj); err != nil {
			logrus.Warnf("line %d: skipping malformed frame: %v", lineNum, err)
			continue
		}
		if !strm.Push(toFrame(&fj)) {
			continue
		}
		result, err := strm.Process()
		if err != nil {
			return err
		}
		printResult(out, result)
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	result, err := strm.Finalize()
	if err != nil {
		return err
	}
	printResult(out, result)

	logrus.WithFields(logrus.Fields{
		"total":   strm.TotalFramesSeen(),
		"valid":   strm.ValidFrames(),
		"dropped": strm.DroppedFrames(),
	}).Info("stream finished")
	return nil
}

func toFrame(fj *frameJSON) *landmark.Frame {
	return &landmark.Frame{
		Face: toPoints(fj.Face),
		Hand: toPoints(fj.Hand),
		Pose: toPoints(fj.Pose),
	}
}

func toPoints(coords [][3]float32) []landmark.Point {
	if len(coords) == 0 {
		return nil
	}
	pts := make([]landmark.Point, len(coords))
	for i, c := range coords {
		pts[i] = landmark.Point{X: c[0], Y: c[1], Z: c[2]}
	}
	return pts
}

func printResult(out io.Writer, r cuedspeech.Result) {
	if len(r.Phonemes) == 0 {
		return
	}
	if r.Sentence != "" {
		fmt.Fprintf(out, "[%d] %s\n", r.FrameNumber, r.Sentence)
		return
	}
	fmt.Fprintf(out, "[%d] %s\n", r.FrameNumber, strings.Join(r.Phonemes, " "))
}
