package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/loomlm/loom/internal/generate"
	"github.com/loomlm/loom/internal/logger"
	"github.com/loomlm/loom/internal/logits"
	"github.com/loomlm/loom/internal/tokenizer"
	"github.com/loomlm/loom/internal/toy"
)

func runCmd() *cli.Command {
	var (
		prompt        string
		sampleLen     int64
		temp          float64
		topP          float64
		repeatPenalty float64
		repeatLastN   int64
		seed          int64
		verbose       bool
		streamMode    string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "prompt",
			Aliases:     []string{"p"},
			Usage:       "prompt text; omit for interactive mode",
			Destination: &prompt,
		},
		&cli.Int64Flag{
			Name:        "sample-len",
			Aliases:     []string{"n", "sample_len"},
			Usage:       "max tokens to generate per prompt",
			Value:       256,
			Destination: &sampleLen,
		},
		&cli.Float64Flag{
			Name:        "temp",
			Aliases:     []string{"temperature", "t"},
			Usage:       "sampling temperature (0 = greedy)",
			Value:       0,
			Destination: &temp,
		},
		&cli.Float64Flag{
			Name:        "top-p",
			Aliases:     []string{"top_p", "topp"},
			Usage:       "nucleus sampling cutoff (0 = disabled)",
			Value:       0,
			Destination: &topP,
		},
		&cli.Float64Flag{
			Name:        "repeat-penalty",
			Aliases:     []string{"repeat_penalty"},
			Usage:       "repetition penalty (1.0 = disabled)",
			Value:       1.1,
			Destination: &repeatPenalty,
		},
		&cli.Int64Flag{
			Name:        "repeat-last-n",
			Aliases:     []string{"repeat_last_n"},
			Usage:       "last n tokens to penalize",
			Value:       64,
			Destination: &repeatLastN,
		},
		&cli.Int64Flag{
			Name:        "seed",
			Usage:       "sampling RNG seed (default -1 = random)",
			Value:       -1,
			Destination: &seed,
		},
		&cli.BoolFlag{
			Name:        "verbose",
			Usage:       "surface per-token diagnostics",
			Destination: &verbose,
		},
		&cli.StringFlag{
			Name:        "stream-mode",
			Usage:       "token output mode (instant, quiet)",
			Value:       "instant",
			Destination: &streamMode,
		},
	}
	flags = append(flags, commonModelFlags()...)
	flags = append(flags, commonLogFlags()...)

	return &cli.Command{
		Name:  "run",
		Usage: "Generate text from prompts",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			applyRunConfig(c, LoadConfig(),
				&temp, &topP, &seed, &repeatPenalty, &repeatLastN, &sampleLen, &streamMode)

			level := logLevel
			if verbose {
				level = "debug"
			}
			log := logger.Setup(os.Stderr, logFormat, level)

			if vocabPath == "" {
				return cli.Exit("error: --vocab is required", 1)
			}
			vocab, err := tokenizer.Load(vocabPath)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}

			model := toy.New(vocab.MaxID()+1, int(hidden), modelSeed)

			if seed == -1 {
				seed = time.Now().UnixNano()
			}

			sess, err := generate.NewSession(model, vocab, generate.Config{
				Sampling: logits.SamplerConfig{
					Seed:        seed,
					Temperature: temp,
					TopP:        topP,
				},
				RepeatPenalty: float32(repeatPenalty),
				RepeatLastN:   int(repeatLastN),
				MaxTokens:     int(sampleLen),
				Verbose:       verbose,
			}, log)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}

			writer := NewStreamWriter(StreamMode(streamMode), os.Stdout)
			sink := &cliSink{writer: writer, log: log}

			if prompt != "" {
				stats, err := sess.Generate(ctx, prompt, writer.Write)
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: generation: %v", err), 1)
				}
				writer.Flush()
				fmt.Println()
				log.Info("prompt done", "tokens", stats.TokensGenerated, "tps", fmt.Sprintf("%.2f", stats.TPS))
				return nil
			}

			if !stdinIsTTY() {
				if err := sess.Run(ctx, os.Stdin, sink); err != nil {
					return cli.Exit(fmt.Sprintf("error: %v", err), 1)
				}
				return nil
			}

			fmt.Fprintln(os.Stderr, "Interactive mode. Type /exit to quit.")
			for {
				line, err := readInteractiveLine("> ")
				if err != nil {
					break
				}
				if strings.TrimSpace(line) == "/exit" {
					break
				}
				if strings.TrimSpace(line) == "" {
					continue
				}

				stats, err := sess.Generate(ctx, line, writer.Write)
				if err != nil {
					var fwd *generate.ForwardError
					if errors.As(err, &fwd) {
						return cli.Exit(fmt.Sprintf("error: generation: %v", err), 1)
					}
					log.Error("prompt failed", "error", err)
					continue
				}
				writer.Flush()
				fmt.Println()
				log.Info("prompt done", "tokens", stats.TokensGenerated, "tps", fmt.Sprintf("%.2f", stats.TPS))
			}
			return nil
		},
	}
}

// cliSink bridges the session's line-driven mode to the terminal.
type cliSink struct {
	writer *StreamWriter
	log    logger.Logger
}

func (s *cliSink) Fragment(text string) {
	s.writer.Write(text)
}

func (s *cliSink) PromptDone(stats generate.Stats) {
	s.writer.Flush()
	fmt.Println()
	s.log.Info("prompt done", "tokens", stats.TokensGenerated, "tps", fmt.Sprintf("%.2f", stats.TPS))
}

func (s *cliSink) PromptFailed(err error) {
	s.log.Error("prompt failed", "error", err)
}
