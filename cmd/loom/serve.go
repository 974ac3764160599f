package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/urfave/cli/v3"

	"github.com/loomlm/loom/internal/api"
	"github.com/loomlm/loom/internal/generate"
	"github.com/loomlm/loom/internal/logger"
	"github.com/loomlm/loom/internal/logits"
	"github.com/loomlm/loom/internal/tokenizer"
	"github.com/loomlm/loom/internal/toy"
)

func serveCmd() *cli.Command {
	var (
		addr          string
		readTimeout   time.Duration
		qps           float64
		sampleLen     int64
		temp          float64
		topP          float64
		repeatPenalty float64
		repeatLastN   int64
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "listen address",
			Value:       "127.0.0.1:8080",
			Destination: &addr,
		},
		&cli.DurationFlag{
			Name:        "read-timeout",
			Usage:       "read header timeout",
			Value:       30 * time.Second,
			Destination: &readTimeout,
		},
		&cli.Float64Flag{
			Name:        "qps",
			Usage:       "completion requests accepted per second",
			Value:       4,
			Destination: &qps,
		},
		&cli.Int64Flag{
			Name:        "sample-len",
			Aliases:     []string{"n"},
			Usage:       "default max tokens per completion",
			Value:       256,
			Destination: &sampleLen,
		},
		&cli.Float64Flag{
			Name:        "temp",
			Aliases:     []string{"temperature", "t"},
			Usage:       "default sampling temperature (0 = greedy)",
			Value:       0,
			Destination: &temp,
		},
		&cli.Float64Flag{
			Name:        "top-p",
			Aliases:     []string{"top_p"},
			Usage:       "default nucleus cutoff (0 = disabled)",
			Value:       0,
			Destination: &topP,
		},
		&cli.Float64Flag{
			Name:        "repeat-penalty",
			Usage:       "default repetition penalty",
			Value:       1.1,
			Destination: &repeatPenalty,
		},
		&cli.Int64Flag{
			Name:        "repeat-last-n",
			Usage:       "default penalty lookback",
			Value:       64,
			Destination: &repeatLastN,
		},
	}
	flags = append(flags, commonModelFlags()...)
	flags = append(flags, commonLogFlags()...)

	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the completions REST API",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			applyServeConfig(c, LoadConfig(), &addr, &qps)

			log := logger.Setup(os.Stderr, logFormat, logLevel)

			if vocabPath == "" {
				return cli.Exit("error: --vocab is required", 1)
			}
			vocab, err := tokenizer.Load(vocabPath)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			model := toy.New(vocab.MaxID()+1, int(hidden), modelSeed)

			defaults := generate.Config{
				Sampling: logits.SamplerConfig{
					Temperature: temp,
					TopP:        topP,
				},
				RepeatPenalty: float32(repeatPenalty),
				RepeatLastN:   int(repeatLastN),
				MaxTokens:     int(sampleLen),
			}

			server := api.NewServer(model, vocab, defaults, qps, log)
			e := echo.New()
			e.Use(middleware.RequestLogger())
			e.Use(middleware.Recover())
			server.Register(e)

			log.Info("starting server", "address", addr)
			sc := echo.StartConfig{
				Address: addr,
				BeforeServeFunc: func(srv *http.Server) error {
					srv.ReadHeaderTimeout = readTimeout
					return nil
				},
			}
			return sc.Start(ctx, e)
		},
	}
}
