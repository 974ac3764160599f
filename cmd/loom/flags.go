package main

import "github.com/urfave/cli/v3"

var (
	vocabPath string
	hidden    int64
	modelSeed int64
	logLevel  string
	logFormat string
)

// commonModelFlags cover the vocabulary and toy-model knobs shared by run
// and serve.
func commonModelFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "vocab",
			Aliases:     []string{"v"},
			Usage:       "path to vocabulary JSON file",
			Destination: &vocabPath,
		},
		&cli.Int64Flag{
			Name:        "hidden",
			Usage:       "toy model hidden size",
			Value:       64,
			Destination: &hidden,
		},
		&cli.Int64Flag{
			Name:        "model-seed",
			Usage:       "seed for toy model weights",
			Value:       42,
			Destination: &modelSeed,
		},
	}
}

func commonLogFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (text, json, pretty)",
			Value:       "pretty",
			Destination: &logFormat,
		},
	}
}
