package main

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/gstoney/framestream"
	"github.com/gstoney/framestream/capture"
)

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level (trace, debug, info, warn, error)",
			Value: "info",
		},
		&cli.StringSliceFlag{
			Name:  "env",
			Usage: "dotenv files loaded before reading configuration",
			Value: cli.NewStringSlice(".env"),
		},
		&cli.StringFlag{
			Name:  "dir",
			Usage: "Directory holding captures",
			Value: ".",
		},
		&cli.StringFlag{
			Name:    "s3-bucket",
			Usage:   "Store captures in this bucket (bucket or bucket/prefix)",
			EnvVars: []string{"FRAMESTREAM_S3_BUCKET"},
		},
		&cli.StringFlag{
			Name:  "s3-prefix",
			Usage: "Key prefix within the bucket",
		},
		&cli.StringFlag{
			Name:    "s3-region",
			Usage:   "AWS region (default chain if empty)",
			EnvVars: []string{"AWS_REGION"},
		},
		&cli.StringFlag{
			Name:  "s3-endpoint",
			Usage: "Custom endpoint for S3-compatible providers",
		},
		&cli.BoolFlag{
			Name:  "s3-path-style",
			Usage: "Force path-style addressing",
		},
	}
}

// setup installs the console logger and loads dotenv files.
func setup(c *cli.Context) error {
	level, err := zerolog.ParseLevel(c.String("log-level"))
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = newLogger(c.App.ErrWriter)

	return framestream.LoadEnv(c.StringSlice("env")...)
}

func newLogger(w io.Writer) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w}).With().Timestamp().Logger()
}

func openStore(c *cli.Context) (capture.Store, error) {
	if c.String("s3-bucket") == "" {
		return capture.FileStore{Dir: c.String("dir")}, nil
	}

	bucket, prefix := capture.ParseS3Path(c.String("s3-bucket"))
	if p := c.String("s3-prefix"); p != "" {
		prefix = p
	}
	return capture.NewS3Store(c.Context, capture.S3Config{
		Bucket:       bucket,
		Prefix:       prefix,
		Region:       c.String("s3-region"),
		Endpoint:     c.String("s3-endpoint"),
		UsePathStyle: c.Bool("s3-path-style"),
	})
}

// loadCapture resolves the first argument to a capture.
func loadCapture(c *cli.Context) (*capture.Capture, error) {
	if c.NArg() < 1 {
		return nil, cli.Exit("capture key required", 2)
	}
	store, err := openStore(c)
	if err != nil {
		return nil, err
	}
	return store.Load(c.Context, c.Args().First())
}

func openStream(c *cli.Context) (*framestream.Stream, error) {
	capt, err := loadCapture(c)
	if err != nil {
		return nil, err
	}
	return framestream.NewStream(capt.Message())
}
