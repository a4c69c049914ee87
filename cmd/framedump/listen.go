package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/gstoney/framestream"
	"github.com/gstoney/framestream/capture"
)

func listenCommand() *cli.Command {
	return &cli.Command{
		Name:  "listen",
		Usage: "Accept connections and save every received message as a capture",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address",
				Value: "localhost:7400",
			},
			&cli.StringFlag{
				Name:  "out",
				Usage: "Key prefix for saved captures",
				Value: "captures",
			},
			&cli.StringFlag{
				Name:    "config",
				Usage:   "Transport config file (.toml or .yaml)",
				EnvVars: []string{"FRAMESTREAM_CONFIG"},
			},
		},
		Action: listenAction,
	}
}

func listenAction(c *cli.Context) error {
	cfg, err := framestream.LoadConfig(c.String("config"))
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}
	store, err := openStore(c)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &framestream.Server{
		Addr:    c.String("addr"),
		Config:  cfg,
		Handler: saveHandler(store, c.String("out")),
	}
	log.Info().Str("addr", srv.Addr).Msg("listening")
	return srv.ListenAndServe(ctx)
}

// saveHandler stores each message under <out>/<session>/<n>.
func saveHandler(store capture.Store, out string) framestream.Handler {
	return func(ctx context.Context, s *framestream.Session, m framestream.Message) error {
		key := path.Join(out, s.ID.String(), fmt.Sprintf("%06d", s.Messages))
		capt := capture.New(key, m)
		capt.Remote = s.RemoteAddr.String()
		if err := store.Save(ctx, key, capt); err != nil {
			return fmt.Errorf("saving %s: %w", key, err)
		}
		log.Info().Str("key", key).
			Int("frames", m.FrameCount()).
			Int64("bytes", m.Len()).
			Msg("saved capture")
		return nil
	}
}
