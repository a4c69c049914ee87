package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/gstoney/framestream/record"
)

func recordsCommand() *cli.Command {
	return &cli.Command{
		Name:      "records",
		Usage:     "Decode the handshake records carried by a capture",
		ArgsUsage: "<key>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "auth",
				Usage: "Decode a single RLP auth record instead",
			},
		},
		Action: recordsAction,
	}
}

func recordsAction(c *cli.Context) error {
	s, err := openStream(c)
	if err != nil {
		return err
	}
	w := c.App.Writer

	if c.Bool("auth") {
		a, err := record.DecodeAuth(s, uint64(s.Len()))
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "auth v%d\n", a.Version)
		fmt.Fprintf(w, "  public key: %x\n", a.PublicKey)
		fmt.Fprintf(w, "  signature:  %x\n", a.Signature)
		fmt.Fprintf(w, "  nonce:      %x\n", a.Nonce)
		if len(a.Rest) > 0 {
			fmt.Fprintf(w, "  extra:      %d elements\n", len(a.Rest))
		}
		if rest := s.Len() - s.Position(); rest > 0 {
			fmt.Fprintf(w, "%d bytes follow the record\n", rest)
		}
		return nil
	}

	for {
		start := s.Position()
		h, err := record.ReadHandshake(s)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("record at %d: %w", start, err)
		}
		fmt.Fprintf(w, "%08x  %s (%d bytes)\n", start, h.Type(), s.Position()-start)
		if err := describe(w, h); err != nil {
			return err
		}
	}
}

func describe(w io.Writer, h record.Handshake) error {
	switch h := h.(type) {
	case *record.ClientHello:
		fmt.Fprintf(w, "  version %#04x session %s\n", h.Version, h.SessionID)
		fmt.Fprintf(w, "  cipher suites %04x\n", h.CipherSuites)
		if len(h.Extensions) > 0 {
			fmt.Fprintf(w, "  extensions %d bytes\n", len(h.Extensions))
		}
	case *record.ServerHello:
		fmt.Fprintf(w, "  version %#04x session %s cipher suite %04x\n", h.Version, h.SessionID, h.CipherSuite)
		fmt.Fprintf(w, "  server time %s\n", time.UnixMilli(h.Timestamp).UTC().Format(time.RFC3339))
		if h.TicketLifetime >= 0 {
			fmt.Fprintf(w, "  resumable for %s\n", time.Duration(h.TicketLifetime)*time.Second)
		}
	case *record.Certificate:
		certs, err := h.Certificates()
		if err != nil {
			return err
		}
		for i, cert := range certs {
			fmt.Fprintf(w, "  [%d] %s (issuer %s)\n", i, cert.Subject, cert.Issuer)
		}
	case *record.Finished:
		fmt.Fprintf(w, "  verify data %s\n", hex.EncodeToString(h.VerifyData))
	}
	return nil
}
