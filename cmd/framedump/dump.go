package main

import (
	"encoding/hex"
	"io"

	"github.com/urfave/cli/v2"
)

func dumpCommand() *cli.Command {
	return &cli.Command{
		Name:      "dump",
		Usage:     "Hex dump a byte range of a capture",
		ArgsUsage: "<key>",
		Flags: []cli.Flag{
			&cli.Int64Flag{
				Name:  "offset",
				Usage: "Start position; negative counts from the end",
			},
			&cli.Int64Flag{
				Name:  "length",
				Usage: "Number of bytes to dump (-1 for the rest)",
				Value: -1,
			},
		},
		Action: dumpAction,
	}
}

func dumpAction(c *cli.Context) error {
	s, err := openStream(c)
	if err != nil {
		return err
	}

	whence := io.SeekStart
	if c.Int64("offset") < 0 {
		whence = io.SeekEnd
	}
	if _, err := s.Seek(c.Int64("offset"), whence); err != nil {
		return cli.Exit(err.Error(), 2)
	}

	d := hex.Dumper(c.App.Writer)
	if n := c.Int64("length"); n >= 0 {
		_, err = io.CopyN(d, s, n)
		if err == io.EOF {
			err = nil
		}
	} else {
		_, err = s.WriteTo(d)
	}
	if err != nil {
		return err
	}
	return d.Close()
}
