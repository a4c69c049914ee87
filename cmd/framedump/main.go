// Command framedump records and inspects multipart messages.
//
// Usage:
//
//	framedump [global options] <command> [options] <key>
//
// Captures are read from and written to --dir, or to an S3 bucket when
// --s3-bucket is set.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	app := newApp()
	if err := app.Run(os.Args); err != nil {
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:           "framedump",
		Usage:          "Record and inspect multipart frame captures",
		Flags:          globalFlags(),
		Before:         setup,
		ExitErrHandler: exitErrHandler,
		Commands: []*cli.Command{
			inspectCommand(),
			dumpCommand(),
			recordsCommand(),
			listenCommand(),
		},
	}
}

// exitErrHandler preserves exit codes from cli.Exit.
func exitErrHandler(_ *cli.Context, err error) {
	if err == nil {
		return
	}

	var exitCoder cli.ExitCoder
	if errors.As(err, &exitCoder) {
		if msg := exitCoder.Error(); msg != "" {
			fmt.Fprintln(os.Stderr, msg)
		}
		os.Exit(exitCoder.ExitCode())
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
