package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"
)

func inspectCommand() *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     "Show the frame table of a capture",
		ArgsUsage: "<key>",
		Action:    inspectAction,
	}
}

func inspectAction(c *cli.Context) error {
	capt, err := loadCapture(c)
	if err != nil {
		return err
	}
	m := capt.Message()

	w := c.App.Writer
	fmt.Fprintf(w, "name:     %s\n", capt.Name)
	if capt.Remote != "" {
		fmt.Fprintf(w, "remote:   %s\n", capt.Remote)
	}
	fmt.Fprintf(w, "captured: %s\n", capt.CapturedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(w, "frames:   %d\n", m.FrameCount())
	fmt.Fprintf(w, "length:   %d\n\n", m.Len())

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "FRAME\tOFFSET\tLENGTH\t")
	var off int64
	for i := range m.FrameCount() {
		fmt.Fprintf(tw, "%d\t%d\t%d\t\n", i, off, m.FrameLen(i))
		off += int64(m.FrameLen(i))
	}
	return tw.Flush()
}
