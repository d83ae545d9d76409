// Command asynccat copies bytes from one stream URL to another using the
// asyncstream library, exercising the same Open/CopyStream/Flush path a
// library caller would use.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/urfave/cli"

	"github.com/ehrlich-b/asyncstream"
	"github.com/ehrlich-b/asyncstream/device"
	"github.com/ehrlich-b/asyncstream/internal/logging"
)

func main() {
	app := cli.NewApp()
	app.Name = "asynccat"
	app.Usage = "copy bytes between file://, memory://, and ip:// stream sources"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "move, m",
			Usage: "splice the copied range out of the source once the copy completes",
		},
		cli.BoolFlag{
			Name:  "verbose, v",
			Usage: "log stream lifecycle events",
		},
	}
	app.ArgsUsage = "<source-url> <destination-url>"
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	if c.NArg() != 2 {
		return errors.New("expected exactly two arguments: <source-url> <destination-url>")
	}
	srcURL, dstURL := c.Args().Get(0), c.Args().Get(1)

	level := logging.LevelError
	if c.Bool("verbose") {
		level = logging.LevelDebug
	}
	logger := logging.NewLogger(&logging.Config{Level: level, Output: os.Stderr})

	ctx := context.Background()
	handler := asyncstream.BaseEventHandler{}

	src, err := device.OpenURL(ctx, srcURL, handler, &asyncstream.Options{Logger: logger})
	if err != nil {
		return errors.Wrap(err, "opening source")
	}
	defer src.Close()

	dst, err := device.OpenURL(ctx, dstURL, handler, &asyncstream.Options{Logger: logger})
	if err != nil {
		return errors.Wrap(err, "opening destination")
	}
	defer dst.Close()

	n := src.GetDataLength()
	copied, err := asyncstream.CopyStream(dst, src, n, c.Bool("move"))
	if err != nil {
		return errors.Wrapf(err, "copying (copied %d of %d bytes)", copied, n)
	}

	if err := dst.Flush(); err != nil {
		return errors.Wrap(err, "flushing destination")
	}

	fmt.Fprintf(os.Stderr, "copied %d bytes\n", copied)
	return nil
}
