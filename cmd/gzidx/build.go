package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/coreos/gzidx"
)

var buildCommand = &cli.Command{
	Name:      "build",
	Usage:     "build a sidecar index for a gzip file",
	ArgsUsage: "<file>",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "b", Usage: "alias for build (matches spec.md's -b <file> form)"},
	},
	Action: func(c *cli.Context) error {
		path := c.Args().First()
		if path == "" {
			return cli.Exit("build: missing <file>", 1)
		}

		idx, err := gzidx.BuildIndex(path)
		if err != nil {
			return cli.Exit(err, 1)
		}
		if err := gzidx.WriteIndex(path, idx); err != nil {
			return cli.Exit(err, 1)
		}

		fmt.Printf("wrote %s.idx: %d access points\n", path, idx.Len())
		return nil
	},
}
