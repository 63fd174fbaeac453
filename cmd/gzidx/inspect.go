package main

import (
	"os"

	"github.com/urfave/cli/v2"
	yaml "gopkg.in/yaml.v2"

	"github.com/coreos/gzidx"
)

// inspectSummary is the YAML shape printed by `gzidx inspect`. Key names
// come from the explicit yaml tags. Compressed and Uncompressed are the
// in/out offsets of the last access point, not the stream's total sizes.
type inspectSummary struct {
	Points       int     `yaml:"points"`
	Compressed   int64   `yaml:"compressed_bytes"`
	Uncompressed int64   `yaml:"uncompressed_bytes"`
	MeanSpan     float64 `yaml:"mean_span_bytes"`
	MinSpan      int64   `yaml:"min_span_bytes"`
	MaxSpan      int64   `yaml:"max_span_bytes"`
}

var inspectCommand = &cli.Command{
	Name:      "inspect",
	Usage:     "print index statistics without extracting anything",
	ArgsUsage: "<file.idx>",
	Action: func(c *cli.Context) error {
		path := c.Args().First()
		if path == "" {
			return cli.Exit("inspect: missing <file.idx>", 1)
		}

		idx, err := gzidx.LoadIndex(path)
		if err != nil {
			return cli.Exit(err, 1)
		}

		points := idx.PointInfos()
		summary := inspectSummary{Points: len(points)}
		if len(points) > 0 {
			last := points[len(points)-1]
			summary.Compressed = last.In
			summary.Uncompressed = last.Out
		}
		if len(points) > 1 {
			var total int64
			summary.MinSpan = -1
			for i := 1; i < len(points); i++ {
				span := points[i].Out - points[i-1].Out
				total += span
				if summary.MinSpan < 0 || span < summary.MinSpan {
					summary.MinSpan = span
				}
				if span > summary.MaxSpan {
					summary.MaxSpan = span
				}
			}
			summary.MeanSpan = float64(total) / float64(len(points)-1)
		}

		out, err := yaml.Marshal(summary)
		if err != nil {
			return cli.Exit(err, 1)
		}
		os.Stdout.Write(out)
		return nil
	},
}
