package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/coreos/gzidx"
)

var extractCommand = &cli.Command{
	Name:      "extract",
	Usage:     "write an uncompressed byte range to standard output",
	ArgsUsage: "<file> <range>",
	Action: func(c *cli.Context) error {
		if c.Args().Len() < 2 {
			return cli.Exit("extract: usage: gzidx extract <file> <range>", 1)
		}
		path := c.Args().Get(0)
		begin, end, err := parseRange(c.Args().Get(1))
		if err != nil {
			return cli.Exit(fmt.Sprintf("extract: %s", err), 1)
		}

		r, err := gzidx.Open(path)
		if err != nil {
			return cli.Exit(err, 1)
		}
		defer r.Close()

		r.Seek(begin)
		buf := make([]byte, 32*1024)
		remaining := end - begin // negative means "to end of stream" (end == -1)
		for remaining != 0 {
			want := len(buf)
			if remaining > 0 && int64(want) > remaining {
				want = int(remaining)
			}
			n, err := r.Read(buf[:want])
			if n < 0 {
				return cli.Exit(fmt.Sprintf("extract: %v", err), 1)
			}
			if n > 0 {
				os.Stdout.Write(buf[:n])
				if remaining > 0 {
					remaining -= int64(n)
				}
			}
			if n == 0 {
				break
			}
		}
		return nil
	},
}

// parseRange implements spec.md §6's range syntax: BEGIN-END (half-open),
// -END (begin implied 0), BEGIN- (end implied end-of-stream, returned as
// -1), or a bare N (treated as N-N+1).
func parseRange(s string) (begin, end int64, err error) {
	if !strings.Contains(s, "-") {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid range %q", s)
		}
		return n, n + 1, nil
	}

	i := strings.Index(s, "-")
	beginStr, endStr := s[:i], s[i+1:]

	begin = 0
	if beginStr != "" {
		begin, err = strconv.ParseInt(beginStr, 10, 64)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid range %q", s)
		}
	}

	end = -1
	if endStr != "" {
		end, err = strconv.ParseInt(endStr, 10, 64)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid range %q", s)
		}
	}

	return begin, end, nil
}
