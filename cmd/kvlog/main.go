// kvlog is a command-line tool for inspecting and modifying a kvlog
// database file. It opens the store, runs one command and exits.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/tidwall/pretty"

	"github.com/kjk/kvlog"
)

const usage = `kvlog is a tool for inspecting and modifying a kvlog database file.

Usage:

  kvlog -db <path> set <key> <value>
  kvlog -db <path> get <key>
  kvlog -db <path> del <key>
  kvlog -db <path> keys
  kvlog -db <path> [-json] stats
  kvlog -db <path> compact

Flags:

  -db path    path to the database file (default "kvlog.db")
  -json       print stats as JSON
`

var (
	flgDB   string
	flgJSON bool
)

func exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format, args...)
	os.Exit(1)
}

func exitUsage(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format, args...)
	os.Exit(2)
}

func main() {
	flag.StringVar(&flgDB, "db", "kvlog.db", "path to the database file")
	flag.BoolVar(&flgJSON, "json", false, "print stats as JSON")
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
	}
	flag.Parse()
	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	s, err := kvlog.Open(flgDB)
	if err != nil {
		exitf("failed to open %s: %s\n", flgDB, err)
	}
	defer s.Close()

	cmd, args := args[0], args[1:]
	switch cmd {
	case "set":
		if len(args) != 2 {
			exitUsage("usage: kvlog set <key> <value>\n")
		}
		if err = s.Set(args[0], []byte(args[1])); err != nil {
			exitf("set failed: %s\n", err)
		}
	case "get":
		if len(args) != 1 {
			exitUsage("usage: kvlog get <key>\n")
		}
		v, ok, err := s.Get(args[0])
		if err != nil {
			exitf("get failed: %s\n", err)
		}
		if !ok {
			exitf("no key %q\n", args[0])
		}
		os.Stdout.Write(v)
		fmt.Println()
	case "del":
		if len(args) != 1 {
			exitUsage("usage: kvlog del <key>\n")
		}
		err = s.Delete(args[0])
		if errors.Is(err, kvlog.ErrKeyNotFound) {
			// expected condition, not a failure
			fmt.Printf("nothing to delete: no key %q\n", args[0])
			return
		}
		if err != nil {
			exitf("delete failed: %s\n", err)
		}
	case "keys":
		for _, k := range s.Keys() {
			fmt.Println(k)
		}
	case "stats":
		st := s.Stats()
		if flgJSON {
			d, err := json.Marshal(st)
			if err != nil {
				exitf("failed to marshal stats: %s\n", err)
			}
			os.Stdout.Write(pretty.Pretty(d))
			return
		}
		fmt.Printf("path:      %s\n", st.Path)
		fmt.Printf("live keys: %d\n", st.LiveKeys)
		fmt.Printf("log size:  %s (%d bytes)\n", humanize.Bytes(uint64(st.LogSize)), st.LogSize)
	case "compact":
		before := s.Stats().LogSize
		if err = s.Compact(); err != nil {
			exitf("compact failed: %s\n", err)
		}
		after := s.Stats().LogSize
		fmt.Printf("compacted: %s => %s\n", humanize.Bytes(uint64(before)), humanize.Bytes(uint64(after)))
	default:
		exitUsage("unknown command %q\n\n%s", cmd, usage)
	}
}
