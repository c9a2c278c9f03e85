// kvlog-shell is an interactive REPL over a single kvlog database
// file: read a command from stdin, run it against the open store,
// print the result, repeat.
package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/dustin/go-humanize"

	"github.com/kjk/kvlog"
)

const helpText = `commands:
  set <key> <value>   store a value (value is the rest of the line)
  get <key>           print a value
  del <key>           delete a key
  keys                list live keys
  stats               show store statistics
  compact             rewrite the log keeping only live records
  help                show this help
  quit                exit
`

func main() {
	var dbPath string
	if len(os.Args) > 1 {
		dbPath = os.Args[1]
	} else {
		dbPath = "kvlog.db"
	}

	s, err := kvlog.Open(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open %s: %s\n", dbPath, err)
		os.Exit(1)
	}
	defer s.Close()

	rl, err := readline.New("kvlog> ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start readline: %s\n", err)
		os.Exit(1)
	}
	defer rl.Close()

	fmt.Printf("%s: %d live keys\ntype 'help' for commands\n", dbPath, s.Len())
	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err != nil {
			// io.EOF on ctrl-d
			return
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !execCommand(s, line) {
			return
		}
	}
}

// returns false to exit the shell
func execCommand(s *kvlog.Store, line string) bool {
	parts := strings.SplitN(line, " ", 3)
	switch cmd := strings.ToLower(parts[0]); cmd {
	case "quit", "exit", "q":
		return false
	case "help", "h":
		fmt.Print(helpText)
	case "set":
		if len(parts) != 3 {
			fmt.Println("usage: set <key> <value>")
			break
		}
		if err := s.Set(parts[1], []byte(parts[2])); err != nil {
			fmt.Printf("set failed: %s\n", err)
		}
	case "get":
		if len(parts) != 2 {
			fmt.Println("usage: get <key>")
			break
		}
		v, ok, err := s.Get(parts[1])
		if err != nil {
			fmt.Printf("get failed: %s\n", err)
			break
		}
		if !ok {
			fmt.Println("(not found)")
			break
		}
		fmt.Printf("%s\n", v)
	case "del":
		if len(parts) != 2 {
			fmt.Println("usage: del <key>")
			break
		}
		err := s.Delete(parts[1])
		if errors.Is(err, kvlog.ErrKeyNotFound) {
			fmt.Println("nothing to delete")
			break
		}
		if err != nil {
			fmt.Printf("delete failed: %s\n", err)
		}
	case "keys":
		for _, k := range s.Keys() {
			fmt.Println(k)
		}
	case "stats":
		st := s.Stats()
		fmt.Printf("%d live keys, log size %s\n", st.LiveKeys, humanize.Bytes(uint64(st.LogSize)))
	case "compact":
		before := s.Stats().LogSize
		if err := s.Compact(); err != nil {
			fmt.Printf("compact failed: %s\n", err)
			break
		}
		fmt.Printf("log size %s => %s\n", humanize.Bytes(uint64(before)), humanize.Bytes(uint64(s.Stats().LogSize)))
	default:
		fmt.Printf("unknown command %q, type 'help'\n", cmd)
	}
	return true
}
