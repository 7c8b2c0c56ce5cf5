// simhook CLI - inspect and manage hook programs outside the host process
package main

import (
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"simhook/hookvm"
	"simhook/manifest"
	"simhook/store"
)

var log commonlog.Logger

func main() {
	verbosity := flag.Int("v", 0, "Log verbosity (0 = quiet)")
	dbPath := flag.String("db", "simhook.db", "Program store path")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: simhook [options] <command> [args]\n\n")
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "  dasm <file>             Disassemble a bytecode program\n")
		fmt.Fprintf(os.Stderr, "  check <dir>             Validate a simhook.toml manifest\n")
		fmt.Fprintf(os.Stderr, "  store put <name> <file> Store a program under a name\n")
		fmt.Fprintf(os.Stderr, "  store get <name> <file> Write a stored program to a file\n")
		fmt.Fprintf(os.Stderr, "  store ls                List stored programs\n")
		fmt.Fprintf(os.Stderr, "  store rm <name>         Remove a stored program\n")
		fmt.Fprintf(os.Stderr, "  dump <file>             Disassemble every program in a CBOR snapshot\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	commonlog.Configure(*verbosity, nil)
	log = commonlog.GetLogger("simhook")

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	var err error
	switch args[0] {
	case "dasm":
		err = cmdDasm(args[1:])
	case "check":
		err = cmdCheck(args[1:])
	case "store":
		err = cmdStore(*dbPath, args[1:])
	case "dump":
		err = cmdDump(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "simhook: unknown command %q\n", args[0])
		flag.Usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "simhook: %v\n", err)
		os.Exit(1)
	}
}

func cmdDasm(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("dasm: want one program file")
	}
	code, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	listing := hookvm.Disassemble(code)
	if listing != "" {
		fmt.Println(listing)
	}
	decoded := hookvm.DecodeAll(code)
	log.Infof("%s: %d instructions, %d bytes", args[0], len(decoded), len(code))
	return nil
}

func cmdCheck(args []string) error {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	m, err := manifest.Load(dir)
	if err != nil {
		return err
	}
	fmt.Printf("%s: %d hooks declared\n", m.Project.Name, len(m.Hooks))
	return nil
}

func cmdStore(dbPath string, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("store: want put, get, ls, or rm")
	}

	s, err := store.Open(dbPath)
	if err != nil {
		return err
	}
	defer s.Close()

	switch args[0] {
	case "put":
		if len(args) != 3 {
			return fmt.Errorf("store put: want <name> <file>")
		}
		code, err := os.ReadFile(args[2])
		if err != nil {
			return err
		}
		if err := s.Put(args[1], code); err != nil {
			return err
		}
		log.Infof("stored %q (%d bytes)", args[1], len(code))
		return nil

	case "get":
		if len(args) != 3 {
			return fmt.Errorf("store get: want <name> <file>")
		}
		code, err := s.Get(args[1])
		if err != nil {
			return err
		}
		return os.WriteFile(args[2], code, 0o644)

	case "ls":
		infos, err := s.List()
		if err != nil {
			return err
		}
		for _, info := range infos {
			fmt.Printf("%-32s %6d bytes  %x\n", info.Name, info.Size, info.Hash[:8])
		}
		return nil

	case "rm":
		if len(args) != 2 {
			return fmt.Errorf("store rm: want <name>")
		}
		return s.Delete(args[1])
	}
	return fmt.Errorf("store: unknown subcommand %q", args[0])
}

func cmdDump(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("dump: want one snapshot file")
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	snap, err := hookvm.UnmarshalSnapshot(data)
	if err != nil {
		return err
	}

	ids := make([]uint32, 0, len(snap.Programs))
	for id := range snap.Programs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		fmt.Printf("proc %d:\n", id)
		listing := hookvm.Disassemble(snap.Programs[id])
		if listing != "" {
			fmt.Println(listing)
		}
		fmt.Println()
	}
	return nil
}
