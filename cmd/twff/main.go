// twff is the command-line surface of the TWFF process-log engine: it
// verifies, repairs, packs, inspects, and records tamper-evident writing
// session logs and their containers.
//
// Exit codes follow the published convention: 0 all checks pass, 1 schema
// or chain violations found, 2 archive or log unreadable.
package main

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"twff/internal/config"
	"twff/internal/logging"
)

var (
	version = "dev"
	commit  = "unknown"
)

var configPath = flag.StringP("config", "c", "", "path to config file")

func main() {
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
		os.Exit(2)
	}

	cfg := loadConfig()
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)

	cmd := flag.Arg(0)
	args := flag.Args()[1:]

	switch cmd {
	case "verify":
		os.Exit(cmdVerify(cfg, args))
	case "fix":
		os.Exit(cmdFix(cfg, args))
	case "pack":
		os.Exit(cmdPack(cfg, args))
	case "inspect":
		os.Exit(cmdInspect(args))
	case "record":
		os.Exit(cmdRecord(cfg, args))
	case "version":
		fmt.Printf("twff %s (commit: %s)\n", version, commit)
	case "help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `twff - TWFF process-log verifier and packer

Usage: twff [options] <command> [args]

Commands:
  verify <file>    Verify a .twff container or bare process-log.json
  fix <log.json>   Recompute the hash chain in place (audit-breaking)
  pack             Pack content + process log into a .twff container
  inspect <file>   List container entries and digests
  record           Watch a content file, chaining checkpoint events
  version          Print version
  help             Show this help message

Options:
  -c, --config <path>  Path to config file (TOML or YAML)

Exit codes: 0 = all checks pass, 1 = violations found, 2 = unreadable input`)
}

func loadConfig() *config.Config {
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(2)
	}
	return cfg
}
