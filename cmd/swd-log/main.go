// Command swd-log views and analyzes memory access log files.
//
// Log files are written by swd-memserver and swd-regs when run with the
// -access-log flag.
//
// Usage:
//
//	swd-log <command> [flags] <file.swdlog>
//
// Commands:
//
//	view     View log file in human-readable format
//	export   Export log file to JSON or CSV format
//	filter   Filter log file and write to new file
//	stats    Show statistics about the log file
//
// Examples:
//
//	# View all events, naming STM32L1 registers
//	swd-log view -device STM32L1 server.swdlog
//
//	# View only writes to the flash interface
//	swd-log view -direction out -address 0x40023c00-0x40023c1f server.swdlog
//
//	# Export to CSV
//	swd-log export -format csv -o server.csv server.swdlog
//
//	# Filter by session and save to new file
//	swd-log filter -session abc12345-... -o session.swdlog server.swdlog
//
//	# Show statistics
//	swd-log stats server.swdlog
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/swdkit/swd-go/cmd/swd-log/commands"
	"github.com/swdkit/swd-go/pkg/log"
	"github.com/swdkit/swd-go/pkg/regmap"
)

const usage = `swd-log - Memory Access Log Analyzer

Usage:
  swd-log <command> [flags] <file.swdlog>

Commands:
  view     View log file in human-readable format
  export   Export log file to JSON or CSV format
  filter   Filter log file and write to new file
  stats    Show statistics about the log file

Use "swd-log <command> -help" for more information about a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "view":
		runView(args)
	case "export":
		runExport(args)
	case "filter":
		runFilter(args)
	case "stats":
		runStats(args)
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
}

// filterFlags registers the shared filter flags on fs.
func filterFlags(fs *flag.FlagSet) *commands.FilterOptions {
	opts := &commands.FilterOptions{}
	fs.StringVar(&opts.Session, "session", "", "Filter by session ID")
	fs.StringVar(&opts.Target, "target", "", "Filter by target name")
	fs.StringVar(&opts.Layer, "layer", "", "Filter by layer (driver, wire, transport)")
	fs.StringVar(&opts.Direction, "direction", "", "Filter by direction (in, out)")
	fs.StringVar(&opts.Category, "category", "", "Filter by category (access, state, error)")
	fs.StringVar(&opts.TimeStart, "time-start", "", "Filter by start time (RFC3339)")
	fs.StringVar(&opts.TimeEnd, "time-end", "", "Filter by end time (RFC3339)")
	fs.StringVar(&opts.Address, "address", "", "Filter by address or range (0x40023c00 or 0x40023c00-0x40023cff)")
	return opts
}

// regmapFlags registers the register map flags on fs and returns a loader.
func regmapFlags(fs *flag.FlagSet) func() (*regmap.Map, error) {
	device := fs.String("device", "", "Name addresses using a built-in register map (e.g. STM32L1)")
	mapFile := fs.String("map", "", "Name addresses using a register map file")
	return func() (*regmap.Map, error) {
		switch {
		case *mapFile != "":
			return regmap.Load(*mapFile)
		case *device != "":
			return regmap.Builtin(*device)
		default:
			return nil, nil
		}
	}
}

func newFlagSet(name, summary string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `swd-log %s - %s

Usage:
  swd-log %s [flags] <file.swdlog>

Flags:
`, name, summary, name)
		fs.PrintDefaults()
	}
	return fs
}

func parseArgs(fs *flag.FlagSet, args []string) string {
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: log file path required")
		fs.Usage()
		os.Exit(1)
	}
	return fs.Arg(0)
}

func buildFilter(opts *commands.FilterOptions) log.Filter {
	filter, err := opts.Build()
	if err != nil {
		fatal(err)
	}
	return filter
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func runView(args []string) {
	fs := newFlagSet("view", "View log file in human-readable format")
	opts := filterFlags(fs)
	loadMap := regmapFlags(fs)
	path := parseArgs(fs, args)

	filter := buildFilter(opts)
	regs, err := loadMap()
	if err != nil {
		fatal(err)
	}
	if err := commands.RunView(path, filter, regs, os.Stdout); err != nil {
		fatal(err)
	}
}

func runExport(args []string) {
	fs := newFlagSet("export", "Export log file to JSON or CSV format")
	format := fs.String("format", "jsonl", "Output format (jsonl, csv)")
	output := fs.String("o", "", "Output file (default: stdout)")
	opts := filterFlags(fs)
	path := parseArgs(fs, args)

	filter := buildFilter(opts)

	w := os.Stdout
	if *output != "" {
		f, err := os.Create(*output)
		if err != nil {
			fatal(fmt.Errorf("failed to create output file: %w", err))
		}
		defer f.Close()
		w = f
	}

	if err := commands.RunExport(path, *format, filter, w); err != nil {
		fatal(err)
	}
}

func runFilter(args []string) {
	fs := newFlagSet("filter", "Filter log file and write to new file")
	output := fs.String("o", "", "Output file (required)")
	opts := filterFlags(fs)
	path := parseArgs(fs, args)

	if *output == "" {
		fmt.Fprintln(os.Stderr, "Error: output file (-o) required")
		fs.Usage()
		os.Exit(1)
	}

	count, err := commands.RunFilter(path, *output, buildFilter(opts))
	if err != nil {
		fatal(err)
	}
	fmt.Printf("Filtered %d events to %s\n", count, *output)
}

func runStats(args []string) {
	fs := newFlagSet("stats", "Show statistics about the log file")
	opts := filterFlags(fs)
	loadMap := regmapFlags(fs)
	path := parseArgs(fs, args)

	filter := buildFilter(opts)
	regs, err := loadMap()
	if err != nil {
		fatal(err)
	}
	if err := commands.RunStats(path, filter, regs, os.Stdout); err != nil {
		fatal(err)
	}
}
