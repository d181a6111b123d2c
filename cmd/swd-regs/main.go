// Command swd-regs reads and writes target registers by name.
//
// It talks to a swd-memserver (given with -connect or found via mDNS with
// -discover) or to an in-process simulator (-sim).
//
// Usage:
//
//	swd-regs [flags] [command [args]]
//
// Commands:
//
//	get <reg> [field]          Read a register or one field
//	set <reg> <field>=<val>... Read-modify-write fields
//	dump                       Read every register in the map
//	identify                   Identify the MCU
//	shell                      Interactive console (default)
//
// Examples:
//
//	# Interactive console against a simulated STM32L152xB
//	swd-regs -sim -mcu STM32L152xB
//
//	# Read the flash latency from a server found on the network
//	swd-regs -discover get FLASH_ACR LATENCY
//
//	# Enable prefetch on a known server
//	swd-regs -connect 192.168.1.20:4242 set FLASH_ACR PRFTEN=1
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/swdkit/swd-go/cmd/swd-regs/interactive"
	"github.com/swdkit/swd-go/pkg/regmap"
)

// Config holds the command configuration.
type Config struct {
	Connect   string
	Discover  bool
	Sim       bool
	Device    string
	MapFile   string
	MCU       string
	Interface string
	Timeout   time.Duration
	AccessLog string
	LogLevel  string
}

var config Config

func init() {
	flag.StringVar(&config.Connect, "connect", "", "Memory server address (host:port)")
	flag.BoolVar(&config.Discover, "discover", false, "Find a memory server via mDNS")
	flag.BoolVar(&config.Sim, "sim", false, "Use an in-process simulated target")
	flag.StringVar(&config.Device, "device", "STM32L1", "Built-in register map: "+strings.Join(regmap.BuiltinDevices(), ", "))
	flag.StringVar(&config.MapFile, "map", "", "Register map file (overrides -device)")
	flag.StringVar(&config.MCU, "mcu", "", "MCU to simulate with -sim")
	flag.StringVar(&config.Interface, "interface", "", "Network interface for -discover")
	flag.DurationVar(&config.Timeout, "timeout", 5*time.Second, "Connect, discovery and request timeout")
	flag.StringVar(&config.AccessLog, "access-log", "", "Write memory accesses to a .swdlog file")
	flag.StringVar(&config.LogLevel, "log-level", "warn", "Log level: debug, info, warn, error")
}

func main() {
	flag.Parse()
	setupLogging(config.LogLevel)

	if err := validateConfig(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	applyDefaults()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sess, err := openSession(ctx, config)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer sess.Close()
	infof("Target: %s via %s", sess.Registers.Device, sess.Source)

	args := flag.Args()
	if len(args) == 0 || args[0] == "shell" {
		sh := interactive.New(sess.Registers, sess.Driver, os.Stdout)
		if err := sh.Run(ctx); err != nil {
			log.Fatalf("%v", err)
		}
		return
	}

	line, err := commandLine(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		flag.Usage()
		os.Exit(2)
	}
	sh := interactive.New(sess.Registers, sess.Driver, os.Stdout)
	if _, err := sh.Exec(line); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		sess.Close()
		os.Exit(1)
	}
}

// commandLine maps a one-shot command to the console command doing the
// same thing.
func commandLine(args []string) (string, error) {
	rest := strings.Join(args[1:], " ")
	switch args[0] {
	case "get":
		switch len(args) {
		case 2:
			return "read " + rest, nil
		case 3:
			return "get " + rest, nil
		}
		return "", errors.New("get takes <reg> [field]")
	case "set":
		if len(args) < 3 {
			return "", errors.New("set takes <reg> <field>=<val>...")
		}
		return "write " + rest, nil
	case "dump", "identify":
		if len(args) != 1 {
			return "", fmt.Errorf("%s takes no arguments", args[0])
		}
		return args[0], nil
	default:
		return "", fmt.Errorf("unknown command: %s", args[0])
	}
}

func setupLogging(level string) {
	log.SetFlags(log.Ltime | log.Lmicroseconds)

	switch level {
	case "debug":
		log.SetFlags(log.Ltime | log.Lmicroseconds | log.Lshortfile)
	case "warn", "error":
		log.SetFlags(log.Ltime)
	}
}

// infof logs progress at the debug and info levels.
func infof(format string, args ...any) {
	if config.LogLevel == "debug" || config.LogLevel == "info" {
		log.Printf(format, args...)
	}
}

func validateConfig() error {
	sources := 0
	for _, set := range []bool{config.Connect != "", config.Discover, config.Sim} {
		if set {
			sources++
		}
	}
	if sources > 1 {
		return errors.New("-connect, -discover and -sim are mutually exclusive")
	}
	if config.MCU != "" && (config.Connect != "" || config.Discover) {
		return errors.New("-mcu only applies to the simulator")
	}
	if config.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", config.Timeout)
	}
	switch config.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level: %s", config.LogLevel)
	}
	return nil
}

func applyDefaults() {
	if config.Connect == "" && !config.Discover {
		config.Sim = true
	}
	config.Device = strings.ToUpper(config.Device)
}
