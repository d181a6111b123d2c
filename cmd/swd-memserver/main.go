// Command swd-memserver serves a simulated target's memory over TCP.
//
// The target is built from a register map (seeded with reset values) and,
// optionally, an MCU from the device tables so that identification by
// IDCODE and flash size works against it. Clients such as swd-regs connect
// directly or find the server through mDNS.
//
// Usage:
//
//	swd-memserver [flags]
//
// Flags:
//
//	-device string      Built-in register map (default "STM32L1")
//	-map string         Register map file (overrides -device)
//	-mcu string         MCU to simulate, e.g. STM32L151xE
//	-port int           Listen port (default 4242)
//	-listen string      Listen address (default all interfaces)
//	-log-level string   Log level: debug, info, warn, error (default "info")
//	-access-log string  Write memory accesses to a .swdlog file
//	-advertise          Advertise the server via mDNS (default true)
//	-instance string    mDNS instance name (default swdmem-<target>)
//	-interface string   Network interface for mDNS
//
// Example:
//
//	swd-memserver -mcu STM32L152xB -access-log server.swdlog
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/swdkit/swd-go/pkg/device"
	"github.com/swdkit/swd-go/pkg/discovery"
	swdlog "github.com/swdkit/swd-go/pkg/log"
	"github.com/swdkit/swd-go/pkg/memdrv"
	"github.com/swdkit/swd-go/pkg/regmap"
	"github.com/swdkit/swd-go/pkg/transport"
)

// Config holds the server configuration.
type Config struct {
	Device    string
	MapFile   string
	MCU       string
	RevID     uint16
	Port      int
	Listen    string
	LogLevel  string
	AccessLog string
	Advertise bool
	Instance  string
	Interface string
}

var (
	config Config
	revID  uint // Temp var for flag parsing
)

func init() {
	flag.StringVar(&config.Device, "device", "STM32L1", "Built-in register map: "+strings.Join(regmap.BuiltinDevices(), ", "))
	flag.StringVar(&config.MapFile, "map", "", "Register map file (overrides -device)")
	flag.StringVar(&config.MCU, "mcu", "", "MCU to simulate, e.g. STM32L151xE")
	flag.UintVar(&revID, "rev-id", 0x1000, "Revision ID reported in IDCODE when -mcu is set")
	flag.IntVar(&config.Port, "port", transport.DefaultPort, "Listen port")
	flag.StringVar(&config.Listen, "listen", "", "Listen address (default all interfaces)")
	flag.StringVar(&config.LogLevel, "log-level", "info", "Log level: debug, info, warn, error")
	flag.StringVar(&config.AccessLog, "access-log", "", "Write memory accesses to a .swdlog file")
	flag.BoolVar(&config.Advertise, "advertise", true, "Advertise the server via mDNS")
	flag.StringVar(&config.Instance, "instance", "", "mDNS instance name (default swdmem-<target>)")
	flag.StringVar(&config.Interface, "interface", "", "Network interface for mDNS")
}

func main() {
	flag.Parse()
	config.RevID = uint16(revID)

	setupLogging(config.LogLevel)

	log.Println("SWD Memory Server")
	log.Println("=================")

	if err := validateConfig(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	applyDefaults()

	tgt, err := buildTarget(config)
	if err != nil {
		log.Fatalf("Failed to build target: %v", err)
	}
	log.Printf("Target: %s", tgt.Name)
	if tgt.MCU != nil {
		log.Printf("MCU: %s (dev_id 0x%03x, %d KiB flash)", tgt.MCU.Name, tgt.MCU.DevID, tgt.MCU.FlashSize()/device.KiB)
	}
	log.Printf("Registers: %d", len(tgt.Registers.Names()))

	var accessLogger swdlog.Logger
	var fileLogger *swdlog.FileLogger
	slogger := newSlogger(config.LogLevel)
	if config.AccessLog != "" {
		fileLogger, err = swdlog.NewFileLogger(config.AccessLog)
		if err != nil {
			log.Fatalf("Failed to open access log: %v", err)
		}
		defer fileLogger.Close()
		accessLogger = fileLogger
		if config.LogLevel == "debug" {
			accessLogger = swdlog.NewMultiLogger(fileLogger, swdlog.NewSlogAdapter(slogger))
		}
		log.Printf("Access log: %s", config.AccessLog)
	} else if config.LogLevel == "debug" {
		accessLogger = swdlog.NewSlogAdapter(slogger)
	}

	srv, err := transport.NewServer(transport.ServerConfig{
		Address:    net.JoinHostPort(config.Listen, fmt.Sprint(config.Port)),
		Driver:     tgt.Sim,
		Target:     tgt.Name,
		Logger:     accessLogger,
		SlogLogger: slogger,
		OnConnect: func(conn *transport.ServerConn) {
			log.Printf("[EVENT] Client connected: %s (%s)", conn.RemoteAddr(), shortID(conn.ConnID()))
		},
		OnDisconnect: func(conn *transport.ServerConn) {
			log.Printf("[EVENT] Client disconnected: %s (%d requests)", conn.RemoteAddr(), conn.Requests())
		},
		OnError: func(conn *transport.ServerConn, err error) {
			log.Printf("[EVENT] Connection error: %v", err)
		},
	})
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := srv.Start(ctx); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
	log.Printf("Listening on %s", srv.Addr())

	var adv *discovery.MDNSAdvertiser
	if config.Advertise {
		adv, err = advertise(ctx, tgt, srv.Addr())
		if err != nil {
			log.Printf("Warning: mDNS advertisement failed: %v", err)
		} else {
			log.Printf("Advertising %s", discovery.ServiceType)
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh

	log.Printf("Received signal: %v", sig)
	log.Println("Shutting down...")

	if adv != nil {
		adv.Stop()
	}
	if err := srv.Stop(); err != nil {
		log.Printf("Error stopping server: %v", err)
	}
	printStats(tgt.Sim.Stats())

	log.Println("Goodbye!")
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

func newSlogger(level string) *slog.Logger {
	var l slog.Level
	switch level {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}

func validateConfig() error {
	if config.Port < 0 || config.Port > 65535 {
		return fmt.Errorf("port must be 0-65535, got %d", config.Port)
	}
	switch config.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level: %s", config.LogLevel)
	}
	if config.MapFile == "" && config.Device == "" {
		return errors.New("either -device or -map is required")
	}
	if config.Instance != "" {
		if err := discovery.ValidateInstanceName(config.Instance); err != nil {
			return err
		}
	}
	return nil
}

func applyDefaults() {
	config.Device = strings.ToUpper(config.Device)
}

func advertise(ctx context.Context, tgt *Target, addr net.Addr) (*discovery.MDNSAdvertiser, error) {
	tcp, ok := addr.(*net.TCPAddr)
	if !ok {
		return nil, fmt.Errorf("unexpected listen address %v", addr)
	}
	info := &discovery.ServerInfo{
		Instance: config.Instance,
		Port:     uint16(tcp.Port),
		Target:   tgt.Name,
	}
	if tgt.MCU != nil {
		info.MCU = tgt.MCU.Name
	}
	advConfig := discovery.DefaultAdvertiserConfig()
	advConfig.Interface = config.Interface
	return discovery.Advertise(ctx, info, advConfig)
}

func printStats(s memdrv.Stats) {
	log.Printf("Driver calls: %d (ReadMem %d, WriteMem %d, GetMem32 %d, SetMem32 %d)",
		s.Total(), s.ReadMem, s.WriteMem, s.GetMem32, s.SetMem32)
}

func shortID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}
