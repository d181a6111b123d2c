package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/swdkit/swd-go/internal/simtarget"
	"github.com/swdkit/swd-go/pkg/bitfield"
	"github.com/swdkit/swd-go/pkg/device"
	"github.com/swdkit/swd-go/pkg/discovery"
	"github.com/swdkit/swd-go/pkg/log"
	"github.com/swdkit/swd-go/pkg/memdrv"
	"github.com/swdkit/swd-go/pkg/regmap"
	"github.com/swdkit/swd-go/pkg/transport"
)

// Session is an open target with its register map.
type Session struct {
	Registers *regmap.Map
	Driver    bitfield.MemoryDriver

	// Source describes where Driver leads.
	Source string

	closers []func() error
}

// Close releases the connection and access log.
func (s *Session) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	s.closers = nil
	return errors.Join(errs...)
}

// abort closes a half-opened session and returns err joined with any
// close failure.
func (s *Session) abort(err error) error {
	return errors.Join(err, s.Close())
}

// openSession loads the register map and connects to the target named by
// cfg.
func openSession(ctx context.Context, cfg Config) (*Session, error) {
	regs, err := loadRegisters(cfg)
	if err != nil {
		return nil, err
	}
	sess := &Session{Registers: regs}

	var logger log.Logger
	if cfg.AccessLog != "" {
		fl, err := log.NewFileLogger(cfg.AccessLog)
		if err != nil {
			return nil, fmt.Errorf("failed to open access log: %w", err)
		}
		sess.closers = append(sess.closers, fl.Close)
		logger = fl
	}

	drv, err := sess.connect(ctx, cfg, regs, logger)
	if err != nil {
		return nil, sess.abort(err)
	}
	if logger != nil {
		drv = memdrv.NewLogged(drv, logger, regs.Device)
	}
	sess.Driver = drv
	return sess, nil
}

func (s *Session) connect(ctx context.Context, cfg Config, regs *regmap.Map, logger log.Logger) (bitfield.MemoryDriver, error) {
	address := cfg.Connect
	switch {
	case cfg.Discover:
		svc, err := discover(ctx, cfg, regs.Device)
		if err != nil {
			return nil, err
		}
		address = svc.Address()
		s.Source = fmt.Sprintf("%s (%s)", svc.Instance, address)
	case address != "":
		s.Source = address
	default:
		sim, err := newSim(cfg, regs)
		if err != nil {
			return nil, err
		}
		s.Source = "simulator"
		return sim, nil
	}

	client, err := transport.Dial(ctx, address, transport.ClientConfig{
		ConnectTimeout: cfg.Timeout,
		RequestTimeout: cfg.Timeout,
		Logger:         logger,
		Target:         regs.Device,
	})
	if err != nil {
		return nil, err
	}
	s.closers = append(s.closers, client.Close)
	return client, nil
}

func loadRegisters(cfg Config) (*regmap.Map, error) {
	if cfg.MapFile != "" {
		return regmap.Load(cfg.MapFile)
	}
	return regmap.Builtin(cfg.Device)
}

// discover finds a server advertising target, directly or through an MCU
// of that family.
func discover(ctx context.Context, cfg Config, target string) (*discovery.Service, error) {
	browser := discovery.NewMDNSBrowser(discovery.BrowserConfig{
		Interface: cfg.Interface,
		Timeout:   cfg.Timeout,
	})
	svc, err := browser.Find(ctx, func(s *discovery.Service) bool {
		return s.Target == target || s.MCU != "" && mcuFamily(s.MCU) == target
	})
	if err != nil {
		return nil, fmt.Errorf("no memory server for %s: %w", target, err)
	}
	return svc, nil
}

// mcuFamily returns the family of a part number, or "" if unknown.
func mcuFamily(mcu string) string {
	families, err := device.Families()
	if err != nil {
		return ""
	}
	for _, f := range families {
		if _, ok := f.MCU(mcu); ok {
			return f.Name
		}
	}
	return ""
}

func newSim(cfg Config, regs *regmap.Map) (*memdrv.Sim, error) {
	simCfg := simtarget.Config{Registers: regs}
	if cfg.MCU != "" {
		families, err := device.Families()
		if err != nil {
			return nil, err
		}
		for _, f := range families {
			if m, ok := f.MCU(cfg.MCU); ok {
				simCfg.Family, simCfg.MCU = f, m
				break
			}
		}
		if simCfg.MCU == nil {
			return nil, fmt.Errorf("%w: %s", device.ErrUnknownMCU, cfg.MCU)
		}
	}
	return simtarget.New(simCfg)
}
