package main

import (
	"fmt"

	"github.com/swdkit/swd-go/internal/simtarget"
	"github.com/swdkit/swd-go/pkg/device"
	"github.com/swdkit/swd-go/pkg/memdrv"
	"github.com/swdkit/swd-go/pkg/regmap"
)

// Target is the simulated device being served.
type Target struct {
	Name      string
	Registers *regmap.Map
	Family    *device.Family
	MCU       *device.MCU
	Sim       *memdrv.Sim
}

// buildTarget loads the register map and MCU named in cfg and creates the
// simulator behind them.
func buildTarget(cfg Config) (*Target, error) {
	var regs *regmap.Map
	var err error
	if cfg.MapFile != "" {
		regs, err = regmap.Load(cfg.MapFile)
	} else {
		regs, err = regmap.Builtin(cfg.Device)
	}
	if err != nil {
		return nil, err
	}

	tgt := &Target{Name: regs.Device, Registers: regs}

	if cfg.MCU != "" {
		tgt.Family, tgt.MCU, err = findMCU(cfg.MCU)
		if err != nil {
			return nil, err
		}
		tgt.Name = tgt.MCU.Name
	}

	tgt.Sim, err = simtarget.New(simtarget.Config{
		Registers: regs,
		Family:    tgt.Family,
		MCU:       tgt.MCU,
		RevID:     cfg.RevID,
	})
	if err != nil {
		return nil, err
	}
	return tgt, nil
}

func findMCU(name string) (*device.Family, *device.MCU, error) {
	families, err := device.Families()
	if err != nil {
		return nil, nil, err
	}
	for _, f := range families {
		if m, ok := f.MCU(name); ok {
			return f, m, nil
		}
	}
	return nil, nil, fmt.Errorf("%w: %s", device.ErrUnknownMCU, name)
}
