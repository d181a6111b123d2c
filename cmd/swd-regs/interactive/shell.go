// Package interactive provides the register console of swd-regs.
package interactive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/chzyer/readline"

	"github.com/swdkit/swd-go/pkg/bitfield"
	"github.com/swdkit/swd-go/pkg/device"
	"github.com/swdkit/swd-go/pkg/regmap"
)

// ErrUsage indicates a command called with the wrong arguments.
var ErrUsage = errors.New("usage")

// Shell runs register commands against one target. Registers are opened on
// first use and keep their cache between commands.
type Shell struct {
	regs *regmap.Map
	drv  bitfield.MemoryDriver
	out  io.Writer
	open map[string]*bitfield.CachedBitfield
}

// New creates a shell writing its output to out.
func New(regs *regmap.Map, drv bitfield.MemoryDriver, out io.Writer) *Shell {
	return &Shell{
		regs: regs,
		drv:  drv,
		out:  out,
		open: make(map[string]*bitfield.CachedBitfield),
	}
}

// Run reads commands with readline until quit, EOF or ctx is done.
func (s *Shell) Run(ctx context.Context) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          strings.ToLower(s.regs.Device) + "> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete:    s.completer(),
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()

	s.out = rl.Stdout()
	s.printHelp()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		line, err := rl.Readline()
		if err != nil {
			// EOF or interrupt
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(s.out, "Exiting...")
			return nil
		}

		quit, err := s.Exec(line)
		if err != nil {
			fmt.Fprintf(s.out, "Error: %v\n", err)
		}
		if quit {
			fmt.Fprintln(s.out, "Exiting...")
			return nil
		}
	}
}

func (s *Shell) completer() *readline.PrefixCompleter {
	names := s.regs.Names()
	regItems := make([]readline.PrefixCompleterInterface, 0, len(names))
	for _, n := range names {
		regItems = append(regItems, readline.PcItem(n))
	}
	withRegs := func(cmd string) readline.PrefixCompleterInterface {
		return readline.PcItem(cmd, regItems...)
	}
	return readline.NewPrefixCompleter(
		readline.PcItem("help"),
		readline.PcItem("list"),
		readline.PcItem("dump"),
		readline.PcItem("identify"),
		readline.PcItem("quit"),
		withRegs("read"), withRegs("get"), withRegs("hex"), withRegs("write"),
		withRegs("cache"), withRegs("stage"), withRegs("flush"),
		withRegs("discard"), withRegs("raw"),
	)
}

// Exec runs one command line. quit is true for the quit command.
func (s *Shell) Exec(line string) (quit bool, err error) {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return false, nil
	}
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help", "?":
		s.printHelp()
	case "list", "ls":
		s.cmdList(args)
	case "read", "r":
		err = s.cmdRead(args)
	case "get", "g":
		err = s.cmdGet(args)
	case "hex":
		err = s.cmdHex(args)
	case "write", "w":
		err = s.cmdWrite(args)
	case "cache", "c":
		err = s.cmdCache(args)
	case "stage", "s":
		err = s.cmdStage(args)
	case "flush", "f":
		err = s.cmdFlush(args)
	case "discard", "d":
		err = s.cmdDiscard(args)
	case "raw":
		err = s.cmdRaw(args)
	case "dump":
		err = s.cmdDump()
	case "identify", "id":
		err = s.cmdIdentify()
	case "quit", "exit", "q":
		return true, nil
	default:
		return false, fmt.Errorf("unknown command: %s (type 'help' for commands)", cmd)
	}
	return false, err
}

func (s *Shell) printHelp() {
	fmt.Fprintln(s.out, `
Register Commands:
  Device access:
    list [prefix]                 - List registers
    read <reg>                    - Read and decode a register
    get <reg> <field>             - Read one field
    hex <reg> [field]             - Read a field (or the register) as hex
    write <reg> <field>=<val>...  - Read-modify-write fields
    raw <reg> [value]             - Read or write the raw register value
    dump                          - Read and decode every register
    identify                      - Identify the MCU

  Cache:
    cache <reg>                   - Show the cached value (reads once)
    stage <reg> <field>=<val>...  - Change fields in the cache only
    flush <reg>                   - Write the cache to the device
    discard <reg>                 - Drop the cache

  Other:
    help                          - Show this help
    quit                          - Exit

Values are numbers (10, 0x1f, 0b101) or value names.`)
}

// register returns the opened register, opening it on first use.
func (s *Shell) register(name string) (*bitfield.CachedBitfield, error) {
	def, err := s.regs.Register(strings.ToUpper(name))
	if err != nil {
		return nil, err
	}
	if reg, ok := s.open[def.Name]; ok {
		return reg, nil
	}
	reg, err := s.regs.Open(s.drv, def.Name)
	if err != nil {
		return nil, err
	}
	s.open[def.Name] = reg
	return reg, nil
}

func (s *Shell) cmdList(args []string) {
	prefix := ""
	if len(args) > 0 {
		prefix = strings.ToUpper(args[0])
	}
	tw := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
	for _, def := range s.regs.Registers() {
		if !strings.HasPrefix(def.Name, prefix) {
			continue
		}
		state := ""
		if reg, ok := s.open[def.Name]; ok && reg.CacheValid() {
			state = "cached"
		}
		fmt.Fprintf(tw, "%s\t0x%08x\t%d bits\t%s\t%s\n", def.Name, def.Address, def.Bits(), state, def.Description)
	}
	tw.Flush()
}

func (s *Shell) cmdRead(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: read <reg>", ErrUsage)
	}
	reg, err := s.register(args[0])
	if err != nil {
		return err
	}
	raw, err := reg.Raw()
	if err != nil {
		return err
	}
	s.describe(reg, raw)
	return nil
}

func (s *Shell) cmdGet(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("%w: get <reg> <field>", ErrUsage)
	}
	reg, err := s.register(args[0])
	if err != nil {
		return err
	}
	field := strings.ToUpper(args[1])
	v, err := reg.GetNamed(field, true)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "%s.%s = %v\n", reg.Name(), field, v)
	return nil
}

func (s *Shell) cmdHex(args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("%w: hex <reg> [field]", ErrUsage)
	}
	reg, err := s.register(args[0])
	if err != nil {
		return err
	}
	if len(args) == 1 {
		raw, err := reg.Raw()
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "%s = %s\n", reg.Name(), rawHex(raw, reg.Bits()))
		return nil
	}
	field := strings.ToUpper(args[1])
	h, err := reg.Hex(field)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "%s.%s = %s\n", reg.Name(), field, h)
	return nil
}

func (s *Shell) cmdWrite(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("%w: write <reg> <field>=<val>...", ErrUsage)
	}
	reg, err := s.register(args[0])
	if err != nil {
		return err
	}
	return s.assign(reg.Name(), &reg.Bitfield, args[1:])
}

func (s *Shell) cmdCache(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: cache <reg>", ErrUsage)
	}
	reg, err := s.register(args[0])
	if err != nil {
		return err
	}
	view, err := reg.Cached()
	if err != nil {
		return err
	}
	raw, _ := view.Raw()
	fmt.Fprint(s.out, "(cached) ")
	s.describe(reg, raw)
	return nil
}

func (s *Shell) cmdStage(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("%w: stage <reg> <field>=<val>...", ErrUsage)
	}
	reg, err := s.register(args[0])
	if err != nil {
		return err
	}
	view, err := reg.Cached()
	if err != nil {
		return err
	}
	return s.assign(reg.Name(), view, args[1:])
}

func (s *Shell) cmdFlush(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: flush <reg>", ErrUsage)
	}
	reg, err := s.register(args[0])
	if err != nil {
		return err
	}
	if err := reg.WriteCache(); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "%s written\n", reg.Name())
	return nil
}

func (s *Shell) cmdDiscard(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: discard <reg>", ErrUsage)
	}
	reg, err := s.register(args[0])
	if err != nil {
		return err
	}
	reg.DiscardCache()
	return nil
}

func (s *Shell) cmdRaw(args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("%w: raw <reg> [value]", ErrUsage)
	}
	reg, err := s.register(args[0])
	if err != nil {
		return err
	}
	if len(args) == 1 {
		raw, err := reg.Raw()
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "%s = %s\n", reg.Name(), rawHex(raw, reg.Bits()))
		return nil
	}
	v, err := strconv.ParseUint(args[1], 0, int(reg.Bits()))
	if err != nil {
		return fmt.Errorf("invalid raw value %q for %d-bit register", args[1], reg.Bits())
	}
	return reg.SetRaw(uint32(v))
}

func (s *Shell) cmdDump() error {
	for _, def := range s.regs.Registers() {
		reg, err := s.register(def.Name)
		if err != nil {
			return err
		}
		raw, err := reg.Raw()
		if err != nil {
			fmt.Fprintf(s.out, "%s @ 0x%08x: %v\n", def.Name, def.Address, err)
			continue
		}
		s.describe(reg, raw)
	}
	return nil
}

func (s *Shell) cmdIdentify() error {
	id, err := device.Identify(s.drv)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Family:  %s\n", id.Family.Name)
	fmt.Fprintf(s.out, "DEV_ID:  0x%03x\n", id.DevID)
	fmt.Fprintf(s.out, "REV_ID:  0x%04x\n", id.RevID)
	fmt.Fprintf(s.out, "Flash:   %d KiB\n", id.FlashKiB)
	names := make([]string, 0, len(id.Candidates))
	for _, m := range id.Candidates {
		names = append(names, m.Name)
	}
	fmt.Fprintf(s.out, "MCU:     %s\n", strings.Join(names, ", "))

	mcu := id.MCU()
	tw := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
	for _, r := range mcu.Memory {
		fmt.Fprintf(tw, "  %s\t%s\t0x%08x\t%d KiB\n", r.Name, r.Kind, r.Address, r.Size/device.KiB)
	}
	return tw.Flush()
}

// assign applies field=value pairs to b, one read-modify-write per field.
func (s *Shell) assign(name string, b *bitfield.Bitfield, pairs []string) error {
	values, err := parseAssignments(pairs)
	if err != nil {
		return err
	}
	fields := make([]string, 0, len(values))
	for f := range values {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	for _, f := range fields {
		if err := b.Set(f, values[f]); err != nil {
			return fmt.Errorf("%s.%s: %w", name, f, err)
		}
	}
	return nil
}

func (s *Shell) describe(reg *bitfield.CachedBitfield, raw uint32) {
	fmt.Fprintf(s.out, "%s @ 0x%08x = %s\n", reg.Name(), reg.Address(), rawHex(raw, reg.Bits()))
	tw := tabwriter.NewWriter(s.out, 0, 4, 1, ' ', 0)
	for _, fv := range reg.FieldSet().Describe(raw) {
		if fv.Label != "" {
			fmt.Fprintf(tw, "  %s\t= %s\t(%s)\n", fv.Name, fv.Label, fv.Hex)
		} else {
			fmt.Fprintf(tw, "  %s\t= %d\t(%s)\n", fv.Name, fv.Value, fv.Hex)
		}
	}
	tw.Flush()
}

// parseAssignments parses field=value pairs. Numeric values use Go literal
// syntax; anything else is passed on as a value name.
func parseAssignments(pairs []string) (map[string]any, error) {
	values := make(map[string]any, len(pairs))
	for _, p := range pairs {
		field, value, ok := strings.Cut(p, "=")
		if !ok || field == "" || value == "" {
			return nil, fmt.Errorf("%w: expected field=value, got %q", ErrUsage, p)
		}
		values[strings.ToUpper(field)] = ParseValue(value)
	}
	return values, nil
}

// ParseValue returns value as a uint32 if it is a number, else as a name.
func ParseValue(value string) any {
	if n, err := strconv.ParseUint(value, 0, 32); err == nil {
		return uint32(n)
	}
	return value
}

func rawHex(raw, bits uint32) string {
	return fmt.Sprintf("0x%0*x", int(bits+3)/4, raw)
}
