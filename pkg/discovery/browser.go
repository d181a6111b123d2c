package discovery

import (
	"context"
	"net"
	"time"

	"github.com/enbility/zeroconf/v3"
)

// BrowserConfig configures browser behavior.
type BrowserConfig struct {
	// Interface restricts browsing to one network interface.
	// Empty string means all interfaces.
	Interface string

	// Timeout bounds Find when ctx has no deadline.
	// Default: 5 seconds.
	Timeout time.Duration
}

// DefaultBrowserConfig returns the default browser configuration.
func DefaultBrowserConfig() BrowserConfig {
	return BrowserConfig{Timeout: 5 * time.Second}
}

// FilterFunc selects services.
type FilterFunc func(*Service) bool

// ByTarget matches services advertising target.
func ByTarget(target string) FilterFunc {
	return func(s *Service) bool { return s.Target == target }
}

// MDNSBrowser finds memory servers using zeroconf.
type MDNSBrowser struct {
	config BrowserConfig
}

// NewMDNSBrowser creates a new mDNS browser.
func NewMDNSBrowser(config BrowserConfig) *MDNSBrowser {
	if config.Timeout == 0 {
		config.Timeout = DefaultBrowserConfig().Timeout
	}
	return &MDNSBrowser{config: config}
}

// Browse streams servers until ctx ends, using the default configuration.
func Browse(ctx context.Context) (<-chan *Service, error) {
	return NewMDNSBrowser(DefaultBrowserConfig()).Browse(ctx)
}

// Browse streams each newly seen server. Services are aggregated by
// instance name; later answers from other interfaces only add addresses.
// The channel closes when ctx ends.
func (b *MDNSBrowser) Browse(ctx context.Context) (<-chan *Service, error) {
	out := make(chan *Service)
	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)

	go func() {
		defer close(out)

		services := make(map[string]*Service)
		for {
			select {
			case entry, ok := <-entries:
				if !ok {
					return
				}
				svc := entryToService(entry)
				if svc == nil {
					continue
				}
				if existing, found := services[svc.Instance]; found {
					existing.Addresses = mergeAddresses(existing.Addresses, svc.Addresses)
					continue
				}
				services[svc.Instance] = svc
				select {
				case out <- svc:
				case <-ctx.Done():
					return
				}

			case entry, ok := <-removed:
				if !ok {
					continue
				}
				if existing, found := services[entry.Instance]; found {
					existing.Addresses = removeAddresses(existing.Addresses, entryAddresses(entry))
					if len(existing.Addresses) == 0 {
						delete(services, entry.Instance)
					}
				}

			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		_ = zeroconf.Browse(ctx, ServiceType, Domain, entries, removed, b.options()...)
	}()

	return out, nil
}

// Find returns the first server accepted by filter.
func (b *MDNSBrowser) Find(ctx context.Context, filter FilterFunc) (*Service, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.config.Timeout)
		defer cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	services, err := b.Browse(ctx)
	if err != nil {
		return nil, err
	}
	for svc := range services {
		if filter == nil || filter(svc) {
			return svc, nil
		}
	}
	return nil, ErrNotFound
}

func (b *MDNSBrowser) options() []zeroconf.ClientOption {
	var opts []zeroconf.ClientOption
	if b.config.Interface != "" {
		if iface, err := net.InterfaceByName(b.config.Interface); err == nil {
			opts = append(opts, zeroconf.SelectIfaces([]net.Interface{*iface}))
		}
	}
	return opts
}

func entryToService(entry *zeroconf.ServiceEntry) *Service {
	return newService(entry.Instance, entry.HostName, entry.Port, entry.Text, entryAddresses(entry))
}

// newService builds a Service from a resolved answer. Answers with an
// invalid TXT record yield nil.
func newService(instance, host string, port int, text, addrs []string) *Service {
	target, mcu, version, err := DecodeServerTXT(StringsToTXTRecords(text))
	if err != nil {
		return nil
	}
	return &Service{
		Instance:  instance,
		Host:      host,
		Port:      uint16(port),
		Addresses: addrs,
		Target:    target,
		MCU:       mcu,
		Version:   version,
	}
}

func entryAddresses(entry *zeroconf.ServiceEntry) []string {
	addrs := make([]string, 0, len(entry.AddrIPv4)+len(entry.AddrIPv6))
	for _, ip := range entry.AddrIPv4 {
		addrs = append(addrs, ip.String())
	}
	for _, ip := range entry.AddrIPv6 {
		addrs = append(addrs, ip.String())
	}
	return addrs
}

// mergeAddresses adds new addresses to existing list, avoiding duplicates.
func mergeAddresses(existing, added []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, addr := range existing {
		seen[addr] = true
	}
	for _, addr := range added {
		if !seen[addr] {
			existing = append(existing, addr)
			seen[addr] = true
		}
	}
	return existing
}

// removeAddresses drops gone addresses from the list.
func removeAddresses(addresses, gone []string) []string {
	drop := make(map[string]bool, len(gone))
	for _, addr := range gone {
		drop[addr] = true
	}
	result := make([]string, 0, len(addresses))
	for _, addr := range addresses {
		if !drop[addr] {
			result = append(result, addr)
		}
	}
	return result
}
