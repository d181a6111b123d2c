package discovery

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/enbility/zeroconf/v3"
)

// Advertiser publishes a memory server on the network.
type Advertiser interface {
	// Advertise starts advertising info, replacing any earlier advertisement.
	Advertise(ctx context.Context, info *ServerInfo) error

	// Update replaces the TXT record of the running advertisement.
	Update(info *ServerInfo) error

	// Stop withdraws the advertisement.
	Stop()
}

// AdvertiserConfig configures advertiser behavior.
type AdvertiserConfig struct {
	// Interface specifies which network interface to use.
	// Empty string means all interfaces.
	Interface string

	// TTL is the DNS record TTL.
	// Default: 120 seconds.
	TTL time.Duration
}

// DefaultAdvertiserConfig returns the default advertiser configuration.
func DefaultAdvertiserConfig() AdvertiserConfig {
	return AdvertiserConfig{TTL: 120 * time.Second}
}

// MDNSAdvertiser implements Advertiser using zeroconf.
type MDNSAdvertiser struct {
	config AdvertiserConfig

	mu     sync.Mutex
	server *zeroconf.Server
	stop   context.CancelFunc
}

// NewMDNSAdvertiser creates a new mDNS advertiser.
func NewMDNSAdvertiser(config AdvertiserConfig) *MDNSAdvertiser {
	return &MDNSAdvertiser{config: config}
}

// Advertise registers a server and keeps it registered until Stop is
// called or ctx ends.
func Advertise(ctx context.Context, info *ServerInfo, config AdvertiserConfig) (*MDNSAdvertiser, error) {
	a := NewMDNSAdvertiser(config)
	if err := a.Advertise(ctx, info); err != nil {
		return nil, err
	}
	return a, nil
}

// Advertise implements Advertiser.
func (a *MDNSAdvertiser) Advertise(ctx context.Context, info *ServerInfo) error {
	if info.Target == "" {
		return fmt.Errorf("%w: target", ErrMissingRequired)
	}
	if info.Port == 0 {
		return fmt.Errorf("%w: port", ErrMissingRequired)
	}
	instance := InstanceName(info)
	if err := ValidateInstanceName(instance); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.shutdownLocked()

	var opts []zeroconf.ServerOption
	if a.config.TTL > 0 {
		opts = append(opts, zeroconf.TTL(uint32(a.config.TTL.Seconds())))
	}

	server, err := zeroconf.Register(
		instance,
		ServiceType,
		Domain,
		int(info.Port),
		TXTRecordsToStrings(EncodeServerTXT(info)),
		a.interfaces(),
		opts...,
	)
	if err != nil {
		return fmt.Errorf("failed to register service: %w", err)
	}
	a.server = server

	ctx, cancel := context.WithCancel(ctx)
	a.stop = cancel
	go func() {
		<-ctx.Done()
		a.mu.Lock()
		defer a.mu.Unlock()
		if a.server == server {
			a.shutdownLocked()
		}
	}()
	return nil
}

// Update implements Advertiser.
func (a *MDNSAdvertiser) Update(info *ServerInfo) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server == nil {
		return ErrNotAdvertising
	}
	a.server.SetText(TXTRecordsToStrings(EncodeServerTXT(info)))
	return nil
}

// Stop implements Advertiser.
func (a *MDNSAdvertiser) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.shutdownLocked()
}

func (a *MDNSAdvertiser) shutdownLocked() {
	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}
	if a.stop != nil {
		a.stop()
		a.stop = nil
	}
}

// interfaces returns the network interfaces to advertise on, or nil for all.
func (a *MDNSAdvertiser) interfaces() []net.Interface {
	if a.config.Interface == "" {
		return nil
	}
	iface, err := net.InterfaceByName(a.config.Interface)
	if err != nil {
		return nil
	}
	return []net.Interface{*iface}
}

// Ensure MDNSAdvertiser implements Advertiser interface.
var _ Advertiser = (*MDNSAdvertiser)(nil)
