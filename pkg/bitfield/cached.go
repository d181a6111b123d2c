package bitfield

import "fmt"

// CachedBitfield is a named device register with a single-value cache.
//
// The embedded Bitfield accessors (Raw, SetRaw, Get, GetNamed, Hex, Set,
// SetBits, Describe) go straight to the device and never read or update the
// cache. The cache is populated by Cached or SetCached, dropped by
// DiscardCache and flushed by WriteCache.
type CachedBitfield struct {
	Bitfield

	name  string
	reg   *DeviceRegister
	cache *Value
	view  *Bitfield
}

// NewCachedBitfield binds set to the register at address on drv. The cache
// starts out invalid.
func NewCachedBitfield(name string, set *FieldSet, drv MemoryDriver, address uint32) (*CachedBitfield, error) {
	if set == nil {
		return nil, fmt.Errorf("%w: register %s has no field set", ErrConfiguration, name)
	}
	reg, err := NewDeviceRegister(drv, address, set.Bits())
	if err != nil {
		return nil, fmt.Errorf("register %s: %w", name, err)
	}
	cache := &Value{}
	return &CachedBitfield{
		Bitfield: Bitfield{set: set, store: reg},
		name:     name,
		reg:      reg,
		cache:    cache,
		view:     NewWithStore(set, cache),
	}, nil
}

// Name returns the register name.
func (c *CachedBitfield) Name() string { return c.name }

// Address returns the register address.
func (c *CachedBitfield) Address() uint32 { return c.reg.Address() }

// Bits returns the register width.
func (c *CachedBitfield) Bits() uint32 { return c.set.Bits() }

// Cached returns the cached view of the register, reading the device first
// if the cache is invalid. Changes made through the returned Bitfield stay in
// the cache until WriteCache.
func (c *CachedBitfield) Cached() (*Bitfield, error) {
	if !c.cache.Valid() {
		raw, err := c.reg.Load()
		if err != nil {
			return nil, err
		}
		c.cache.set(raw)
	}
	return c.view, nil
}

// SetCached replaces the cached raw value without touching the device.
func (c *CachedBitfield) SetCached(raw uint32) {
	c.cache.set(raw)
}

// CacheValid reports whether the cache holds a value.
func (c *CachedBitfield) CacheValid() bool { return c.cache.Valid() }

// DiscardCache invalidates the cache.
func (c *CachedBitfield) DiscardCache() { c.cache.Clear() }

// WriteCache writes the cached value to the device. The cache stays valid.
func (c *CachedBitfield) WriteCache() error {
	raw, err := c.cache.Load()
	if err != nil {
		return fmt.Errorf("register %s: %w", c.name, ErrCacheNotValid)
	}
	return c.reg.Store(raw)
}
