// Package bitfield models memory-mapped hardware registers as named bit
// fields overlaid on a raw integer value.
//
// A FieldSet is built once from an ordered descriptor. Fields are laid out
// contiguously starting at bit 0 in descriptor order, and the widths must add
// up to the declared register width exactly:
//
//	acr := bitfield.MustFieldSet(32, []bitfield.FieldSpec{
//	    bitfield.F("LATENCY", 1, bitfield.V(0, "ZERO"), bitfield.V(1, "ONE")),
//	    bitfield.F("PRFTEN", 1),
//	    bitfield.F("ACC64", 1),
//	    bitfield.Pad(29),
//	})
//
// # Raw value sources
//
// A Bitfield binds a FieldSet to a RawStore. Value keeps the raw value in
// memory; DeviceRegister reads and writes it through a MemoryDriver.
//
// # Cached registers
//
// CachedBitfield is a device register with an explicit single-value cache.
// Point accessors (Get, GetNamed, Hex) always read the device and Set is a
// read-modify-write with one round trip. The cache is only touched through
// Cached, SetCached, DiscardCache and WriteCache, which lets a caller stage
// several field updates into a single device write:
//
//	c, err := reg.Cached()
//	if err != nil {
//	    return err
//	}
//	_ = c.Set("LATENCY", "ONE")
//	_ = c.Set("PRFTEN", true)
//	return reg.WriteCache()
//
// Nothing in this package is safe for concurrent use. A register instance has
// a single owner; callers sharing an address across goroutines must
// synchronize externally.
package bitfield
