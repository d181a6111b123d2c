// Package wire defines the CBOR wire format of the remote memory-access
// protocol.
//
// A client sends a Request naming one of four memory operations and the
// server answers with a Response carrying the same message ID. Maps use
// integer keys for compactness. Messages are carried in length-prefixed
// frames by the transport package.
//
// # Operations
//
//   - ReadMem:  read Size bytes at Address, answered with Data
//   - WriteMem: write Data at Address
//   - GetMem32: read one aligned word at Address, answered with Value
//   - SetMem32: write Value to one aligned word at Address
package wire
