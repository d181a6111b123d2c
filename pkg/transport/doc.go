// Package transport carries memory accesses over TCP.
//
// A Server exposes any bitfield.MemoryDriver to network clients. A Client
// implements bitfield.MemoryDriver by forwarding each call to a Server, so
// registers on a remote target are driven exactly like local ones:
//
//	client, err := transport.Dial(ctx, "127.0.0.1:4242", transport.ClientConfig{})
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//	reg, err := bitfield.NewCachedBitfield("IDCODE", set, client, 0xe0042000)
//
// # Protocol Stack
//
//	┌────────────────────────────────┐
//	│   CBOR Request / Response      │
//	├────────────────────────────────┤
//	│   Length-Prefix Framing (4B)   │
//	├────────────────────────────────┤
//	│           TCP                  │
//	└────────────────────────────────┘
//
// Requests on one connection are answered in order. A Client issues one
// request at a time; the server serializes driver calls across connections
// because drivers are not required to be safe for concurrent use.
package transport
