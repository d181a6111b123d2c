package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/swdkit/swd-go/pkg/bitfield"
	"github.com/swdkit/swd-go/pkg/log"
	"github.com/swdkit/swd-go/pkg/memdrv"
	"github.com/swdkit/swd-go/pkg/wire"
)

// ClientConfig configures a memory client.
type ClientConfig struct {
	// MaxMessageSize is the maximum frame size (default: 4 KB).
	MaxMessageSize uint32

	// ConnectTimeout bounds the dial when ctx has no deadline (default: 10s).
	ConnectTimeout time.Duration

	// RequestTimeout bounds each request/response exchange (default: 5s).
	RequestTimeout time.Duration

	// Logger captures frames (optional).
	Logger log.Logger

	// Target names the remote device in log events.
	Target string
}

func (c *ClientConfig) applyDefaults() {
	if c.MaxMessageSize == 0 {
		c.MaxMessageSize = DefaultMaxMessageSize
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = 10 * time.Second
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = 5 * time.Second
	}
}

// Client is a MemoryDriver backed by a remote Server. Transfers longer
// than wire.MaxTransferSize are split into several requests. Like any
// MemoryDriver it is meant for a single owner, but calls are serialized
// so concurrent use is safe.
type Client struct {
	config    ClientConfig
	conn      net.Conn
	framer    *Framer
	sessionID string

	mu     sync.Mutex
	nextID uint32
	closed atomic.Bool
}

// Dial connects to a memory server.
func Dial(ctx context.Context, address string, config ClientConfig) (*Client, error) {
	config.applyDefaults()

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, config.ConnectTimeout)
		defer cancel()
	}

	dialer := &net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("dial failed: %w", err)
	}
	return newClient(conn, config), nil
}

// newClient wraps an established connection.
func newClient(conn net.Conn, config ClientConfig) *Client {
	config.applyDefaults()
	c := &Client{
		config:    config,
		conn:      conn,
		framer:    NewFramer(conn, config.MaxMessageSize),
		sessionID: uuid.New().String(),
	}
	if config.Logger != nil {
		c.framer.SetLogger(config.Logger, c.sessionID, config.Target)
	}
	return c
}

// SessionID returns the ID stamped on this client's log events.
func (c *Client) SessionID() string { return c.sessionID }

// RemoteAddr returns the server address.
func (c *Client) RemoteAddr() net.Addr { return c.conn.RemoteAddr() }

// Close closes the connection.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	return c.conn.Close()
}

// ReadMem implements bitfield.MemoryDriver.
func (c *Client) ReadMem(address, size uint32) ([]byte, error) {
	if size == 0 {
		return nil, fmt.Errorf("%w at 0x%08x", memdrv.ErrEmptyTransfer, address)
	}
	out := make([]byte, 0, size)
	for done := uint32(0); done < size; {
		n := min(size-done, wire.MaxTransferSize)
		resp, err := c.roundTrip(&wire.Request{
			Operation: wire.OpReadMem,
			Address:   address + done,
			Size:      n,
		})
		if err != nil {
			return nil, err
		}
		if uint32(len(resp.Data)) != n {
			return nil, shortRead(address+done, len(resp.Data), int(n))
		}
		out = append(out, resp.Data...)
		done += n
	}
	return out, nil
}

// WriteMem implements bitfield.MemoryDriver.
func (c *Client) WriteMem(address uint32, data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("%w at 0x%08x", memdrv.ErrEmptyTransfer, address)
	}
	for done := 0; done < len(data); {
		n := min(len(data)-done, wire.MaxTransferSize)
		if _, err := c.roundTrip(&wire.Request{
			Operation: wire.OpWriteMem,
			Address:   address + uint32(done),
			Data:      data[done : done+n],
		}); err != nil {
			return err
		}
		done += n
	}
	return nil
}

// GetMem32 implements bitfield.MemoryDriver.
func (c *Client) GetMem32(address uint32) (uint32, error) {
	resp, err := c.roundTrip(&wire.Request{Operation: wire.OpGetMem32, Address: address})
	if err != nil {
		return 0, err
	}
	return resp.Value, nil
}

// SetMem32 implements bitfield.MemoryDriver.
func (c *Client) SetMem32(address, value uint32) error {
	_, err := c.roundTrip(&wire.Request{Operation: wire.OpSetMem32, Address: address, Value: value})
	return err
}

// roundTrip sends req and waits for its response. Any I/O failure leaves
// the stream in an unknown state, so the connection is closed.
func (c *Client) roundTrip(req *wire.Request) (*wire.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return nil, ErrConnectionClosed
	}

	c.nextID++
	if c.nextID == 0 {
		c.nextID = 1
	}
	req.MessageID = c.nextID

	data, err := wire.EncodeRequest(req)
	if err != nil {
		return nil, err
	}

	if err := c.conn.SetDeadline(time.Now().Add(c.config.RequestTimeout)); err != nil {
		return nil, c.fail(err)
	}
	if err := c.framer.WriteFrame(data); err != nil {
		return nil, c.fail(err)
	}
	payload, err := c.framer.ReadFrame()
	if err != nil {
		return nil, c.fail(err)
	}

	resp, err := wire.DecodeResponse(payload)
	if err != nil {
		return nil, c.fail(err)
	}
	if resp.MessageID != req.MessageID {
		return nil, c.fail(fmt.Errorf("%w: id %d, expected %d", ErrUnexpectedResponse, resp.MessageID, req.MessageID))
	}
	if !resp.IsSuccess() {
		return nil, ErrorFor(resp.Status, resp.Message)
	}
	return resp, nil
}

func (c *Client) fail(err error) error {
	_ = c.Close()
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return err
}

// Compile-time interface satisfaction check.
var _ bitfield.MemoryDriver = (*Client)(nil)
