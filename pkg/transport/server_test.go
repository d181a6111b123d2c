package transport

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swdkit/swd-go/pkg/bitfield"
	"github.com/swdkit/swd-go/pkg/log"
	"github.com/swdkit/swd-go/pkg/memdrv"
	"github.com/swdkit/swd-go/pkg/wire"
)

func newTestSim() *memdrv.Sim {
	return memdrv.NewSim(
		memdrv.Region{Name: "SRAM", Address: 0x20000000, Size: 0x4000},
		memdrv.Region{Name: "PERIPH", Address: 0x40000000, Size: 0x30000},
	)
}

func startServer(t *testing.T, drv bitfield.MemoryDriver, logger log.Logger) *Server {
	t.Helper()
	server, err := NewServer(ServerConfig{
		Address: "127.0.0.1:0",
		Driver:  drv,
		Target:  "sim",
		Logger:  logger,
	})
	require.NoError(t, err)
	require.NoError(t, server.Start(context.Background()))
	t.Cleanup(func() { _ = server.Stop() })
	return server
}

func dialServer(t *testing.T, server *Server) *Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	client, err := Dial(ctx, server.Addr().String(), ClientConfig{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestNewServerRequiresDriver(t *testing.T) {
	_, err := NewServer(ServerConfig{})
	assert.Error(t, err)
}

func TestServerStartTwice(t *testing.T) {
	server := startServer(t, newTestSim(), nil)
	assert.ErrorIs(t, server.Start(context.Background()), ErrServerRunning)
}

func TestServerRejectsInvalidRequest(t *testing.T) {
	server := startServer(t, newTestSim(), nil)

	conn, err := net.Dial("tcp", server.Addr().String())
	require.NoError(t, err)
	defer conn.Close()
	framer := NewFramer(conn, 0)

	// Marshal directly to bypass client-side validation.
	data, err := wire.Marshal(&wire.Request{MessageID: 7, Operation: 9, Address: 0x20000000})
	require.NoError(t, err)
	require.NoError(t, framer.WriteFrame(data))

	payload, err := framer.ReadFrame()
	require.NoError(t, err)
	resp, err := wire.DecodeResponse(payload)
	require.NoError(t, err)

	assert.Equal(t, uint32(7), resp.MessageID)
	assert.Equal(t, wire.StatusInvalidRequest, resp.Status)
	assert.NotEmpty(t, resp.Message)

	// The connection stays usable.
	data, err = wire.EncodeRequest(&wire.Request{MessageID: 8, Operation: wire.OpGetMem32, Address: 0x20000000})
	require.NoError(t, err)
	require.NoError(t, framer.WriteFrame(data))
	payload, err = framer.ReadFrame()
	require.NoError(t, err)
	resp, err = wire.DecodeResponse(payload)
	require.NoError(t, err)
	assert.True(t, resp.IsSuccess())
}

func TestServerConnectionTracking(t *testing.T) {
	connected := make(chan string, 1)
	server, err := NewServer(ServerConfig{
		Address:   "127.0.0.1:0",
		Driver:    newTestSim(),
		OnConnect: func(c *ServerConn) { connected <- c.ConnID() },
	})
	require.NoError(t, err)
	require.NoError(t, server.Start(context.Background()))

	client := dialServer(t, server)

	select {
	case id := <-connected:
		assert.NotEmpty(t, id)
	case <-time.After(2 * time.Second):
		t.Fatal("OnConnect not called")
	}
	assert.Equal(t, 1, server.ConnectionCount())

	require.NoError(t, server.Stop())
	assert.Equal(t, 0, server.ConnectionCount())

	_, err = client.GetMem32(0x20000000)
	assert.Error(t, err)
}

func TestServerStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	server, err := NewServer(ServerConfig{Address: "127.0.0.1:0", Driver: newTestSim()})
	require.NoError(t, err)
	require.NoError(t, server.Start(ctx))
	addr := server.Addr().String()

	cancel()
	require.Eventually(t, func() bool {
		conn, err := net.DialTimeout("tcp", addr, 100*time.Millisecond)
		if err != nil {
			return true
		}
		conn.Close()
		return false
	}, 2*time.Second, 20*time.Millisecond)
	assert.NoError(t, server.Stop())
}

func TestServerLogsAccesses(t *testing.T) {
	logger := &capturingLogger{}
	server := startServer(t, newTestSim(), logger)
	client := dialServer(t, server)

	require.NoError(t, client.SetMem32(0x20000000, 0xdeadbeef))
	_, err := client.GetMem32(0x20000002)
	require.Error(t, err)

	var wireEvents []log.Event
	for _, e := range logger.Events() {
		if e.Layer == log.LayerWire {
			wireEvents = append(wireEvents, e)
		}
	}
	require.Len(t, wireEvents, 2)

	set := wireEvents[0].Access
	require.NotNil(t, set)
	assert.Equal(t, wire.OpSetMem32, set.Operation)
	assert.Equal(t, log.DirectionOut, wireEvents[0].Direction)
	require.NotNil(t, set.Value)
	assert.Equal(t, uint32(0xdeadbeef), *set.Value)
	require.NotNil(t, set.Status)
	assert.Equal(t, wire.StatusSuccess, *set.Status)

	get := wireEvents[1].Access
	require.NotNil(t, get)
	require.NotNil(t, get.Status)
	assert.Equal(t, wire.StatusAlignment, *get.Status)
	assert.Nil(t, get.Value)
	assert.Equal(t, "sim", wireEvents[1].Target)
	assert.NotEmpty(t, wireEvents[1].RemoteAddr)
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		err    error
		status wire.Status
	}{
		{nil, wire.StatusSuccess},
		{memdrv.ErrAccessFault, wire.StatusAccessFault},
		{memdrv.ErrAlignment, wire.StatusAlignment},
		{memdrv.ErrTooLarge, wire.StatusTooLarge},
		{memdrv.ErrEmptyTransfer, wire.StatusInvalidRequest},
		{errors.New("probe unplugged"), wire.StatusInternal},
	}
	for _, tt := range tests {
		t.Run(tt.status.String(), func(t *testing.T) {
			assert.Equal(t, tt.status, StatusFor(tt.err))

			back := ErrorFor(tt.status, "detail")
			if tt.err == nil {
				assert.NoError(t, back)
				return
			}
			assert.ErrorIs(t, back, ErrRemote)
			if tt.status == wire.StatusAccessFault || tt.status == wire.StatusAlignment || tt.status == wire.StatusTooLarge {
				assert.ErrorIs(t, back, tt.err)
			}
			assert.Contains(t, back.Error(), "detail")
		})
	}
}
