package transport

import (
	"bytes"
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swdkit/swd-go/pkg/bitfield"
	"github.com/swdkit/swd-go/pkg/memdrv"
)

func TestClientRoundTrip(t *testing.T) {
	sim := newTestSim()
	client := dialServer(t, startServer(t, sim, nil))

	require.NoError(t, client.SetMem32(0x20000000, 0x11223344))
	v, err := client.GetMem32(0x20000000)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x11223344), v)

	require.NoError(t, client.WriteMem(0x20000011, []byte{0xaa, 0xbb}))
	data, err := client.ReadMem(0x20000010, 4)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0xaa, 0xbb, 0x00}, data)

	assert.Equal(t, uint32(0x11223344), sim.PeekWord(0x20000000))
}

func TestClientSplitsLargeTransfers(t *testing.T) {
	sim := newTestSim()
	client := dialServer(t, startServer(t, sim, nil))

	payload := bytes.Repeat([]byte{0x5a, 0xa5, 0x0f}, 1000)
	require.NoError(t, client.WriteMem(0x20000000, payload))
	got, err := client.ReadMem(0x20000000, uint32(len(payload)))
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	stats := sim.Stats()
	assert.Equal(t, 3, stats.WriteMem)
	assert.Equal(t, 3, stats.ReadMem)
}

func TestClientRemoteErrors(t *testing.T) {
	client := dialServer(t, startServer(t, newTestSim(), nil))

	_, err := client.GetMem32(0x20000002)
	assert.ErrorIs(t, err, memdrv.ErrAlignment)
	assert.ErrorIs(t, err, ErrRemote)

	err = client.SetMem32(0x30000000, 1)
	assert.ErrorIs(t, err, memdrv.ErrAccessFault)

	// Remote failures leave the connection usable.
	_, err = client.GetMem32(0x20000000)
	assert.NoError(t, err)
}

func TestClientEmptyTransfers(t *testing.T) {
	sim := newTestSim()
	client := dialServer(t, startServer(t, sim, nil))

	_, err := client.ReadMem(0x20000000, 0)
	assert.ErrorIs(t, err, memdrv.ErrEmptyTransfer)
	assert.ErrorIs(t, client.WriteMem(0x20000000, nil), memdrv.ErrEmptyTransfer)
	assert.Equal(t, 0, sim.Stats().Total())
}

func TestClientTimeout(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := listener.Accept()
		if err == nil {
			accepted <- conn
		}
	}()

	client, err := Dial(context.Background(), listener.Addr().String(), ClientConfig{RequestTimeout: 50 * time.Millisecond})
	require.NoError(t, err)
	defer client.Close()

	_, err = client.GetMem32(0x20000000)
	assert.ErrorIs(t, err, ErrTimeout)

	_, err = client.GetMem32(0x20000000)
	assert.ErrorIs(t, err, ErrConnectionClosed)

	select {
	case conn := <-accepted:
		conn.Close()
	case <-time.After(time.Second):
	}
}

func TestClientDrivesCachedBitfield(t *testing.T) {
	sim := newTestSim()
	sim.LoadWord(0x40023c00, 0x00000012)
	client := dialServer(t, startServer(t, sim, nil))

	set := bitfield.MustFieldSet(32, []bitfield.FieldSpec{
		bitfield.F("LATENCY", 1),
		bitfield.F("PRFTEN", 1),
		bitfield.F("ACC64", 1),
		bitfield.Pad(29),
	})
	reg, err := bitfield.NewCachedBitfield("FLASH_ACR", set, client, 0x40023c00)
	require.NoError(t, err)

	v, err := reg.Get("PRFTEN")
	require.NoError(t, err)
	assert.Equal(t, uint32(1), v)

	view, err := reg.Cached()
	require.NoError(t, err)
	require.NoError(t, view.Set("ACC64", 1))
	require.NoError(t, view.Set("LATENCY", 1))
	require.NoError(t, reg.WriteCache())

	assert.Equal(t, uint32(0x17), sim.PeekWord(0x40023c00))
}

func TestClientClose(t *testing.T) {
	client := dialServer(t, startServer(t, newTestSim(), nil))
	require.NoError(t, client.Close())
	require.NoError(t, client.Close())

	err := client.SetMem32(0x20000000, 1)
	assert.ErrorIs(t, err, ErrConnectionClosed)
}
