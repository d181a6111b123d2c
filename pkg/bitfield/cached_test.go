package bitfield

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// stubDriver is a scripted MemoryDriver.
type stubDriver struct{ mock.Mock }

func (d *stubDriver) ReadMem(address, size uint32) ([]byte, error) {
	ret := d.Called(address, size)
	var data []byte
	if ret.Get(0) != nil {
		data = ret.Get(0).([]byte)
	}
	return data, ret.Error(1)
}

func (d *stubDriver) WriteMem(address uint32, data []byte) error {
	return d.Called(address, data).Error(0)
}

func (d *stubDriver) GetMem32(address uint32) (uint32, error) {
	ret := d.Called(address)
	return ret.Get(0).(uint32), ret.Error(1)
}

func (d *stubDriver) SetMem32(address, value uint32) error {
	return d.Called(address, value).Error(0)
}

const regAddr = 0x40023c00

func newCached(t *testing.T, drv MemoryDriver) *CachedBitfield {
	t.Helper()
	c, err := NewCachedBitfield("ACR", scenarioSet(t), drv, regAddr)
	require.NoError(t, err)
	return c
}

func TestCachedBitfieldIdentity(t *testing.T) {
	c := newCached(t, &stubDriver{})

	assert.Equal(t, "ACR", c.Name())
	assert.Equal(t, uint32(regAddr), c.Address())
	assert.Equal(t, uint32(32), c.Bits())
	assert.False(t, c.CacheValid(), "cache starts invalid")
}

func TestCachedBitfieldReadThrough(t *testing.T) {
	drv := &stubDriver{}
	drv.On("GetMem32", uint32(regAddr)).Return(uint32(0x12), nil)
	c := newCached(t, drv)

	view, err := c.Cached()
	require.NoError(t, err)
	a, _ := view.Get("A")
	assert.Equal(t, uint32(2), a)
	drv.AssertNumberOfCalls(t, "GetMem32", 1)

	_, err = c.Cached()
	require.NoError(t, err)
	drv.AssertNumberOfCalls(t, "GetMem32", 1)

	c.DiscardCache()
	assert.False(t, c.CacheValid())
	drv.AssertNumberOfCalls(t, "GetMem32", 1)

	_, err = c.Cached()
	require.NoError(t, err)
	drv.AssertNumberOfCalls(t, "GetMem32", 2)
}

func TestCachedBitfieldWriteBack(t *testing.T) {
	drv := &stubDriver{}
	drv.On("GetMem32", uint32(regAddr)).Return(uint32(0x12), nil).Once()
	drv.On("SetMem32", uint32(regAddr), uint32(0x35)).Return(nil).Once()
	c := newCached(t, drv)

	view, err := c.Cached()
	require.NoError(t, err)
	require.NoError(t, view.Set("A", 5))
	require.NoError(t, view.Set("B", 3))
	drv.AssertNotCalled(t, "SetMem32", mock.Anything, mock.Anything)

	require.NoError(t, c.WriteCache())
	assert.True(t, c.CacheValid(), "cache stays valid after write-back")

	drv.AssertExpectations(t)
}

func TestCachedBitfieldWriteCacheInvalid(t *testing.T) {
	drv := &stubDriver{}
	c := newCached(t, drv)

	assert.ErrorIs(t, c.WriteCache(), ErrCacheNotValid)

	c.SetCached(0x12)
	c.DiscardCache()
	assert.ErrorIs(t, c.WriteCache(), ErrCacheNotValid)

	drv.AssertNotCalled(t, "SetMem32", mock.Anything, mock.Anything)
	drv.AssertNotCalled(t, "WriteMem", mock.Anything, mock.Anything)
}

func TestCachedBitfieldSetCached(t *testing.T) {
	drv := &stubDriver{}
	drv.On("SetMem32", uint32(regAddr), uint32(0xf0)).Return(nil).Once()
	c := newCached(t, drv)

	c.SetCached(0xf0)
	view, err := c.Cached()
	require.NoError(t, err)
	raw, _ := view.Raw()
	assert.Equal(t, uint32(0xf0), raw)
	drv.AssertNotCalled(t, "GetMem32", mock.Anything)

	require.NoError(t, c.WriteCache())
	drv.AssertExpectations(t)
}

func TestCachedBitfieldPointAccessBypassesCache(t *testing.T) {
	drv := &stubDriver{}
	drv.On("GetMem32", uint32(regAddr)).Return(uint32(0x12), nil)
	c := newCached(t, drv)

	c.SetCached(0xff)

	a, err := c.Get("A")
	require.NoError(t, err)
	assert.Equal(t, uint32(2), a)

	hex, err := c.Hex("B")
	require.NoError(t, err)
	assert.Equal(t, "0x1", hex)

	named, err := c.GetNamed("A", true)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), named)

	drv.AssertNumberOfCalls(t, "GetMem32", 3)

	view, _ := c.Cached()
	raw, _ := view.Raw()
	assert.Equal(t, uint32(0xff), raw, "point reads leave the cache alone")
}

func TestCachedBitfieldSet(t *testing.T) {
	drv := &stubDriver{}
	drv.On("GetMem32", uint32(regAddr)).Return(uint32(0x12), nil).Once()
	drv.On("SetMem32", uint32(regAddr), uint32(0x1f)).Return(nil).Once()
	c := newCached(t, drv)

	require.NoError(t, c.Set("A", 0xF))
	drv.AssertExpectations(t)
	assert.False(t, c.CacheValid(), "Set does not populate the cache")

	err := c.Set("A", "XYZ")
	assert.ErrorIs(t, err, ErrUnknownFieldValue)
	drv.AssertNumberOfCalls(t, "GetMem32", 1)
}

func TestCachedBitfieldSetBits(t *testing.T) {
	drv := &stubDriver{}
	drv.On("SetMem32", uint32(regAddr), uint32(0x30)).Return(nil).Once()
	c := newCached(t, drv)

	require.NoError(t, c.SetBits(map[string]any{"B": 3}))
	drv.AssertExpectations(t)
	drv.AssertNotCalled(t, "GetMem32", mock.Anything)
}

func TestCachedBitfieldByteAccess(t *testing.T) {
	set16 := MustFieldSet(16, []FieldSpec{F("LO", 8), F("HI", 8)})

	t.Run("aligned 16-bit register", func(t *testing.T) {
		drv := &stubDriver{}
		drv.On("ReadMem", uint32(0x1ff8004c), uint32(2)).Return([]byte{0x00, 0x01}, nil)
		drv.On("WriteMem", uint32(0x1ff8004c), []byte{0x34, 0x01}).Return(nil).Once()

		c, err := NewCachedBitfield("F_SIZE", set16, drv, 0x1ff8004c)
		require.NoError(t, err)

		raw, err := c.Raw()
		require.NoError(t, err)
		assert.Equal(t, uint32(0x0100), raw)

		require.NoError(t, c.Set("LO", 0x34))
		drv.AssertExpectations(t)
		drv.AssertNotCalled(t, "GetMem32", mock.Anything)
		drv.AssertNotCalled(t, "SetMem32", mock.Anything, mock.Anything)
	})

	t.Run("unaligned 32-bit register", func(t *testing.T) {
		drv := &stubDriver{}
		drv.On("ReadMem", uint32(0x20000002), uint32(4)).Return([]byte{0x78, 0x56, 0x34, 0x12}, nil)
		drv.On("WriteMem", uint32(0x20000002), []byte{0x01, 0x00, 0x00, 0x00}).Return(nil)

		c, err := NewCachedBitfield("U", scenarioSet(t), drv, 0x20000002)
		require.NoError(t, err)

		raw, err := c.Raw()
		require.NoError(t, err)
		assert.Equal(t, uint32(0x12345678), raw)

		require.NoError(t, c.SetRaw(1))
		drv.AssertExpectations(t)
	})

	t.Run("short read", func(t *testing.T) {
		drv := &stubDriver{}
		drv.On("ReadMem", uint32(0x100), uint32(2)).Return([]byte{0x01}, nil)

		c, err := NewCachedBitfield("S", set16, drv, 0x100)
		require.NoError(t, err)

		_, err = c.Raw()
		assert.ErrorIs(t, err, ErrShortRead)
	})
}

func TestCachedBitfieldDriverErrorsPassThrough(t *testing.T) {
	errProbe := errors.New("usb timeout")

	drv := &stubDriver{}
	drv.On("GetMem32", uint32(regAddr)).Return(uint32(0), errProbe)
	drv.On("SetMem32", uint32(regAddr), mock.Anything).Return(errProbe)
	c := newCached(t, drv)

	_, err := c.Get("A")
	assert.Same(t, errProbe, err)

	_, err = c.Cached()
	assert.Same(t, errProbe, err)
	assert.False(t, c.CacheValid(), "failed read leaves the cache invalid")

	assert.Same(t, errProbe, c.Set("A", 1))
	assert.Same(t, errProbe, c.SetBits(map[string]any{"A": 1}))

	c.SetCached(1)
	assert.Same(t, errProbe, c.WriteCache())
}

func TestNewCachedBitfieldConfiguration(t *testing.T) {
	odd := MustFieldSet(12, []FieldSpec{F("X", 12)})

	_, err := NewCachedBitfield("ODD", odd, &stubDriver{}, 0)
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = NewCachedBitfield("NOSET", nil, &stubDriver{}, 0)
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = NewCachedBitfield("NODRV", scenarioSet(t), nil, 0)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestCachedBitfieldSetCachedAfterDiscard(t *testing.T) {
	drv := &stubDriver{}
	c := newCached(t, drv)

	c.SetCached(0x30)
	assert.True(t, c.CacheValid())
	c.DiscardCache()
	assert.False(t, c.CacheValid())

	c.SetCached(0x12)
	assert.True(t, c.CacheValid())
	view, err := c.Cached()
	require.NoError(t, err)
	raw, err := view.Raw()
	require.NoError(t, err)
	assert.Equal(t, uint32(0x12), raw)
	drv.AssertNotCalled(t, "GetMem32", mock.Anything)
	drv.AssertNotCalled(t, "ReadMem", mock.Anything, mock.Anything)
}
