package bitfield

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scenarioSet(t *testing.T) *FieldSet {
	t.Helper()
	s, err := NewFieldSet(32, []FieldSpec{F("A", 4), F("B", 4), Pad(24)})
	require.NoError(t, err)
	return s
}

func TestBitfieldScenario(t *testing.T) {
	b := New(scenarioSet(t), 0x00000012)

	a, err := b.Get("A")
	require.NoError(t, err)
	assert.Equal(t, uint32(2), a)

	bv, err := b.Get("B")
	require.NoError(t, err)
	assert.Equal(t, uint32(1), bv)

	require.NoError(t, b.Set("A", 0xF))
	raw, err := b.Raw()
	require.NoError(t, err)
	assert.Equal(t, uint32(0x1F), raw)

	err = b.Set("A", "XYZ")
	assert.ErrorIs(t, err, ErrUnknownFieldValue)
	raw, _ = b.Raw()
	assert.Equal(t, uint32(0x1F), raw, "failed Set must not modify the value")
}

func TestBitfieldAccessors(t *testing.T) {
	s := modeSet(t)
	b := New(s, 0)

	t.Run("SetNamed", func(t *testing.T) {
		require.NoError(t, b.Set("MODE", "OUTPUT"))
		got, err := b.GetNamed("MODE", false)
		require.NoError(t, err)
		assert.Equal(t, "OUTPUT", got)
	})

	t.Run("Hex", func(t *testing.T) {
		require.NoError(t, b.Set("COUNT", 10))
		got, err := b.Hex("COUNT")
		require.NoError(t, err)
		assert.Equal(t, "0x00a", got)
	})

	t.Run("SetRaw", func(t *testing.T) {
		require.NoError(t, b.SetRaw(0x2000))
		got, err := b.GetNamed("MODE", true)
		require.NoError(t, err)
		assert.Equal(t, uint32(2), got)
	})

	t.Run("SetBits", func(t *testing.T) {
		require.NoError(t, b.SetRaw(0xffffffff))
		require.NoError(t, b.SetBits(map[string]any{"EN": true}))
		raw, _ := b.Raw()
		assert.Equal(t, uint32(0x8000), raw)
	})

	t.Run("UnknownField", func(t *testing.T) {
		_, err := b.Get("NOPE")
		assert.ErrorIs(t, err, ErrUnknownField)
		_, err = b.GetNamed("NOPE", true)
		assert.ErrorIs(t, err, ErrUnknownField)
		_, err = b.Hex("NOPE")
		assert.ErrorIs(t, err, ErrUnknownField)
		assert.ErrorIs(t, b.Set("NOPE", 1), ErrUnknownField)
	})

	t.Run("Describe", func(t *testing.T) {
		require.NoError(t, b.SetRaw(0x12))
		got, err := b.Describe()
		require.NoError(t, err)
		assert.Equal(t, "A", got[0].Name)
		assert.Equal(t, uint32(2), got[0].Value)
	})
}

func TestBitfieldEmpty(t *testing.T) {
	b := NewEmpty(scenarioSet(t))

	_, err := b.Raw()
	assert.ErrorIs(t, err, ErrRawNotSet)
	_, err = b.Get("A")
	assert.ErrorIs(t, err, ErrRawNotSet)
	assert.ErrorIs(t, b.Set("A", 1), ErrRawNotSet)

	require.NoError(t, b.SetBits(map[string]any{"B": 3}))
	raw, err := b.Raw()
	require.NoError(t, err)
	assert.Equal(t, uint32(0x30), raw)
}

func TestValue(t *testing.T) {
	var v Value
	assert.False(t, v.Valid())
	_, err := v.Load()
	assert.ErrorIs(t, err, ErrRawNotSet)

	require.NoError(t, v.Store(0x1234))
	assert.True(t, v.Valid())
	raw, err := v.Load()
	require.NoError(t, err)
	assert.Equal(t, uint32(0x1234), raw)

	v.Clear()
	assert.False(t, v.Valid())

	v.set(7)
	raw, err = v.Load()
	require.NoError(t, err)
	assert.Equal(t, uint32(7), raw)
}
