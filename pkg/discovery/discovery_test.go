package discovery

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServerTXTRoundTrip(t *testing.T) {
	info := &ServerInfo{Port: 4242, Target: "STM32L1", MCU: "STM32L151xB"}

	strs := TXTRecordsToStrings(EncodeServerTXT(info))
	assert.Equal(t, []string{"mcu=STM32L151xB", "target=STM32L1", "ver=1"}, strs)

	target, mcu, version, err := DecodeServerTXT(StringsToTXTRecords(strs))
	require.NoError(t, err)
	assert.Equal(t, "STM32L1", target)
	assert.Equal(t, "STM32L151xB", mcu)
	assert.Equal(t, ProtocolVersion, version)

	strs = TXTRecordsToStrings(EncodeServerTXT(&ServerInfo{Target: "sim"}))
	assert.Equal(t, []string{"target=sim", "ver=1"}, strs)
}

func TestDecodeServerTXTErrors(t *testing.T) {
	tests := []struct {
		name string
		txt  TXTRecordMap
		want error
	}{
		{"no target", TXTRecordMap{"ver": "1"}, ErrMissingRequired},
		{"no version", TXTRecordMap{"target": "x"}, ErrMissingRequired},
		{"future version", TXTRecordMap{"target": "x", "ver": "2"}, ErrInvalidTXTRecord},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, _, err := DecodeServerTXT(tt.txt)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestStringsToTXTRecords(t *testing.T) {
	txt := StringsToTXTRecords([]string{"a=1", "flag", "b=x=y", "", "=orphan"})
	assert.Equal(t, TXTRecordMap{"a": "1", "flag": "", "b": "x=y"}, txt)
}

func TestInstanceName(t *testing.T) {
	assert.Equal(t, "swdmem-STM32L1", InstanceName(&ServerInfo{Target: "STM32L1"}))
	assert.Equal(t, "bench", InstanceName(&ServerInfo{Instance: "bench", Target: "x"}))

	long := InstanceName(&ServerInfo{Target: string(make([]byte, 100))})
	assert.Len(t, long, MaxInstanceNameLen)
	assert.NoError(t, ValidateInstanceName(long))

	assert.ErrorIs(t, ValidateInstanceName(""), ErrMissingRequired)
	assert.ErrorIs(t, ValidateInstanceName(string(make([]byte, 64))), ErrInstanceNameTooLong)
}

func TestNewService(t *testing.T) {
	svc := newService("swdmem-sim", "bench.local.", 4242,
		[]string{"target=sim", "ver=1"}, []string{"192.168.1.20", "fe80::1"})
	require.NotNil(t, svc)
	assert.Equal(t, "sim", svc.Target)
	assert.Equal(t, uint16(4242), svc.Port)
	assert.Equal(t, "192.168.1.20:4242", svc.Address())

	svc.Addresses = nil
	assert.Equal(t, "bench.local.:4242", svc.Address())

	assert.Nil(t, newService("x", "h", 1, []string{"ver=1"}, nil))
}

func TestAddressAggregation(t *testing.T) {
	addrs := mergeAddresses([]string{"10.0.0.1"}, []string{"10.0.0.1", "fe80::1"})
	assert.Equal(t, []string{"10.0.0.1", "fe80::1"}, addrs)

	addrs = removeAddresses(addrs, []string{"10.0.0.1"})
	assert.Equal(t, []string{"fe80::1"}, addrs)
	assert.Empty(t, removeAddresses(addrs, []string{"fe80::1"}))
}

func TestFilters(t *testing.T) {
	f := ByTarget("STM32L1")
	assert.True(t, f(&Service{Target: "STM32L1"}))
	assert.False(t, f(&Service{Target: "sim"}))
}

func TestAdvertiseValidation(t *testing.T) {
	a := NewMDNSAdvertiser(DefaultAdvertiserConfig())
	assert.ErrorIs(t, a.Advertise(t.Context(), &ServerInfo{Port: 1}), ErrMissingRequired)
	assert.ErrorIs(t, a.Advertise(t.Context(), &ServerInfo{Target: "x"}), ErrMissingRequired)
	assert.ErrorIs(t, a.Update(&ServerInfo{Target: "x"}), ErrNotAdvertising)
	a.Stop()
}
