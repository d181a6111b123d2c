package discovery

import (
	"errors"
	"net"
	"strconv"
)

// Service type constants.
const (
	// ServiceType is the DNS-SD service type of memory servers.
	ServiceType = "_swdmem._tcp"

	// Domain is the mDNS domain.
	Domain = "local."

	// ProtocolVersion is advertised in the ver TXT key.
	ProtocolVersion = "1"

	// MaxInstanceNameLen is the DNS label limit for instance names.
	MaxInstanceNameLen = 63
)

// TXT record keys.
const (
	TXTKeyTarget  = "target"
	TXTKeyVersion = "ver"
	TXTKeyMCU     = "mcu"
)

// Errors.
var (
	ErrMissingRequired     = errors.New("missing required field")
	ErrInstanceNameTooLong = errors.New("instance name too long")
	ErrInvalidTXTRecord    = errors.New("invalid TXT record")
	ErrNotFound            = errors.New("service not found")
	ErrNotAdvertising      = errors.New("not advertising")
)

// TXTRecordMap holds decoded TXT key/value pairs.
type TXTRecordMap map[string]string

// ServerInfo describes an advertised memory server.
type ServerInfo struct {
	// Instance is the DNS-SD instance name. Defaults to "swdmem-<target>".
	Instance string

	Port uint16

	// Target names the attached device or family.
	Target string

	// MCU is the identified part number, if known.
	MCU string
}

// Service is a memory server found on the network. Addresses from every
// interface the instance answered on are merged.
type Service struct {
	Instance  string
	Host      string
	Port      uint16
	Addresses []string
	Target    string
	MCU       string
	Version   string
}

// Address returns a dialable host:port, preferring the first resolved
// address over the host name.
func (s *Service) Address() string {
	host := s.Host
	if len(s.Addresses) > 0 {
		host = s.Addresses[0]
	}
	return net.JoinHostPort(host, strconv.Itoa(int(s.Port)))
}
