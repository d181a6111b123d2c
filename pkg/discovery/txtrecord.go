package discovery

import (
	"fmt"
	"sort"
	"strings"
)

// EncodeServerTXT builds the TXT record for a server.
func EncodeServerTXT(info *ServerInfo) TXTRecordMap {
	txt := TXTRecordMap{
		TXTKeyTarget:  info.Target,
		TXTKeyVersion: ProtocolVersion,
	}
	if info.MCU != "" {
		txt[TXTKeyMCU] = info.MCU
	}
	return txt
}

// DecodeServerTXT validates a server TXT record.
func DecodeServerTXT(txt TXTRecordMap) (target, mcu, version string, err error) {
	target = txt[TXTKeyTarget]
	if target == "" {
		return "", "", "", fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyTarget)
	}
	version = txt[TXTKeyVersion]
	if version == "" {
		return "", "", "", fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyVersion)
	}
	if version != ProtocolVersion {
		return "", "", "", fmt.Errorf("%w: unsupported version %q", ErrInvalidTXTRecord, version)
	}
	return target, txt[TXTKeyMCU], version, nil
}

// TXTRecordsToStrings converts a TXTRecordMap to sorted "key=value" strings.
func TXTRecordsToStrings(txt TXTRecordMap) []string {
	result := make([]string, 0, len(txt))
	for k, v := range txt {
		result = append(result, k+"="+v)
	}
	sort.Strings(result)
	return result
}

// StringsToTXTRecords parses "key=value" strings into a TXTRecordMap.
func StringsToTXTRecords(strs []string) TXTRecordMap {
	txt := make(TXTRecordMap)
	for _, s := range strs {
		key, value, found := strings.Cut(s, "=")
		if key == "" {
			continue
		}
		if !found {
			// Key without value (boolean flag)
			value = ""
		}
		txt[key] = value
	}
	return txt
}

// InstanceName returns the instance name for info, defaulting and
// truncating as needed.
func InstanceName(info *ServerInfo) string {
	name := info.Instance
	if name == "" {
		name = "swdmem-" + info.Target
	}
	if len(name) > MaxInstanceNameLen {
		name = name[:MaxInstanceNameLen]
	}
	return name
}

// ValidateInstanceName checks if an instance name is valid for mDNS.
func ValidateInstanceName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrMissingRequired)
	}
	if len(name) > MaxInstanceNameLen {
		return ErrInstanceNameTooLong
	}
	return nil
}
