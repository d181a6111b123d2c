package regmap

import (
	"embed"
	"fmt"
	"sort"
	"strings"
	"sync"
)

//go:embed maps/*.yaml
var mapFS embed.FS

var (
	cacheMu sync.RWMutex
	cache   = make(map[string]*Map)
)

// Builtin returns the built-in map for device ("STM32L1", "STM32F1").
// The name is case-insensitive. Maps are parsed once and shared; callers
// must not modify them.
func Builtin(device string) (*Map, error) {
	key := strings.ToLower(device)

	cacheMu.RLock()
	if m, ok := cache[key]; ok {
		cacheMu.RUnlock()
		return m, nil
	}
	cacheMu.RUnlock()

	data, err := mapFS.ReadFile("maps/" + key + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("%w %q", ErrUnknownDevice, device)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("built-in map %s: %w", device, err)
	}

	cacheMu.Lock()
	cache[key] = m
	cacheMu.Unlock()
	return m, nil
}

// BuiltinDevices lists the devices with a built-in map.
func BuiltinDevices() []string {
	entries, err := mapFS.ReadDir("maps")
	if err != nil {
		return nil
	}
	var devices []string
	for _, e := range entries {
		devices = append(devices, strings.ToUpper(strings.TrimSuffix(e.Name(), ".yaml")))
	}
	sort.Strings(devices)
	return devices
}
