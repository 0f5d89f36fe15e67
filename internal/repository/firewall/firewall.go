package firewall

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/kondukto-io/portguard/internal/core/port/rule"
)

const (
	// BackendIPTables manages rules in dedicated iptables chains (linux)
	BackendIPTables = "iptables"
	// BackendNetsh manages rules through netsh advfirewall (windows)
	BackendNetsh = "netsh"
	// BackendMemory keeps rules in process, nothing reaches the host firewall
	BackendMemory = "memory"
)

// DefaultBackend returns the backend matching the running platform
func DefaultBackend() string {
	switch runtime.GOOS {
	case "linux":
		return BackendIPTables
	case "windows":
		return BackendNetsh
	}

	return BackendMemory
}

// New returns the firewall surface of the named backend. An empty name
// selects the platform default.
func New(backend string) (rule.Surface, error) {
	if backend == "" {
		backend = DefaultBackend()
	}

	switch strings.ToLower(backend) {
	case BackendIPTables:
		s, err := NewIPTables()
		if err != nil {
			return nil, err
		}
		return s, nil
	case BackendNetsh:
		return NewNetsh(), nil
	case BackendMemory:
		return NewMemory(), nil
	}

	return nil, fmt.Errorf("unknown firewall backend: %q", backend)
}

// isAny reports whether an address matches every host
func isAny(addr string) bool {
	switch strings.TrimSpace(addr) {
	case "", "*", "0.0.0.0", "::", "[::]", "any":
		return true
	}

	return false
}
