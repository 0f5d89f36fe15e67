//go:build !linux

package firewall

import (
	"fmt"
	"runtime"
)

// NewIPTables is only available on linux
func NewIPTables() (*IPTables, error) {
	return nil, fmt.Errorf("iptables backend is not supported on %s", runtime.GOOS)
}
