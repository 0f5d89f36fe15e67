//go:build linux

package firewall

import (
	"fmt"

	"github.com/coreos/go-iptables/iptables"

	"github.com/kondukto-io/portguard/pkg/logger"
)

// NewIPTables returns the iptables surface. IPv6 rules are skipped when
// ip6tables is unavailable.
func NewIPTables() (*IPTables, error) {
	v4, err := iptables.New()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize iptables: %w", err)
	}

	v6, err := iptables.NewWithProtocol(iptables.ProtocolIPv6)
	if err != nil {
		logger.Log.Warnf("ip6tables unavailable, IPv6 rules are not enforced: %v", err)
		return newIPTablesSurface(v4, nil), nil
	}

	return newIPTablesSurface(v4, v6), nil
}
