package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kondukto-io/portguard/internal/core/domain"
)

const maxPort = 65535

// ParsePort parses a single port number in 1..65535
func ParsePort(s string) (uint32, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
	if err != nil || n == 0 || n > maxPort {
		return 0, fmt.Errorf("invalid port: %q", s)
	}

	return uint32(n), nil
}

// ParsePorts parses a comma separated list of ports and ranges, e.g. "22,80,8000-8010"
func ParsePorts(s string) ([]uint32, error) {
	var ports []uint32
	var seen = make(map[uint32]bool)

	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}

		lo, hi := item, item
		if i := strings.Index(item, "-"); i > 0 {
			lo, hi = item[:i], item[i+1:]
		}

		first, err := ParsePort(lo)
		if err != nil {
			return nil, err
		}

		last, err := ParsePort(hi)
		if err != nil {
			return nil, err
		}

		if first > last {
			return nil, fmt.Errorf("invalid port range: %q", item)
		}

		for p := first; p <= last; p++ {
			if !seen[p] {
				seen[p] = true
				ports = append(ports, p)
			}
		}
	}

	return ports, nil
}

// ParseProtocols parses a comma separated protocol list. An empty string
// yields both protocols.
func ParseProtocols(s string) ([]domain.Protocol, error) {
	if strings.TrimSpace(s) == "" {
		return []domain.Protocol{domain.ProtocolTCP, domain.ProtocolUDP}, nil
	}

	var protocols []domain.Protocol
	for _, item := range strings.Split(s, ",") {
		p, err := domain.ParseProtocol(item)
		if err != nil {
			return nil, err
		}
		protocols = append(protocols, p)
	}

	return protocols, nil
}
