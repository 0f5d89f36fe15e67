package firewall

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/kondukto-io/portguard/internal/core/domain"
	"github.com/kondukto-io/portguard/pkg/logger"
)

const (
	filterTable   = "filter"
	inboundChain  = "PORTGUARD-IN"
	outboundChain = "PORTGUARD-OUT"
)

var errNoMatch = errors.New("rule has no enforceable match criteria")

// table is the subset of go-iptables used by the surface
type table interface {
	Exists(table, chain string, rulespec ...string) (bool, error)
	Insert(table, chain string, pos int, rulespec ...string) error
	AppendUnique(table, chain string, rulespec ...string) error
	DeleteIfExists(table, chain string, rulespec ...string) error
	ChainExists(table, chain string) (bool, error)
	NewChain(table, chain string) error
}

type family int

const (
	familyAny family = iota
	familyV4
	familyV6
)

// ruleSpec is one iptables rule of an application rule
type ruleSpec struct {
	chain  string
	family family
	args   []string
}

// IPTables applies rules to dedicated chains hooked into INPUT and OUTPUT.
// Every rule carries its name as an iptables comment.
type IPTables struct {
	mu       sync.Mutex
	v4       table
	v6       table
	prepared bool
}

func newIPTablesSurface(v4, v6 table) *IPTables {
	return &IPTables{v4: v4, v6: v6}
}

func (s *IPTables) Apply(_ context.Context, r domain.FirewallRule) error {
	specs, err := ruleSpecs(r)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.prepare(); err != nil {
		return err
	}

	for _, spec := range specs {
		for _, t := range s.tables(spec.family) {
			if err := t.AppendUnique(filterTable, spec.chain, spec.args...); err != nil {
				return fmt.Errorf("failed to append rule to %s: %w", spec.chain, err)
			}
		}
	}

	logger.Log.WithFields(logrus.Fields{
		"rule":  r.Name,
		"specs": len(specs),
	}).Debug("iptables rule applied")

	if r.ProcessPath != "" {
		logger.Log.Debugf("iptables cannot match executables, rule [%s] is enforced by port and address only", r.Name)
	}

	return nil
}

func (s *IPTables) Remove(_ context.Context, r domain.FirewallRule) error {
	specs, err := ruleSpecs(r)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, spec := range specs {
		for _, t := range s.tables(spec.family) {
			exists, err := t.ChainExists(filterTable, spec.chain)
			if err != nil {
				return err
			}
			if !exists {
				continue
			}

			if err := t.DeleteIfExists(filterTable, spec.chain, spec.args...); err != nil {
				return fmt.Errorf("failed to delete rule from %s: %w", spec.chain, err)
			}
		}
	}

	return nil
}

func (s *IPTables) SetEnabled(ctx context.Context, r domain.FirewallRule, enabled bool) error {
	if enabled {
		return s.Apply(ctx, r)
	}

	return s.Remove(ctx, r)
}

// Enabled reports whether the inbound chain is hooked into INPUT
func (s *IPTables) Enabled(context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.v4.Exists(filterTable, "INPUT", "-j", inboundChain)
}

// prepare creates the chains and their jumps once
func (s *IPTables) prepare() error {
	if s.prepared {
		return nil
	}

	hooks := map[string]string{"INPUT": inboundChain, "OUTPUT": outboundChain}
	for _, t := range s.tables(familyAny) {
		for parent, chain := range hooks {
			exists, err := t.ChainExists(filterTable, chain)
			if err != nil {
				return err
			}

			if !exists {
				if err := t.NewChain(filterTable, chain); err != nil {
					return fmt.Errorf("failed to create chain %s: %w", chain, err)
				}
			}

			hooked, err := t.Exists(filterTable, parent, "-j", chain)
			if err != nil {
				return err
			}

			if !hooked {
				if err := t.Insert(filterTable, parent, 1, "-j", chain); err != nil {
					return fmt.Errorf("failed to hook %s into %s: %w", chain, parent, err)
				}
			}
		}
	}

	s.prepared = true
	return nil
}

func (s *IPTables) tables(f family) []table {
	switch f {
	case familyV4:
		return []table{s.v4}
	case familyV6:
		if s.v6 == nil {
			return nil
		}
		return []table{s.v6}
	}

	if s.v6 == nil {
		return []table{s.v4}
	}

	return []table{s.v4, s.v6}
}

// ruleSpecs expands a rule into one iptables rule per direction and protocol
func ruleSpecs(r domain.FirewallRule) ([]ruleSpec, error) {
	if r.Name == "" {
		return nil, errors.New("rule has no name")
	}

	var target = "DROP"
	if r.Action == domain.ActionAllow {
		target = "ACCEPT"
	}

	var remote = r.RemoteAddress
	if isAny(remote) {
		remote = r.AddressRange
	}

	var local = r.LocalAddress
	if isAny(local) {
		local = ""
	}
	if isAny(remote) {
		remote = ""
	}

	var localPort = r.LocalPort
	if r.Scope == domain.ScopeProcessAllPorts {
		localPort = nil
	}

	if localPort == nil && r.RemotePort == nil && local == "" && remote == "" {
		return nil, fmt.Errorf("%w: %s", errNoMatch, r.Name)
	}

	var protocols = []string{strings.ToLower(string(r.Protocol))}
	if r.Protocol == "" {
		protocols = []string{""}
		if localPort != nil || r.RemotePort != nil {
			protocols = []string{"tcp", "udp"}
		}
	}

	var fam = addressFamily(local, remote)
	var specs []ruleSpec

	for _, dir := range r.Directions() {
		for _, proto := range protocols {
			var args []string
			if proto != "" {
				args = append(args, "-p", proto)
			}

			chain := inboundChain
			localPortFlag, remotePortFlag := "--dport", "--sport"
			localAddrFlag, remoteAddrFlag, rangeFlag := "-d", "-s", "--src-range"
			if dir == domain.DirectionOutbound {
				chain = outboundChain
				localPortFlag, remotePortFlag = "--sport", "--dport"
				localAddrFlag, remoteAddrFlag, rangeFlag = "-s", "-d", "--dst-range"
			}

			if localPort != nil {
				args = append(args, localPortFlag, strconv.FormatUint(uint64(*localPort), 10))
			}
			if r.RemotePort != nil {
				args = append(args, remotePortFlag, strconv.FormatUint(uint64(*r.RemotePort), 10))
			}
			if local != "" {
				args = append(args, localAddrFlag, local)
			}
			if remote != "" {
				if strings.Contains(remote, "-") {
					args = append(args, "-m", "iprange", rangeFlag, remote)
				} else {
					args = append(args, remoteAddrFlag, remote)
				}
			}

			args = append(args, "-m", "comment", "--comment", r.Name, "-j", target)
			specs = append(specs, ruleSpec{chain: chain, family: fam, args: args})
		}
	}

	return specs, nil
}

func addressFamily(addrs ...string) family {
	for _, a := range addrs {
		if a == "" {
			continue
		}
		if strings.Contains(a, ":") {
			return familyV6
		}
		return familyV4
	}

	return familyAny
}
