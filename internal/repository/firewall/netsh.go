package firewall

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/kondukto-io/portguard/internal/core/domain"
	"github.com/kondukto-io/portguard/pkg/logger"
)

type runFunc func(ctx context.Context, args ...string) ([]byte, error)

// Netsh manages Windows Defender Firewall rules through netsh advfirewall
type Netsh struct {
	run runFunc
}

// NewNetsh returns the netsh surface
func NewNetsh() *Netsh {
	return &Netsh{run: runNetsh}
}

func runNetsh(ctx context.Context, args ...string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, "netsh", args...).CombinedOutput()
	if err != nil {
		return out, fmt.Errorf("netsh %s: %w: %s", strings.Join(args[:min(3, len(args))], " "), err, strings.TrimSpace(string(out)))
	}

	return out, nil
}

// Apply adds one netsh rule per direction, all under the rule name
func (n *Netsh) Apply(ctx context.Context, r domain.FirewallRule) error {
	for _, dir := range r.Directions() {
		args, err := netshAddArgs(r, dir)
		if err != nil {
			return err
		}

		if _, err := n.run(ctx, args...); err != nil {
			return err
		}
	}

	logger.Log.Debugf("netsh rule [%s] applied", r.Name)
	return nil
}

// Remove deletes every netsh rule carrying the rule name
func (n *Netsh) Remove(ctx context.Context, r domain.FirewallRule) error {
	out, err := n.run(ctx, "advfirewall", "firewall", "delete", "rule", "name="+r.Name)
	if err != nil && strings.Contains(string(out), "No rules match") {
		return nil
	}

	return err
}

func (n *Netsh) SetEnabled(ctx context.Context, r domain.FirewallRule, enabled bool) error {
	if enabled {
		return n.Apply(ctx, r)
	}

	return n.Remove(ctx, r)
}

// Enabled reports whether any firewall profile is on
func (n *Netsh) Enabled(ctx context.Context) (bool, error) {
	out, err := n.run(ctx, "advfirewall", "show", "allprofiles", "state")
	if err != nil {
		return false, err
	}

	for _, line := range strings.Split(string(out), "\n") {
		fields := strings.Fields(line)
		if len(fields) == 2 && strings.EqualFold(fields[0], "State") && strings.EqualFold(fields[1], "ON") {
			return true, nil
		}
	}

	return false, nil
}

func netshAddArgs(r domain.FirewallRule, dir domain.RuleDirection) ([]string, error) {
	if r.Name == "" {
		return nil, fmt.Errorf("rule has no name")
	}

	var netshDir = "in"
	if dir == domain.DirectionOutbound {
		netshDir = "out"
	}

	var action = "block"
	if r.Action == domain.ActionAllow {
		action = "allow"
	}

	args := []string{
		"advfirewall", "firewall", "add", "rule",
		"name=" + r.Name,
		"dir=" + netshDir,
		"action=" + action,
		"enable=yes",
	}

	if r.Description != "" {
		args = append(args, "description="+r.Description)
	}

	if r.ProcessPath != "" && r.Scope != domain.ScopePortAllProcesses {
		args = append(args, "program="+r.ProcessPath)
	}

	if r.Protocol != "" {
		args = append(args, "protocol="+string(r.Protocol))
	} else if r.LocalPort != nil || r.RemotePort != nil {
		return nil, fmt.Errorf("rule [%s] sets a port without a protocol", r.Name)
	}

	if r.LocalPort != nil && r.Scope != domain.ScopeProcessAllPorts {
		args = append(args, "localport="+strconv.FormatUint(uint64(*r.LocalPort), 10))
	}

	if r.RemotePort != nil {
		args = append(args, "remoteport="+strconv.FormatUint(uint64(*r.RemotePort), 10))
	}

	if !isAny(r.LocalAddress) {
		args = append(args, "localip="+r.LocalAddress)
	}

	switch {
	case !isAny(r.RemoteAddress):
		args = append(args, "remoteip="+r.RemoteAddress)
	case r.AddressRange != "":
		args = append(args, "remoteip="+r.AddressRange)
	}

	return args, nil
}
