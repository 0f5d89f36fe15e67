package endpoints

import (
	"context"
	"fmt"
	"strings"

	psnet "github.com/shirou/gopsutil/v4/net"
	"github.com/shirou/gopsutil/v4/process"
	"github.com/sirupsen/logrus"

	"github.com/kondukto-io/portguard/internal/core/domain"
	"github.com/kondukto-io/portguard/internal/core/port/endpoint"
	"github.com/kondukto-io/portguard/pkg/logger"
	"github.com/kondukto-io/portguard/pkg/utils"
)

// connectionsFunc lists the sockets of a gopsutil connection kind
type connectionsFunc func(ctx context.Context, kind string) ([]psnet.ConnectionStat, error)

// processInfo is the resolved owner of a socket
type processInfo struct {
	name string
	exe  string
	user string
}

// resolveFunc resolves a pid to its process attributes. ok is false when the
// process no longer exists.
type resolveFunc func(ctx context.Context, pid int32, uids []int32) (processInfo, bool)

// Enumerator reads the host socket table through gopsutil
type Enumerator struct {
	connections connectionsFunc
	resolve     resolveFunc
}

var _ endpoint.Enumerator = (*Enumerator)(nil)

// New returns an enumerator backed by the host socket table
func New() *Enumerator {
	return &Enumerator{
		connections: psnet.ConnectionsWithContext,
		resolve:     resolveProcess,
	}
}

// Enumerate lists the active endpoints of one protocol. Sockets without an
// owning process, or whose process has exited, are skipped.
func (e *Enumerator) Enumerate(ctx context.Context, proto domain.Protocol) ([]domain.PortEvent, error) {
	kind, err := connectionKind(proto)
	if err != nil {
		return nil, err
	}

	conns, err := e.connections(ctx, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s connections: %w", proto, err)
	}

	var (
		resolved = make(map[int32]processInfo)
		vanished = make(map[int32]bool)
		events   = make([]domain.PortEvent, 0, len(conns))
	)

	for _, c := range conns {
		if c.Pid <= 0 || vanished[c.Pid] {
			continue
		}

		info, ok := resolved[c.Pid]
		if !ok {
			if info, ok = e.resolve(ctx, c.Pid, c.Uids); !ok {
				vanished[c.Pid] = true
				logger.Log.WithFields(logrus.Fields{
					"pid":   c.Pid,
					"proto": proto,
				}).Debug("skipping socket of exited process")
				continue
			}
			resolved[c.Pid] = info
		}

		events = append(events, domain.PortEvent{
			ProcessID:      c.Pid,
			ProcessName:    info.name,
			ExecutablePath: info.exe,
			UserName:       info.user,
			LocalAddress:   c.Laddr.IP,
			LocalPort:      c.Laddr.Port,
			RemoteAddress:  c.Raddr.IP,
			RemotePort:     c.Raddr.Port,
			Protocol:       proto,
			Status:         Status(proto, c.Status),
		})
	}

	return events, nil
}

func connectionKind(proto domain.Protocol) (string, error) {
	switch proto {
	case domain.ProtocolTCP:
		return "tcp", nil
	case domain.ProtocolUDP:
		return "udp", nil
	}

	return "", fmt.Errorf("unsupported protocol: %q", proto)
}

func resolveProcess(ctx context.Context, pid int32, uids []int32) (processInfo, bool) {
	p, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		return processInfo{}, false
	}

	var info = processInfo{
		name: domain.UnknownValue,
		exe:  domain.UnknownValue,
		user: domain.UnknownValue,
	}

	if name, err := p.NameWithContext(ctx); err == nil && name != "" {
		info.name = name
	}

	if exe, err := p.ExeWithContext(ctx); err == nil && exe != "" {
		info.exe = exe
	}

	if user, err := p.UsernameWithContext(ctx); err == nil && user != "" {
		info.user = user
	} else if len(uids) > 0 {
		info.user = utils.LookupUser(uids[0])
	}

	return info, true
}

// Status maps a gopsutil socket state onto a PortStatus.
// Connectionless UDP sockets are reported as listening.
func Status(proto domain.Protocol, state string) domain.PortStatus {
	switch strings.ToUpper(state) {
	case "LISTEN":
		return domain.PortStatusListening
	case "ESTABLISHED":
		return domain.PortStatusEstablished
	case "TIME_WAIT":
		return domain.PortStatusTimeWait
	case "CLOSE_WAIT":
		return domain.PortStatusCloseWait
	case "FIN_WAIT1", "FIN_WAIT_1":
		return domain.PortStatusFinWait1
	case "FIN_WAIT2", "FIN_WAIT_2":
		return domain.PortStatusFinWait2
	case "SYN_SENT":
		return domain.PortStatusSynSent
	case "SYN_RECV", "SYN_RECEIVED":
		return domain.PortStatusSynReceived
	case "CLOSE", "CLOSED":
		return domain.PortStatusClosed
	}

	if proto == domain.ProtocolUDP {
		return domain.PortStatusListening
	}

	return domain.PortStatusUnknown
}
