package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/kondukto-io/portguard/internal/core/domain"
	"github.com/kondukto-io/portguard/internal/core/port/catalog"
	"github.com/kondukto-io/portguard/pkg/logger"
)

const (
	wellKnownPortLimit = 1024
	ephemeralPortStart = 49152
)

type useCase struct {
	repo       catalog.Repository
	static     map[portKey]domain.PortInfo
	signatures map[portKey][]string

	mu          sync.RWMutex
	synthesized map[portKey]domain.PortInfo
}

// New returns the port catalog. repo may be nil, in which case only the
// built-in table and synthesized entries are used.
func New(repo catalog.Repository) catalog.UseCase {
	var uc = &useCase{
		repo:        repo,
		static:      make(map[portKey]domain.PortInfo),
		signatures:  signatureTable(),
		synthesized: make(map[portKey]domain.PortInfo),
	}

	for _, info := range staticTable() {
		uc.static[portKey{info.Port, info.Protocol}] = info
	}

	return uc
}

// GetPortInfo looks the pair up in the built-in table, then the store, and
// finally synthesizes a placeholder entry which is cached for later lookups.
func (u *useCase) GetPortInfo(ctx context.Context, port uint32, proto domain.Protocol) (domain.PortInfo, error) {
	if err := ctx.Err(); err != nil {
		return domain.PortInfo{}, err
	}

	var key = portKey{port, proto}
	if info, ok := u.static[key]; ok {
		return info, nil
	}

	if u.repo != nil {
		info, err := u.repo.GetPortInfo(ctx, port, proto)
		switch {
		case err == nil:
			return info, nil
		case errors.Is(err, domain.ErrNotFound):
		default:
			logger.Log.WithFields(logrus.Fields{
				"port":  port,
				"proto": proto,
			}).Warnf("failed to read port info from store: %v", err)
		}
	}

	u.mu.RLock()
	info, ok := u.synthesized[key]
	u.mu.RUnlock()
	if ok {
		return info, nil
	}

	info = synthesize(port, proto)

	u.mu.Lock()
	u.synthesized[key] = info
	u.mu.Unlock()

	return info, nil
}

func synthesize(port uint32, proto domain.Protocol) domain.PortInfo {
	var risk = domain.RiskLow
	switch {
	case port > ephemeralPortStart:
		risk = domain.RiskHigh
	case port > wellKnownPortLimit:
		risk = domain.RiskMedium
	}

	return domain.PortInfo{
		Port:        port,
		Protocol:    proto,
		ServiceName: domain.UnknownService,
		Description: fmt.Sprintf("port %d (%s), unidentified service", port, proto),
		RiskLevel:   risk,
		Category:    domain.CategoryUnknown,
	}
}

func (u *useCase) MatchesSignature(port uint32, proto domain.Protocol) bool {
	_, ok := u.signatures[portKey{port, proto}]
	return ok
}

// IsKnownMalwarePort is true when the signature table or the catalog entry flags the pair
func (u *useCase) IsKnownMalwarePort(ctx context.Context, port uint32, proto domain.Protocol) bool {
	if u.MatchesSignature(port, proto) {
		return true
	}

	info, err := u.GetPortInfo(ctx, port, proto)
	if err != nil {
		return false
	}

	return info.IsMalicious()
}

// SearchByService returns entries whose service name contains name, case-insensitive
func (u *useCase) SearchByService(ctx context.Context, name string) ([]domain.PortInfo, error) {
	var needle = strings.ToLower(strings.TrimSpace(name))

	return u.filter(ctx, func(info domain.PortInfo) bool {
		return strings.Contains(strings.ToLower(info.ServiceName), needle)
	})
}

// MaliciousPorts lists every catalog entry flagged as malware plus the signature table
func (u *useCase) MaliciousPorts(ctx context.Context) ([]domain.PortInfo, error) {
	entries, err := u.filter(ctx, domain.PortInfo.IsMalicious)
	if err != nil {
		return nil, err
	}

	var seen = make(map[portKey]bool, len(entries))
	for _, e := range entries {
		seen[portKey{e.Port, e.Protocol}] = true
	}

	for key, families := range u.signatures {
		if seen[key] {
			continue
		}

		entries = append(entries, domain.PortInfo{
			Port:                key.port,
			Protocol:            key.proto,
			ServiceName:         domain.UnknownValue,
			Description:         "known malware signature",
			RiskLevel:           domain.RiskCritical,
			Category:            domain.CategoryMalware,
			MalwareAssociations: families,
		})
	}

	sortEntries(entries)
	return entries, nil
}

func (u *useCase) ByCategory(ctx context.Context, category domain.PortCategory) ([]domain.PortInfo, error) {
	return u.filter(ctx, func(info domain.PortInfo) bool {
		return strings.EqualFold(string(info.Category), string(category))
	})
}

// Import persists operator supplied entries. Imported entries replace
// synthesized placeholders; the built-in table always takes precedence.
func (u *useCase) Import(ctx context.Context, entries []domain.PortInfo) error {
	if u.repo == nil {
		return errors.New("no catalog store configured")
	}

	for _, e := range entries {
		if e.Port == 0 || e.Port > 65535 {
			return fmt.Errorf("invalid port number: %d", e.Port)
		}

		if e.Protocol == "" {
			e.Protocol = domain.ProtocolTCP
		}

		if e.Category == "" {
			e.Category = domain.CategoryUnknown
		}

		if err := u.repo.SavePortInfo(ctx, e); err != nil {
			return fmt.Errorf("failed to save port info [%d/%s]: %w", e.Port, e.Protocol, err)
		}

		u.mu.Lock()
		delete(u.synthesized, portKey{e.Port, e.Protocol})
		u.mu.Unlock()
	}

	return nil
}

// filter walks the built-in table and the stored entries
func (u *useCase) filter(ctx context.Context, match func(domain.PortInfo) bool) ([]domain.PortInfo, error) {
	var (
		result []domain.PortInfo
		seen   = make(map[portKey]bool)
	)

	for key, info := range u.static {
		seen[key] = true
		if match(info) {
			result = append(result, info)
		}
	}

	if u.repo != nil {
		stored, err := u.repo.ListPortInfo(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list port info: %w", err)
		}

		for _, info := range stored {
			var key = portKey{info.Port, info.Protocol}
			if seen[key] {
				continue
			}
			seen[key] = true

			if match(info) {
				result = append(result, info)
			}
		}
	}

	sortEntries(result)
	return result, nil
}

func sortEntries(entries []domain.PortInfo) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Port != entries[j].Port {
			return entries[i].Port < entries[j].Port
		}
		return entries[i].Protocol < entries[j].Protocol
	})
}
