package notifier

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/kondukto-io/portguard/internal/core/domain"
	"github.com/kondukto-io/portguard/internal/core/port/notifier"
	"github.com/kondukto-io/portguard/pkg/logger"
)

// Log writes notifications to the application log. It never produces
// operator actions.
type Log struct {
	enabled bool
	actions chan domain.OperatorAction
}

var _ notifier.Surface = (*Log)(nil)

// NewLog returns a log surface
func NewLog(enabled bool) *Log {
	return &Log{
		enabled: enabled,
		actions: make(chan domain.OperatorAction),
	}
}

func (l *Log) NotifyEvent(_ context.Context, e domain.PortEvent, info *domain.PortInfo) error {
	fields := logrus.Fields{
		"event": e.ID,
		"pid":   e.ProcessID,
		"comm":  e.ProcessName,
		"proto": e.Protocol,
		"port":  e.LocalPort,
		"risk":  e.RiskLevel,
	}

	if info != nil {
		fields["service"] = info.ServiceName
		if info.IsMalicious() {
			fields["malware"] = info.MalwareAssociations
		}
	}

	entry := logger.Log.WithFields(fields)
	if e.RiskLevel >= domain.RiskHigh {
		entry.Warnf("port %s: %s", e.EventType, e.Description)
		return nil
	}

	entry.Infof("port %s: %s", e.EventType, e.Description)
	return nil
}

func (l *Log) Info(_ context.Context, title, message string) error {
	logger.Log.Infof("%s: %s", title, message)
	return nil
}

func (l *Log) Warning(_ context.Context, title, message string) error {
	logger.Log.Warnf("%s: %s", title, message)
	return nil
}

func (l *Log) Error(_ context.Context, title, message string) error {
	logger.Log.Errorf("%s: %s", title, message)
	return nil
}

func (l *Log) Enabled(context.Context) bool {
	return l.enabled
}

func (l *Log) Actions() <-chan domain.OperatorAction {
	return l.actions
}
