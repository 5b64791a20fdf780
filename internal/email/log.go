package email

import (
	"context"

	"github.com/campusreg/service/internal/logging"
)

// LogSender writes emails to the log instead of sending them.
// Useful for development and testing.
type LogSender struct {
	log logging.Logger
}

// NewLogSender creates a log-based sender.
func NewLogSender(log logging.Logger) *LogSender {
	return &LogSender{log: log}
}

// Send logs the email. It never fails.
func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.log.Info("email (dev mode, not sent)",
		logging.String("to", msg.To),
		logging.String("subject", msg.Subject),
		logging.String("text", msg.Text),
	)
	return nil
}
