package notify

import (
	"context"

	"github.com/sirupsen/logrus"
)

// LogNotifier writes messages to the log instead of sending them. It is used when no SMS
// credentials are configured.
type LogNotifier struct {
	log *logrus.Logger
}

var _ Notifier = (*LogNotifier)(nil)

func NewLogNotifier(log *logrus.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Notify(_ context.Context, destination, message string) {
	n.log.WithFields(logrus.Fields{
		"to":  destination,
		"msg": message,
	}).Info("SMS-MOCK")
}
