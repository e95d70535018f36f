package client

import (
	"gadget-hub/internal/util"

	"go.uber.org/zap"
)

// Notifier receives exactly one success or one failure notice per
// mutating operation. No mutation succeeds or fails silently.
type Notifier interface {
	Success(message string)
	Failure(message string)
}

// logNotifier is the default Notifier, emitting notices to the logger.
type logNotifier struct {
	logger *zap.Logger
}

func newLogNotifier() *logNotifier {
	return &logNotifier{logger: util.GetLogger()}
}

func (n *logNotifier) Success(message string) {
	n.logger.Info("Notice", zap.String("kind", "success"), zap.String("message", message))
}

func (n *logNotifier) Failure(message string) {
	n.logger.Warn("Notice", zap.String("kind", "failure"), zap.String("message", message))
}
