package notify

import (
	"context"

	"go.uber.org/zap"
)

type logNotifier struct {
	logger *zap.Logger
}

// Log writes every notification to logger: errors at warn level, the rest at info.
func Log(logger *zap.Logger) Notifier {
	if logger == nil {
		return nil
	}
	return &logNotifier{logger: logger}
}

func (l *logNotifier) Notify(_ context.Context, n Notification) {
	fields := []zap.Field{zap.String("kind", string(n.Kind)), zap.String("message", n.Message)}
	if n.Kind == KindError {
		l.logger.Warn("notification", fields...)
		return
	}
	l.logger.Info("notification", fields...)
}
