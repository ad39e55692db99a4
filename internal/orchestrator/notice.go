package orchestrator

import "go.uber.org/zap"

type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelSuccess:
		return "success"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// Notice is a user-facing message about the outcome of an action.
type Notice struct {
	Level    Level
	Reason   Reason
	Message  string
	TxURL    string
	AssetURL string
}

type Notifier interface {
	Notify(Notice)
}

type NotifierFunc func(Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }

// logNotifier is used when no notifier is configured.
type logNotifier struct {
	logger *zap.Logger
}

func (l logNotifier) Notify(n Notice) {
	fields := []zap.Field{zap.Stringer("level", n.Level)}
	if n.Reason != ReasonNone {
		fields = append(fields, zap.String("reason", string(n.Reason)))
	}
	if n.TxURL != "" {
		fields = append(fields, zap.String("tx", n.TxURL))
	}
	if n.AssetURL != "" {
		fields = append(fields, zap.String("asset", n.AssetURL))
	}
	l.logger.Info(n.Message, fields...)
}
