package adapter

import (
	"log/slog"
	"sync"
	"time"
)

// Notifier is the user-facing notification sink. Show is fire-and-forget;
// duration is a display hint for the rendering surface.
type Notifier interface {
	Show(message, actionLabel string, duration time.Duration)
}

type logNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier returns a Notifier that renders alerts to the logger
func NewLogNotifier(logger *slog.Logger) Notifier {
	return &logNotifier{logger: logger}
}

func (n *logNotifier) Show(message, actionLabel string, duration time.Duration) {
	n.logger.Warn("security notification",
		"message", message,
		"action", actionLabel,
		"duration", duration,
	)
}

// Notification is one recorded Show call
type Notification struct {
	Message     string
	ActionLabel string
	Duration    time.Duration
}

// NotifyRecorder captures notifications for test assertions
type NotifyRecorder struct {
	mu    sync.Mutex
	shown []Notification
}

func NewNotifyRecorder() *NotifyRecorder {
	return &NotifyRecorder{}
}

func (n *NotifyRecorder) Show(message, actionLabel string, duration time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.shown = append(n.shown, Notification{
		Message:     message,
		ActionLabel: actionLabel,
		Duration:    duration,
	})
}

// Shown returns a copy of all recorded notifications
func (n *NotifyRecorder) Shown() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Notification, len(n.shown))
	copy(out, n.shown)
	return out
}
