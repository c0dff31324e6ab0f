//go:build !linux && !windows

package platform

import "log/slog"

// LogNotifier writes notifications to the log.
type LogNotifier struct {
	appName string
}

// NewNotifier creates a notifier that only logs.
func NewNotifier(appName string) Notifier {
	return &LogNotifier{appName: appName}
}

func (n *LogNotifier) Notify(title, body string) error {
	slog.Info(title, "app", n.appName, "body", body)
	return nil
}
