//go:build linux

package platform

import (
	"fmt"

	"github.com/godbus/dbus/v5"
)

const (
	notificationsService = "org.freedesktop.Notifications"
	notificationsPath    = "/org/freedesktop/Notifications"
	notifyTimeoutMs      = 2000
)

// DBusNotifier posts notifications through org.freedesktop.Notifications.
type DBusNotifier struct {
	appName string
}

// NewNotifier creates a session-bus notifier.
func NewNotifier(appName string) Notifier {
	return &DBusNotifier{appName: appName}
}

func (n *DBusNotifier) Notify(title, body string) error {
	conn, err := dbus.SessionBus()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}

	obj := conn.Object(notificationsService, notificationsPath)
	call := obj.Call(notificationsService+".Notify", 0,
		n.appName,
		uint32(0),
		"",
		title,
		body,
		[]string{},
		map[string]dbus.Variant{"urgency": dbus.MakeVariant(byte(0))},
		int32(notifyTimeoutMs),
	)
	if call.Err != nil {
		return fmt.Errorf("notify failed: %w", call.Err)
	}
	return nil
}
