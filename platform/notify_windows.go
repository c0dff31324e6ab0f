//go:build windows

package platform

import (
	"fmt"

	toast "git.sr.ht/~jackmordaunt/go-toast/v2"
)

// ToastNotifier shows Windows toast notifications.
type ToastNotifier struct {
	appName string
}

// NewNotifier creates a toast notifier.
func NewNotifier(appName string) Notifier {
	return &ToastNotifier{appName: appName}
}

func (n *ToastNotifier) Notify(title, body string) error {
	t := toast.Notification{
		AppID: n.appName,
		Title: title,
		Body:  body,
	}
	if err := t.Push(); err != nil {
		return fmt.Errorf("toast failed: %w", err)
	}
	return nil
}
