// Package notify delivers desktop notifications.
package notify

import (
	"github.com/gen2brain/beeep"
)

// AppName is shown as the notification source where the platform supports it.
const AppName = "hookwatch"

// Notifier delivers a notification.
type Notifier interface {
	Notify(title, message string) error
}

// Desktop sends notifications through the platform notification service.
type Desktop struct{}

// NewDesktop returns a desktop notifier.
func NewDesktop() Desktop {
	beeep.AppName = AppName
	return Desktop{}
}

// Notify shows a notification.
func (Desktop) Notify(title, message string) error {
	return beeep.Notify(title, message, "")
}

// Nop drops notifications.
type Nop struct{}

// Notify does nothing.
func (Nop) Notify(string, string) error { return nil }
