package alerting

import (
	"context"
	"errors"
)

// DefaultNotificationTitle heads every alert notification
const DefaultNotificationTitle = "Baby Health Alert"

// Notification is what a dispatcher shows the caregiver
type Notification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Event Event  `json:"event"`
}

// NewNotification builds the notification for a fired event
func NewNotification(title string, e Event) Notification {
	if title == "" {
		title = DefaultNotificationTitle
	}
	return Notification{Title: title, Body: e.Message, Event: e}
}

// Notifier delivers notifications
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(ctx context.Context, n Notification) error

func (f NotifierFunc) Notify(ctx context.Context, n Notification) error {
	return f(ctx, n)
}

// Notifiers fans a notification out to every member
type Notifiers []Notifier

func (ns Notifiers) Notify(ctx context.Context, n Notification) error {
	var errs []error
	for _, notifier := range ns {
		if notifier == nil {
			continue
		}
		if err := notifier.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
