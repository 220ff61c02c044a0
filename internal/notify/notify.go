// Package notify shows the outcome of a dispatch to the user.
package notify

import (
	"errors"

	"github.com/gen2brain/beeep"
	"github.com/rs/zerolog/log"
)

type Notifier interface {
	Notify(title, message string) error
}

// Desktop shows an OS notification.
type Desktop struct {
	AppName string
	Icon    string
}

func (d *Desktop) Notify(title, message string) error {
	if d.AppName != "" {
		beeep.AppName = d.AppName
	}
	return beeep.Notify(title, message, d.Icon)
}

// Log writes the notification to the log.
type Log struct{}

func (Log) Notify(title, message string) error {
	log.Info().Str("title", title).Msg(message)
	return nil
}

// Multi delivers to every notifier and reports all failures.
type Multi []Notifier

func (m Multi) Notify(title, message string) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(title, message); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
