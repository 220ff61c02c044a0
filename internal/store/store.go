// This package contains the storage layer for the application.

package store

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("记录不存在")

// Journal of finished dispatches. Dispatches only ever append to it; nothing
// a dispatch does depends on what is stored.
type Store interface {
	Close() error
	// Append a record of a finished dispatch.
	AddRecord(ctx context.Context, record *Record) error
	// Get a record by ID.
	GetRecord(ctx context.Context, id string) (*Record, error)
	// List up to limit records, newest first. limit <= 0 lists everything.
	ListRecords(ctx context.Context, limit int) ([]*Record, error)
}

// Outcome of a single dispatch.
type Record struct {
	ID       string        `json:"id"`       // Dispatch ID
	Time     time.Time     `json:"time"`     // When the dispatch started
	Trigger  string        `json:"trigger"`  // page, link or shortcut
	URL      string        `json:"url"`      // Target URL
	Platform string        `json:"platform"` // Resolved platform, empty if unsupported
	Success  bool          `json:"success"`
	Title    string        `json:"title"`   // Notification title
	Message  string        `json:"message"` // Notification message
	Cookies  int           `json:"cookies"` // Number of cookies sent
	Duration time.Duration `json:"duration"`
}
