package links

import (
	"context"
	"time"
)

// Event subjects, relative to the publisher's prefix.
const (
	SubjectCreated = "links.created"
	SubjectUpdated = "links.updated"
	SubjectDeleted = "links.deleted"
)

// Event is the payload published on link mutations.
type Event struct {
	Key       string     `json:"key"`
	URI       string     `json:"uri,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Actor     string     `json:"actor"`
	At        time.Time  `json:"at"`
}

// Publisher delivers events. Delivery is best effort.
type Publisher interface {
	Publish(ctx context.Context, subject string, v any) error
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, string, any) error { return nil }
