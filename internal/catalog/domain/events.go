package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventMediaResolved is published after a provider record was upserted.
const EventMediaResolved = "media.resolved"

// MediaResolvedEvent announces that a record was created or refreshed from a provider.
type MediaResolvedEvent struct {
	MediaID    uuid.UUID `json:"media_id"`
	Title      string    `json:"title"`
	Type       MediaType `json:"type"`
	Source     string    `json:"source"`
	Created    bool      `json:"created"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewMediaResolvedEvent builds the event for rec.
func NewMediaResolvedEvent(rec *MediaRecord, created bool) *MediaResolvedEvent {
	return &MediaResolvedEvent{
		MediaID:    rec.ID,
		Title:      rec.Title,
		Type:       rec.Type,
		Source:     rec.Source,
		Created:    created,
		OccurredAt: time.Now().UTC(),
	}
}

func (e *MediaResolvedEvent) EventType() string { return EventMediaResolved }

func (e *MediaResolvedEvent) Timestamp() int64 { return e.OccurredAt.UnixNano() }

func (e *MediaResolvedEvent) AggregateID() string { return e.MediaID.String() }
