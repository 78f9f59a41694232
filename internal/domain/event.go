package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Platform identifies a video platform a truck route streams to.
type Platform string

const (
	PlatformYoutube Platform = "youtube"
	PlatformTwitch  Platform = "twitch"
	PlatformNone    Platform = "none"
)

// Valid reports whether p is a streamable platform. PlatformNone and the
// empty string mean the route is not eligible for provisioning.
func (p Platform) Valid() bool {
	return p == PlatformYoutube || p == PlatformTwitch
}

// StreamingConfig is the per-route streaming target. A zero ChannelID makes
// the route ineligible regardless of platform.
type StreamingConfig struct {
	Platform  Platform
	ChannelID string
}

// Eligible reports whether a broadcast can be provisioned against this config.
func (c StreamingConfig) Eligible() bool {
	return c.Platform.Valid() && c.ChannelID != ""
}

// TruckRoute is a named equipment route. Owned by route management; the core
// only reads it.
type TruckRoute struct {
	ID        int64
	Name      string
	Streaming StreamingConfig
}

// Event is a competition event. Created and updated by the event-management
// subsystem; read-only to the core.
type Event struct {
	ID        uuid.UUID
	Code      string
	Name      string
	StartTime time.Time
	EndTime   time.Time
	Status    string
	SeasonID  int64
	Route     *TruckRoute
}

// Current reports whether the event window contains now.
func (e Event) Current(now time.Time) bool {
	return !now.Before(e.StartTime) && !now.After(e.EndTime)
}

// EventCatalog reads events and their truck routes from the backend store.
type EventCatalog interface {
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]Event, error)
	ListCurrentRouted(ctx context.Context, seasonID int64, now time.Time) ([]Event, error)
}
