package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventStream is one provisioned broadcast for one event. An event may carry
// several streams across platforms and replays; internal_id is unique per
// platform and stable once created.
type EventStream struct {
	ID         uuid.UUID `db:"id" json:"id"`
	EventID    uuid.UUID `db:"event_id" json:"eventId"`
	Platform   Platform  `db:"platform" json:"platform"`
	InternalID string    `db:"internal_id" json:"internalId"`
	Channel    string    `db:"channel" json:"channel"`
	Title      string    `db:"title" json:"title"`
	URL        string    `db:"url" json:"url"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time `db:"updated_at" json:"updatedAt"`
}

// WatchURL is the public viewing URL for the broadcast.
func (s EventStream) WatchURL() string {
	switch s.Platform {
	case PlatformYoutube:
		return fmt.Sprintf("https://youtube.com/watch?v=%s", s.InternalID)
	case PlatformTwitch:
		return fmt.Sprintf("https://twitch.tv/%s", s.Channel)
	default:
		return ""
	}
}

// StreamUpsert is the provisioning write keyed by (event_id, platform,
// channel). A repeated upsert for the same key updates title/url and leaves
// internal_id untouched unless the platform reassigned it.
type StreamUpsert struct {
	EventID    uuid.UUID
	Platform   Platform
	InternalID string
	Channel    string
	Title      string
	URL        string
}

// StreamRegistry is the persistence layer for EventStream rows. The
// at-most-one-broadcast-per-(event, platform, channel) invariant is enforced
// here, not by callers.
type StreamRegistry interface {
	ListByEventIDs(ctx context.Context, eventIDs []uuid.UUID) ([]EventStream, error)
	GetByKey(ctx context.Context, eventID uuid.UUID, platform Platform, channel string) (*EventStream, error)
	Upsert(ctx context.Context, up StreamUpsert) (*EventStream, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// LifecycleStatus is a platform's own scheduling state for a broadcast,
// independent of whether data is actually flowing.
type LifecycleStatus string

const (
	LifecycleReady        LifecycleStatus = "ready"
	LifecycleTestStarting LifecycleStatus = "testStarting"
	LifecycleTesting      LifecycleStatus = "testing"
	LifecycleLiveStarting LifecycleStatus = "liveStarting"
	LifecycleLive         LifecycleStatus = "live"
	LifecycleComplete     LifecycleStatus = "complete"
	LifecycleRevoked      LifecycleStatus = "revoked"
)

// HealthStatus is the RTMP ingest's reported state, which can disagree with
// the lifecycle status.
type HealthStatus string

const (
	HealthCreated  HealthStatus = "created"
	HealthReady    HealthStatus = "ready"
	HealthInactive HealthStatus = "inactive"
	HealthActive   HealthStatus = "active"
	HealthError    HealthStatus = "error"
)

// PlatformStatus is the ephemeral per-broadcast state fetched on demand from
// a platform. Lifecycle and health are independently reported and may
// disagree; display derivation belongs to the status package, not here.
type PlatformStatus struct {
	Platform           Platform        `json:"platform"`
	BroadcastID        string          `json:"broadcastId"`
	Lifecycle          LifecycleStatus `json:"lifeCycleStatus"`
	Health             HealthStatus    `json:"streamStatus"`
	IsLive             bool            `json:"isLive"`
	AutoStart          bool            `json:"autoStart"`
	ScheduledStartTime time.Time       `json:"scheduledStartTime,omitzero"`
	ScheduledEndTime   time.Time       `json:"scheduledEndTime,omitzero"`
	HealthMessages     []string        `json:"streamHealth,omitempty"`
}

// BroadcastRequest asks a platform to create or update the broadcast for one
// event on one channel. ExistingID is empty on first provisioning.
type BroadcastRequest struct {
	ChannelID  string
	ExistingID string
	Title      string
	StartTime  time.Time
	EndTime    time.Time
}

// BroadcastResult is the platform's answer to a BroadcastRequest.
type BroadcastResult struct {
	InternalID string
	Title      string
	URL        string
}

// PlatformClient is one video platform's control surface. Implementations
// are scoped to a single connected account credential per call.
type PlatformClient interface {
	Platform() Platform
	EnsureBroadcast(ctx context.Context, cred *PlatformCredential, req BroadcastRequest) (*BroadcastResult, error)
	GetStatuses(ctx context.Context, cred *PlatformCredential) ([]PlatformStatus, error)
	StopBroadcast(ctx context.Context, cred *PlatformCredential, internalID string) error
}
