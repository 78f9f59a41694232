package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// MaxStreamSlots is the hard slot limit per AV cart. The hardware has five
// RTMP outputs; a sixth slot must be rejected before any request is sent.
const MaxStreamSlots = 5

// StreamItem is one RTMP output slot on a cart. Index values are contiguous
// from 0. A disabled slot keeps its url/key but is inactive.
type StreamItem struct {
	Index   int       `json:"Index"`
	CartID  uuid.UUID `json:"CartId"`
	Enabled bool      `json:"Enabled"`
	RtmpURL string    `json:"RtmpUrl"`
	RtmpKey string    `json:"RtmpKey"`
}

// CartConfiguration is the configuration blob the cart itself reports and
// consumes. The device pushes it via heartbeat; the controller edits only
// StreamInfo.
type CartConfiguration struct {
	AuthToken        string       `json:"AuthToken"`
	AssistantVersion string       `json:"AssistantVersion"`
	StreamInfo       []StreamItem `json:"StreamInfo"`
}

// AVCart is a piece of field AV hardware. LastSeen is nil when the cart has
// never reported; Online is the "infinity" sentinel meaning it is connected
// right now.
type AVCart struct {
	ID            uuid.UUID         `json:"id"`
	Name          string            `json:"name"`
	EquipmentType string            `json:"equipmentType"`
	LastSeen      *time.Time        `json:"lastSeen"`
	Online        bool              `json:"online"`
	Configuration CartConfiguration `json:"configuration"`
}

// CartControlMode selects what a control command asks the cart to do.
type CartControlMode string

const (
	CartControlStart    CartControlMode = "start"
	CartControlStop     CartControlMode = "stop"
	CartControlPushKeys CartControlMode = "push-keys"
)

// Valid reports whether m is a known control mode.
func (m CartControlMode) Valid() bool {
	return m == CartControlStart || m == CartControlStop || m == CartControlPushKeys
}

// EquipmentRepository persists AV carts. Heartbeat writes come from the
// device; StreamInfo writes come from the controller.
type EquipmentRepository interface {
	GetCart(ctx context.Context, id uuid.UUID) (*AVCart, error)
	UpdateStreamInfo(ctx context.Context, id uuid.UUID, items []StreamItem) (*AVCart, error)
	RecordHeartbeat(ctx context.Context, id uuid.UUID, cfg CartConfiguration, online bool) error
}

// CartGateway delivers control commands to a cart's control channel.
// Acceptance is fire-and-forget: a nil error means the command was accepted
// for delivery, not that the device applied it. The device's own
// heartbeat/log stream is the only source of applied-state truth.
type CartGateway interface {
	SendCommand(ctx context.Context, cartID uuid.UUID, mode CartControlMode, streamIndex int) error
}
