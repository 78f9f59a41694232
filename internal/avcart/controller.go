// Package avcart manages stream-slot configuration for field AV carts and
// relays control commands to their control channel. Command acceptance is
// fire-and-forget; only the device's own heartbeat reflects applied state.
package avcart

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/FIRSTinMI/fim-admin-api/internal/domain"
	apperrors "github.com/FIRSTinMI/fim-admin-api/internal/errors"
	"github.com/FIRSTinMI/fim-admin-api/internal/metrics"
)

// SlotUpdate is one slot in a full-array replace, ordered by slot index.
type SlotUpdate struct {
	Enabled bool   `json:"enabled"`
	RtmpURL string `json:"rtmpUrl"`
	RtmpKey string `json:"rtmpKey"`
}

// Controller owns slot validation and command dispatch for AV carts.
type Controller struct {
	equipment domain.EquipmentRepository
	gateway   domain.CartGateway
}

func NewController(equipment domain.EquipmentRepository, gateway domain.CartGateway) *Controller {
	return &Controller{equipment: equipment, gateway: gateway}
}

// GetCart returns the cart with its device-reported configuration and
// last-seen state.
func (c *Controller) GetCart(ctx context.Context, cartID uuid.UUID) (*domain.AVCart, error) {
	cart, err := c.equipment.GetCart(ctx, cartID)
	if err == domain.ErrCartNotFound {
		return nil, apperrors.NotFoundError("cart not found").WithContext("cartId", cartID)
	}
	return cart, err
}

// UpdateStreamKeys replaces the cart's full StreamInfo array in one write.
// The hardware consumes one configuration blob, so there is no per-slot
// update. The previous array is returned so callers can implement their own
// changed-detection. Slot capacity is checked before anything is written.
func (c *Controller) UpdateStreamKeys(ctx context.Context, cartID uuid.UUID, slots []SlotUpdate) ([]domain.StreamItem, error) {
	if len(slots) > domain.MaxStreamSlots {
		return nil, apperrors.ValidationError(
			fmt.Sprintf("a cart holds at most %d stream slots, got %d", domain.MaxStreamSlots, len(slots)))
	}

	items := make([]domain.StreamItem, len(slots))
	for i, s := range slots {
		items[i] = domain.StreamItem{
			Index:   i,
			CartID:  cartID,
			Enabled: s.Enabled,
			RtmpURL: s.RtmpURL,
			RtmpKey: s.RtmpKey,
		}
	}

	previous, err := c.equipment.UpdateStreamInfo(ctx, cartID, items)
	if err == domain.ErrCartNotFound {
		return nil, apperrors.NotFoundError("cart not found").WithContext("cartId", cartID)
	}
	if err != nil {
		return nil, apperrors.InternalError("failed to update stream info", err)
	}

	slog.Info("Updated cart stream info", "cart_id", cartID, "slots", len(items))
	return previous.Configuration.StreamInfo, nil
}

// NextFreeIndex returns the lowest unused slot index, for callers adding a
// slot to an existing array.
func NextFreeIndex(items []domain.StreamItem) (int, error) {
	if len(items) >= domain.MaxStreamSlots {
		return 0, apperrors.ValidationError(
			fmt.Sprintf("a cart holds at most %d stream slots", domain.MaxStreamSlots))
	}
	used := make(map[int]bool, len(items))
	for _, item := range items {
		used[item.Index] = true
	}
	for i := 0; i < domain.MaxStreamSlots; i++ {
		if !used[i] {
			return i, nil
		}
	}
	return 0, apperrors.ValidationError("no free slot index")
}

// ControlStream validates a command against the cart's stored configuration
// and hands it to the gateway. start/stop act on one slot and require an
// index; push-keys tells the cart to re-apply its whole configuration and
// takes none. Invariant violations are rejected before any request is sent.
func (c *Controller) ControlStream(ctx context.Context, cartID uuid.UUID, mode domain.CartControlMode, streamIndex *int) error {
	if !mode.Valid() {
		return apperrors.ValidationError(fmt.Sprintf("unknown control mode %q", mode))
	}

	index := -1
	switch mode {
	case domain.CartControlStart, domain.CartControlStop:
		if streamIndex == nil || *streamIndex < 0 {
			metrics.CartCommandsTotal.WithLabelValues(string(mode), "rejected").Inc()
			return apperrors.ValidationError(fmt.Sprintf("%s requires a non-negative streamNum", mode))
		}
		index = *streamIndex
	case domain.CartControlPushKeys:
		if streamIndex != nil {
			metrics.CartCommandsTotal.WithLabelValues(string(mode), "rejected").Inc()
			return apperrors.ValidationError("push-keys takes no streamNum")
		}
	}

	cart, err := c.GetCart(ctx, cartID)
	if err != nil {
		return err
	}
	if index >= 0 {
		if index >= len(cart.Configuration.StreamInfo) {
			metrics.CartCommandsTotal.WithLabelValues(string(mode), "rejected").Inc()
			return apperrors.ValidationError(
				fmt.Sprintf("cart has no stream slot %d", index)).WithContext("cartId", cartID)
		}
	}

	if err := c.gateway.SendCommand(ctx, cartID, mode, index); err != nil {
		metrics.CartCommandsTotal.WithLabelValues(string(mode), "failed").Inc()
		return err
	}

	slog.Info("Cart command accepted", "cart_id", cartID, "mode", mode, "stream_index", index)
	metrics.CartCommandsTotal.WithLabelValues(string(mode), "accepted").Inc()
	return nil
}

// RecordHeartbeat stores the configuration the device just reported.
func (c *Controller) RecordHeartbeat(ctx context.Context, cartID uuid.UUID, cfg domain.CartConfiguration, online bool) error {
	err := c.equipment.RecordHeartbeat(ctx, cartID, cfg, online)
	if err == domain.ErrCartNotFound {
		return apperrors.NotFoundError("cart not found").WithContext("cartId", cartID)
	}
	return err
}
