// Package provision creates or updates platform broadcasts for routed events
// and records them in the stream registry. Each event in a batch is processed
// independently; only a permission failure aborts the whole invocation.
package provision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/FIRSTinMI/fim-admin-api/internal/domain"
	apperrors "github.com/FIRSTinMI/fim-admin-api/internal/errors"
	"github.com/FIRSTinMI/fim-admin-api/internal/metrics"
)

// maxConcurrent bounds the platform-call fan-out for one batch.
const maxConcurrent = 4

// Outcome classifies what happened to one event in a batch.
type Outcome string

const (
	OutcomeProvisioned Outcome = "provisioned"
	OutcomeSkipped     Outcome = "skipped"
	OutcomeFailed      Outcome = "failed"
)

// EventResult is the per-event slice of a batch result.
type EventResult struct {
	EventID   uuid.UUID           `json:"eventId"`
	Outcome   Outcome             `json:"outcome"`
	Stream    *domain.EventStream `json:"stream,omitempty"`
	Reason    string              `json:"reason,omitempty"`
	Retryable bool                `json:"retryable"`

	// permission marks a failure as fatal to the whole invocation
	permission bool
}

// BatchResult reports every event's outcome. There is no all-or-nothing
// semantics; callers re-read the registry after any batch.
type BatchResult struct {
	Results []EventResult `json:"results"`
}

// Failed returns the results that ended in failure.
func (b *BatchResult) Failed() []EventResult {
	var failed []EventResult
	for _, r := range b.Results {
		if r.Outcome == OutcomeFailed {
			failed = append(failed, r)
		}
	}
	return failed
}

// Provisioner drives create-or-update of broadcasts for routed events.
type Provisioner struct {
	catalog   domain.EventCatalog
	registry  domain.StreamRegistry
	creds     domain.CredentialStore
	platforms map[domain.Platform]domain.PlatformClient

	// serializes concurrent provisioning of the same event; the upsert key
	// in the registry is the real duplicate guard, this just avoids racing
	// platform calls for one event.
	inflight singleflight.Group
}

func NewProvisioner(catalog domain.EventCatalog, registry domain.StreamRegistry, creds domain.CredentialStore, clients ...domain.PlatformClient) *Provisioner {
	platforms := make(map[domain.Platform]domain.PlatformClient, len(clients))
	for _, c := range clients {
		platforms[c.Platform()] = c
	}
	return &Provisioner{
		catalog:   catalog,
		registry:  registry,
		creds:     creds,
		platforms: platforms,
	}
}

// Provision processes each event id independently and reports per-event
// outcomes. A permission error from any platform call is fatal to the whole
// invocation since it reflects caller privilege, not per-event state.
func (p *Provisioner) Provision(ctx context.Context, eventIDs []uuid.UUID) (*BatchResult, error) {
	// The dashboard posts whatever its season filter yields; an empty
	// selection is a no-op, not an error.
	if len(eventIDs) == 0 {
		return &BatchResult{}, nil
	}

	start := time.Now()
	defer func() {
		metrics.ProvisionBatchDuration.Observe(time.Since(start).Seconds())
	}()

	events, err := p.catalog.GetByIDs(ctx, eventIDs)
	if err != nil {
		return nil, apperrors.InternalError("failed to load events", err)
	}
	byID := make(map[uuid.UUID]domain.Event, len(events))
	for _, e := range events {
		byID[e.ID] = e
	}

	results := make([]EventResult, len(eventIDs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrent)
	for i, id := range eventIDs {
		i, id := i, id
		g.Go(func() error {
			event, ok := byID[id]
			if !ok {
				results[i] = EventResult{EventID: id, Outcome: OutcomeFailed, Reason: "event not found"}
				metrics.ProvisionEventsTotal.WithLabelValues("none", string(OutcomeFailed)).Inc()
				return nil
			}

			result, err := p.provisionOne(gctx, event)
			if err != nil {
				// fatal: abort siblings
				return err
			}
			results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &BatchResult{Results: results}, nil
}

// ProvisionSeason provisions every routed event in the season whose window
// covers now. A season with no current routed events yields an empty batch.
func (p *Provisioner) ProvisionSeason(ctx context.Context, seasonID int64, now time.Time) (*BatchResult, error) {
	events, err := p.catalog.ListCurrentRouted(ctx, seasonID, now)
	if err != nil {
		return nil, apperrors.InternalError("failed to load season events", err)
	}
	if len(events) == 0 {
		return &BatchResult{}, nil
	}

	ids := make([]uuid.UUID, len(events))
	for i, e := range events {
		ids[i] = e.ID
	}
	return p.Provision(ctx, ids)
}

// provisionOne returns an error only for conditions fatal to the whole batch.
func (p *Provisioner) provisionOne(ctx context.Context, event domain.Event) (EventResult, error) {
	v, err, _ := p.inflight.Do(event.ID.String(), func() (any, error) {
		return p.doProvision(ctx, event), nil
	})
	if err != nil {
		return EventResult{}, err
	}

	result := v.(EventResult)
	if result.Outcome == OutcomeFailed && !result.Retryable && result.permission {
		return EventResult{}, apperrors.PermissionError(result.Reason)
	}
	return result, nil
}

func (p *Provisioner) doProvision(ctx context.Context, event domain.Event) EventResult {
	if event.Route == nil || !event.Route.Streaming.Eligible() {
		metrics.ProvisionEventsTotal.WithLabelValues("none", string(OutcomeSkipped)).Inc()
		return EventResult{EventID: event.ID, Outcome: OutcomeSkipped, Reason: "no streamable route"}
	}

	cfg := event.Route.Streaming
	platform := string(cfg.Platform)

	client, ok := p.platforms[cfg.Platform]
	if !ok {
		metrics.ProvisionEventsTotal.WithLabelValues(platform, string(OutcomeFailed)).Inc()
		return EventResult{EventID: event.ID, Outcome: OutcomeFailed,
			Reason: fmt.Sprintf("platform %s is not configured", platform)}
	}

	cred, err := p.credentialFor(ctx, cfg.Platform)
	if err != nil {
		return p.failure(event, platform, err)
	}

	// A prior row for the same (event, platform, channel) means update. A
	// registry read failure must not be mistaken for "no row": creating a
	// fresh broadcast here would orphan the one the lost row points at.
	existingID := ""
	existing, err := p.registry.GetByKey(ctx, event.ID, cfg.Platform, cfg.ChannelID)
	switch {
	case err == nil:
		existingID = existing.InternalID
	case errors.Is(err, domain.ErrStreamNotFound):
	default:
		return p.failure(event, platform, apperrors.TransientError("failed to read event stream registry", err))
	}

	broadcast, err := client.EnsureBroadcast(ctx, cred, domain.BroadcastRequest{
		ChannelID:  cfg.ChannelID,
		ExistingID: existingID,
		Title:      event.Name,
		StartTime:  event.StartTime,
		EndTime:    event.EndTime,
	})
	if err != nil {
		return p.failure(event, platform, err)
	}

	stream, err := p.registry.Upsert(ctx, domain.StreamUpsert{
		EventID:    event.ID,
		Platform:   cfg.Platform,
		InternalID: broadcast.InternalID,
		Channel:    cfg.ChannelID,
		Title:      broadcast.Title,
		URL:        broadcast.URL,
	})
	if err != nil {
		return p.failure(event, platform, apperrors.InternalError("broadcast created but registry write failed", err))
	}

	slog.Info("Provisioned event stream",
		"event_id", event.ID, "platform", platform,
		"internal_id", broadcast.InternalID, "updated", existingID != "")
	metrics.ProvisionEventsTotal.WithLabelValues(platform, string(OutcomeProvisioned)).Inc()
	return EventResult{EventID: event.ID, Outcome: OutcomeProvisioned, Stream: stream}
}

func (p *Provisioner) credentialFor(ctx context.Context, platform domain.Platform) (*domain.PlatformCredential, error) {
	creds, err := p.creds.ListByPlatform(ctx, platform)
	if err != nil {
		return nil, apperrors.InternalError("failed to load platform credentials", err)
	}
	if len(creds) == 0 {
		return nil, apperrors.PermissionError(
			fmt.Sprintf("no %s account is connected; connect one before provisioning", platform))
	}
	return &creds[0], nil
}

func (p *Provisioner) failure(event domain.Event, platform string, err error) EventResult {
	structured := apperrors.AsStructuredError(err)
	metrics.ProvisionEventsTotal.WithLabelValues(platform, string(OutcomeFailed)).Inc()
	return EventResult{
		EventID:    event.ID,
		Outcome:    OutcomeFailed,
		Reason:     structured.Message,
		Retryable:  structured.Retryable(),
		permission: structured.Type == apperrors.TypePermission,
	}
}
