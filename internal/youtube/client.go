package youtube

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/FIRSTinMI/fim-admin-api/internal/domain"
	apperrors "github.com/FIRSTinMI/fim-admin-api/internal/errors"
	"github.com/FIRSTinMI/fim-admin-api/internal/metrics"
)

const defaultAPIBaseURL = "https://www.googleapis.com/youtube/v3"

// tokenRefresher keeps the credential's access token valid before API calls.
type tokenRefresher interface {
	EnsureValidToken(ctx context.Context, cred *domain.PlatformCredential) (*domain.PlatformCredential, error)
}

// Client implements domain.PlatformClient against the YouTube Data API v3.
type Client struct {
	refresher  tokenRefresher
	apiBaseURL string // configurable for testing
	httpClient *http.Client
}

func NewClient(store domain.CredentialStore, clientID, clientSecret string) *Client {
	return &Client{
		refresher:  NewTokenRefresher(store, clientID, clientSecret),
		apiBaseURL: defaultAPIBaseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *Client) Platform() domain.Platform { return domain.PlatformYoutube }

// broadcastResource mirrors the liveBroadcasts resource fields we consume.
type broadcastResource struct {
	ID      string `json:"id,omitempty"`
	Snippet struct {
		Title              string `json:"title"`
		ChannelID          string `json:"channelId,omitempty"`
		ScheduledStartTime string `json:"scheduledStartTime,omitempty"`
		ScheduledEndTime   string `json:"scheduledEndTime,omitempty"`
	} `json:"snippet"`
	Status *struct {
		LifeCycleStatus string `json:"lifeCycleStatus,omitempty"`
		PrivacyStatus   string `json:"privacyStatus,omitempty"`
	} `json:"status,omitempty"`
	ContentDetails *struct {
		BoundStreamID   string `json:"boundStreamId,omitempty"`
		EnableAutoStart bool   `json:"enableAutoStart"`
		EnableAutoStop  bool   `json:"enableAutoStop"`
	} `json:"contentDetails,omitempty"`
}

type broadcastListResponse struct {
	Items []broadcastResource `json:"items"`
}

type liveStreamListResponse struct {
	Items []struct {
		ID     string `json:"id"`
		Status struct {
			StreamStatus string `json:"streamStatus"`
			HealthStatus struct {
				Status              string `json:"status"`
				ConfigurationIssues []struct {
					Reason      string `json:"reason"`
					Description string `json:"description"`
				} `json:"configurationIssues"`
			} `json:"healthStatus"`
		} `json:"status"`
	} `json:"items"`
}

// EnsureBroadcast updates the existing broadcast's title and schedule when it
// is still usable, and creates a fresh one otherwise. A completed or revoked
// broadcast cannot be reopened on YouTube, so those always get a new one.
func (c *Client) EnsureBroadcast(ctx context.Context, cred *domain.PlatformCredential, req domain.BroadcastRequest) (*domain.BroadcastResult, error) {
	cred, err := c.refresher.EnsureValidToken(ctx, cred)
	if err != nil {
		return nil, translateRefreshError(err)
	}

	if req.ExistingID != "" {
		existing, err := c.getBroadcast(ctx, cred, req.ExistingID)
		if err != nil && !apperrors.IsNotFound(err) {
			return nil, err
		}
		if existing != nil && reusable(existing) {
			return c.updateBroadcast(ctx, cred, existing.ID, req)
		}
	}

	return c.insertBroadcast(ctx, cred, req)
}

func reusable(b *broadcastResource) bool {
	if b.Status == nil {
		return true
	}
	lc := domain.LifecycleStatus(b.Status.LifeCycleStatus)
	return lc != domain.LifecycleComplete && lc != domain.LifecycleRevoked
}

func (c *Client) getBroadcast(ctx context.Context, cred *domain.PlatformCredential, id string) (*broadcastResource, error) {
	params := url.Values{}
	params.Set("part", "id,snippet,status,contentDetails")
	params.Set("id", id)

	var list broadcastListResponse
	err := c.call(ctx, cred, "get_broadcast", http.MethodGet, "/liveBroadcasts?"+params.Encode(), nil, &list)
	if err != nil {
		return nil, err
	}
	if len(list.Items) == 0 {
		return nil, nil
	}
	return &list.Items[0], nil
}

func (c *Client) insertBroadcast(ctx context.Context, cred *domain.PlatformCredential, req domain.BroadcastRequest) (*domain.BroadcastResult, error) {
	var body broadcastResource
	body.Snippet.Title = req.Title
	body.Snippet.ScheduledStartTime = req.StartTime.UTC().Format(time.RFC3339)
	body.Snippet.ScheduledEndTime = req.EndTime.UTC().Format(time.RFC3339)
	body.Status = &struct {
		LifeCycleStatus string `json:"lifeCycleStatus,omitempty"`
		PrivacyStatus   string `json:"privacyStatus,omitempty"`
	}{PrivacyStatus: "public"}
	body.ContentDetails = &struct {
		BoundStreamID   string `json:"boundStreamId,omitempty"`
		EnableAutoStart bool   `json:"enableAutoStart"`
		EnableAutoStop  bool   `json:"enableAutoStop"`
	}{EnableAutoStart: true, EnableAutoStop: true}

	var created broadcastResource
	err := c.call(ctx, cred, "insert_broadcast", http.MethodPost, "/liveBroadcasts?part=id,snippet,status,contentDetails", body, &created)
	if err != nil {
		return nil, err
	}
	return broadcastResult(&created), nil
}

func (c *Client) updateBroadcast(ctx context.Context, cred *domain.PlatformCredential, id string, req domain.BroadcastRequest) (*domain.BroadcastResult, error) {
	var body broadcastResource
	body.ID = id
	body.Snippet.Title = req.Title
	body.Snippet.ScheduledStartTime = req.StartTime.UTC().Format(time.RFC3339)
	body.Snippet.ScheduledEndTime = req.EndTime.UTC().Format(time.RFC3339)

	var updated broadcastResource
	err := c.call(ctx, cred, "update_broadcast", http.MethodPut, "/liveBroadcasts?part=id,snippet", body, &updated)
	if err != nil {
		return nil, err
	}
	return broadcastResult(&updated), nil
}

func broadcastResult(b *broadcastResource) *domain.BroadcastResult {
	return &domain.BroadcastResult{
		InternalID: b.ID,
		Title:      b.Snippet.Title,
		URL:        fmt.Sprintf("https://youtube.com/watch?v=%s", b.ID),
	}
}

// GetStatuses fetches all of the account's broadcasts and joins each with
// its bound ingest stream, since lifecycle and ingest health live on
// different resources.
func (c *Client) GetStatuses(ctx context.Context, cred *domain.PlatformCredential) ([]domain.PlatformStatus, error) {
	cred, err := c.refresher.EnsureValidToken(ctx, cred)
	if err != nil {
		return nil, translateRefreshError(err)
	}

	params := url.Values{}
	params.Set("part", "id,snippet,status,contentDetails")
	params.Set("mine", "true")
	params.Set("maxResults", "50")

	var broadcasts broadcastListResponse
	if err := c.call(ctx, cred, "list_broadcasts", http.MethodGet, "/liveBroadcasts?"+params.Encode(), nil, &broadcasts); err != nil {
		return nil, err
	}

	streams, err := c.getBoundStreams(ctx, cred, broadcasts.Items)
	if err != nil {
		return nil, err
	}

	statuses := make([]domain.PlatformStatus, 0, len(broadcasts.Items))
	for _, b := range broadcasts.Items {
		status := domain.PlatformStatus{
			Platform:    domain.PlatformYoutube,
			BroadcastID: b.ID,
		}
		if b.Status != nil {
			status.Lifecycle = domain.LifecycleStatus(b.Status.LifeCycleStatus)
		}
		if b.ContentDetails != nil {
			status.AutoStart = b.ContentDetails.EnableAutoStart
			if s, ok := streams[b.ContentDetails.BoundStreamID]; ok {
				status.Health = domain.HealthStatus(s.health)
				status.IsLive = s.health == string(domain.HealthActive)
				status.HealthMessages = s.messages
			}
		}
		if t, err := time.Parse(time.RFC3339, b.Snippet.ScheduledStartTime); err == nil {
			status.ScheduledStartTime = t
		}
		if t, err := time.Parse(time.RFC3339, b.Snippet.ScheduledEndTime); err == nil {
			status.ScheduledEndTime = t
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

type boundStream struct {
	health   string
	messages []string
}

func (c *Client) getBoundStreams(ctx context.Context, cred *domain.PlatformCredential, broadcasts []broadcastResource) (map[string]boundStream, error) {
	var ids []string
	for _, b := range broadcasts {
		if b.ContentDetails != nil && b.ContentDetails.BoundStreamID != "" {
			ids = append(ids, b.ContentDetails.BoundStreamID)
		}
	}
	if len(ids) == 0 {
		return map[string]boundStream{}, nil
	}

	params := url.Values{}
	params.Set("part", "id,status")
	params.Set("id", strings.Join(ids, ","))

	var list liveStreamListResponse
	if err := c.call(ctx, cred, "list_streams", http.MethodGet, "/liveStreams?"+params.Encode(), nil, &list); err != nil {
		return nil, err
	}

	streams := make(map[string]boundStream, len(list.Items))
	for _, item := range list.Items {
		s := boundStream{health: item.Status.StreamStatus}
		for _, issue := range item.Status.HealthStatus.ConfigurationIssues {
			msg := issue.Description
			if msg == "" {
				msg = issue.Reason
			}
			s.messages = append(s.messages, msg)
		}
		streams[item.ID] = s
	}
	return streams, nil
}

// StopBroadcast transitions a broadcast to complete. Idempotent from the
// caller's view: stopping an already-complete broadcast reports a conflict
// that the service layer treats as done.
func (c *Client) StopBroadcast(ctx context.Context, cred *domain.PlatformCredential, internalID string) error {
	cred, err := c.refresher.EnsureValidToken(ctx, cred)
	if err != nil {
		return translateRefreshError(err)
	}

	params := url.Values{}
	params.Set("broadcastStatus", "complete")
	params.Set("id", internalID)
	params.Set("part", "status")

	var transitioned broadcastResource
	return c.call(ctx, cred, "stop_broadcast", http.MethodPost, "/liveBroadcasts/transition?"+params.Encode(), nil, &transitioned)
}

func (c *Client) call(ctx context.Context, cred *domain.PlatformCredential, operation, method, path string, reqBody, respBody any) error {
	start := time.Now()
	err := c.doCall(ctx, cred, method, path, reqBody, respBody)
	metrics.PlatformCallDuration.WithLabelValues("youtube", operation).Observe(time.Since(start).Seconds())

	result := "success"
	if err != nil {
		result = "error"
	}
	metrics.PlatformCallsTotal.WithLabelValues("youtube", operation, result).Inc()
	return err
}

func (c *Client) doCall(ctx context.Context, cred *domain.PlatformCredential, method, path string, reqBody, respBody any) error {
	var payload io.Reader
	if reqBody != nil {
		encoded, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		payload = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.apiBaseURL+path, payload)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+cred.AccessToken)
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.TransientError("youtube api unreachable", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperrors.TransientError("failed to read youtube response", err)
	}

	if resp.StatusCode >= 400 {
		return classifyAPIError(resp.StatusCode, body)
	}

	if respBody != nil && len(body) > 0 {
		if err := json.Unmarshal(body, respBody); err != nil {
			return fmt.Errorf("failed to decode youtube response: %w", err)
		}
	}
	return nil
}

func classifyAPIError(statusCode int, body []byte) error {
	msg := apiErrorMessage(body)
	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return apperrors.PermissionError(msg).WithContext("statusCode", statusCode)
	case statusCode == http.StatusNotFound:
		return apperrors.NotFoundError(msg)
	case statusCode == http.StatusConflict:
		return apperrors.ConflictError(msg)
	case statusCode == http.StatusTooManyRequests || statusCode >= 500:
		return apperrors.TransientError(msg, nil).WithContext("statusCode", statusCode)
	default:
		return apperrors.InternalError(msg, nil).WithContext("statusCode", statusCode)
	}
}

func apiErrorMessage(body []byte) string {
	var parsed struct {
		Error struct {
			Message string `json:"message"`
			Errors  []struct {
				Reason string `json:"reason"`
			} `json:"errors"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Message != "" {
		return parsed.Error.Message
	}
	return "youtube api request failed"
}

func translateRefreshError(err error) error {
	var refreshErr *TokenRefreshError
	if errors.As(err, &refreshErr) && refreshErr.Revoked {
		return apperrors.PermissionError("youtube account authorization was revoked; reconnect the account")
	}
	return apperrors.TransientError("failed to refresh youtube token", err)
}
