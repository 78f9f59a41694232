package avcart

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/FIRSTinMI/fim-admin-api/internal/domain"
	apperrors "github.com/FIRSTinMI/fim-admin-api/internal/errors"
)

// Gateway implements domain.CartGateway over the cart control channel's HTTP
// surface. A 2xx means the command was queued for the device, nothing more.
type Gateway struct {
	baseURL    string
	authToken  string
	httpClient *http.Client
}

func NewGateway(baseURL, authToken string) *Gateway {
	return &Gateway{
		baseURL:    strings.TrimRight(baseURL, "/"),
		authToken:  authToken,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type commandPayload struct {
	Mode        string `json:"mode"`
	StreamIndex *int   `json:"streamIndex,omitempty"`
}

func (g *Gateway) SendCommand(ctx context.Context, cartID uuid.UUID, mode domain.CartControlMode, streamIndex int) error {
	payload := commandPayload{Mode: string(mode)}
	if streamIndex >= 0 {
		payload.StreamIndex = &streamIndex
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode command: %w", err)
	}

	url := fmt.Sprintf("%s/carts/%s/commands", g.baseURL, cartID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("failed to build command request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+g.authToken)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		// the cart may simply be briefly disconnected
		return apperrors.TransientError("cart control channel unreachable", err).
			WithContext("cartId", cartID)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	body, _ := io.ReadAll(resp.Body)
	msg := fmt.Sprintf("cart command rejected with status %d: %s", resp.StatusCode, string(body))
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return apperrors.PermissionError(msg).WithContext("cartId", cartID)
	case resp.StatusCode == http.StatusNotFound:
		return apperrors.NotFoundError("cart is not registered with the control channel").
			WithContext("cartId", cartID)
	default:
		// device offline and gateway errors both read as transient
		return apperrors.TransientError(msg, nil).WithContext("cartId", cartID)
	}
}
