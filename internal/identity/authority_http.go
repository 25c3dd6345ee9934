package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/filedock/backend/internal/apperrors"
)

// HTTPAuthority validates tokens against a remote identity service.
type HTTPAuthority struct {
	baseURL string
	client  *http.Client
}

func NewHTTPAuthority(baseURL string, timeout time.Duration) *HTTPAuthority {
	return &HTTPAuthority{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type validateRequest struct {
	Token string `json:"token"`
}

type validateResponse struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	IsActive    bool   `json:"is_active"`
	ExpiresAt   int64  `json:"expires_at"`
}

// Validate POSTs the token to the authority's validate endpoint.
// 401/403 means the token is unknown; 5xx and transport failures are
// transient and eligible for retry.
func (a *HTTPAuthority) Validate(ctx context.Context, token string) (*Identity, error) {
	body, err := json.Marshal(validateRequest{Token: token})
	if err != nil {
		return nil, fmt.Errorf("encode validate request: %w", err)
	}

	url := a.baseURL + "/api/v1/sessions/validate"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build validate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindTransientDownstream, "identity authority unreachable", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		var vr validateResponse
		if err := json.NewDecoder(resp.Body).Decode(&vr); err != nil {
			return nil, fmt.Errorf("decode validate response: %w", err)
		}
		return &Identity{
			UserID:      vr.UserID,
			DisplayName: vr.DisplayName,
			IsActive:    vr.IsActive,
			ExpiresAt:   time.Unix(vr.ExpiresAt, 0).UTC(),
		}, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		// Definitive answer: the authority does not recognize the token.
		return nil, nil
	case resp.StatusCode >= 500:
		return nil, apperrors.Newf(apperrors.KindTransientDownstream, "identity authority returned HTTP %d", resp.StatusCode)
	default:
		return nil, fmt.Errorf("identity authority returned unexpected HTTP %d", resp.StatusCode)
	}
}
