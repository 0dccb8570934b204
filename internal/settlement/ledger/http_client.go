package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/radieske/bet-settlement-engine/internal/settlement/ledger/dto"
)

// HTTPClient credita via wallet-service (/wallet/deposit com external_ref)
type HTTPClient struct {
	BaseURL string
	HTTP    *http.Client
}

func NewHTTPClient(base string) *HTTPClient {
	return &HTTPClient{
		BaseURL: base,
		HTTP:    &http.Client{Timeout: 2 * time.Second},
	}
}

func (c *HTTPClient) Credit(ctx context.Context, userID string, amountCents int64, ref string) error {
	body, err := json.Marshal(dto.DepositRequest{UserID: userID, AmountCents: amountCents, ExternalRef: ref})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/wallet/deposit", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: user %s", ErrWalletNotFound, userID)
	}
	if res.StatusCode >= 300 {
		return fmt.Errorf("wallet deposit http %d", res.StatusCode)
	}
	return nil
}

func (c *HTTPClient) Balance(ctx context.Context, userID string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/wallet?userId="+url.QueryEscape(userID), nil)
	if err != nil {
		return 0, err
	}
	res, err := c.HTTP.Do(req)
	if err != nil {
		return 0, err
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusNotFound {
		return 0, ErrWalletNotFound
	}
	if res.StatusCode >= 300 {
		return 0, fmt.Errorf("wallet get http %d", res.StatusCode)
	}
	var out dto.WalletResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return 0, err
	}
	return out.BalanceCents, nil
}
