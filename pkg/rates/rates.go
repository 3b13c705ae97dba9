package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// Provider supplies the authoritative market rate for a fiat currency.
// Premium is only a percentage offset; the displayed price is derived from
// this rate at the API edge and never travels on the wire.
type Provider interface {
	MarketPrice(ctx context.Context, fiat string) (float64, error)
}

// HTTPProvider fetches rates from a ticker endpoint: GET <base>/<FIAT>
// returning {"price": <number>}.
type HTTPProvider struct {
	BaseURL string
	Client  *http.Client
}

func NewHTTPProvider(baseURL string) *HTTPProvider {
	return &HTTPProvider{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (p *HTTPProvider) MarketPrice(ctx context.Context, fiat string) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.BaseURL+"/"+fiat, nil)
	if err != nil {
		return 0, err
	}
	resp, err := p.Client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("fetch rate for %s: %w", fiat, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("fetch rate for %s: status %d", fiat, resp.StatusCode)
	}

	var body struct {
		Price float64 `json:"price"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("decode rate for %s: %w", fiat, err)
	}
	return body.Price, nil
}

// DerivePrice converts a market rate and a premium percentage into a
// decimal-formatted price string. A non-numeric premium yields ok=false;
// the caller should fall back to omitting the price.
func DerivePrice(market float64, premium string) (string, bool) {
	p, err := strconv.ParseFloat(premium, 64)
	if err != nil || p != p {
		return "", false
	}
	price := market * (1 + p/100)
	return strconv.FormatFloat(price, 'f', 2, 64), true
}
