package pricefeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"putshield-service/internal/application"
	"putshield-service/internal/domain"

	"github.com/cenkalti/backoff/v4"
	"github.com/shopspring/decimal"
)

const priceAPILatestPath = "/v1/prices"

// HTTPProvider fetches spot prices from the exchange price API. Transient
// failures (transport errors, 5xx) are retried with exponential backoff;
// everything else fails fast.
type HTTPProvider struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

var _ application.PriceFeed = (*HTTPProvider)(nil)

type priceAPIResp struct {
	Success   bool  `json:"success"`
	Timestamp int64 `json:"timestamp"`
	Prices    map[string]struct {
		Local decimal.Decimal `json:"local"`
		Ref   decimal.Decimal `json:"ref"`
	} `json:"prices"`
	Error *struct {
		Code int    `json:"code"`
		Info string `json:"info"`
	} `json:"error,omitempty"`
}

func (p *HTTPProvider) Current(ctx context.Context, assetID string) (domain.Price, error) {
	if p.BaseURL == "" || p.APIKey == "" {
		return domain.Price{}, errors.New("pricefeed: missing configuration")
	}

	u, err := url.Parse(p.BaseURL)
	if err != nil {
		return domain.Price{}, fmt.Errorf("pricefeed: invalid base url: %w", err)
	}
	u.Path = priceAPILatestPath
	q := u.Query()
	q.Set("access_key", p.APIKey)
	q.Set("symbols", assetID)
	u.RawQuery = q.Encode()

	var body priceAPIResp
	if err := p.getJSON(ctx, u.String(), &body); err != nil {
		return domain.Price{}, fmt.Errorf("%w: %w", domain.ErrUnavailable, err)
	}
	if !body.Success {
		if body.Error != nil {
			return domain.Price{}, fmt.Errorf("%w: pricefeed: %d %s", domain.ErrUnavailable, body.Error.Code, body.Error.Info)
		}
		return domain.Price{}, fmt.Errorf("%w: pricefeed: unsuccessful response", domain.ErrUnavailable)
	}

	entry, ok := body.Prices[assetID]
	if !ok {
		return domain.Price{}, fmt.Errorf("%w: pricefeed: no price for %s", domain.ErrUnavailable, assetID)
	}
	if !entry.Local.IsPositive() || !entry.Ref.IsPositive() {
		return domain.Price{}, fmt.Errorf("%w: pricefeed: non-positive price for %s", domain.ErrUnavailable, assetID)
	}

	asOf := time.Now().UTC()
	if body.Timestamp > 0 {
		asOf = time.Unix(body.Timestamp, 0).UTC()
	}

	return domain.Price{
		AssetID: assetID,
		Local:   entry.Local,
		Ref:     entry.Ref,
		AsOf:    asOf,
	}, nil
}

func (p *HTTPProvider) getJSON(ctx context.Context, rawURL string, out any) error {
	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = 200 * time.Millisecond
	exp.MaxInterval = 1 * time.Second
	exp.MaxElapsedTime = 3 * time.Second

	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 500 {
			return fmt.Errorf("server error %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return backoff.Permanent(fmt.Errorf("status %d", resp.StatusCode))
		}
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return backoff.Retry(op, backoff.WithContext(exp, ctx))
}
