package forecast

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/kilianp07/hems/auth"
	"github.com/kilianp07/hems/core/model"
)

const defaultWholesaleURL = "https://digital.iservices.rte-france.com/open_api/wholesale_market/v2/france_power_exchanges"

// WholesaleConfig configures the day-ahead market price client.
type WholesaleConfig struct {
	URL  string    `json:"url"`
	Auth auth.Conf `json:"auth"`
	// Markup is added to the market price, in currency per kWh, to cover
	// network fees and taxes.
	Markup  float64       `json:"markup"`
	Timeout time.Duration `json:"timeout"`
}

// SetDefaults applies fallback values for optional fields.
func (c *WholesaleConfig) SetDefaults() {
	if c.URL == "" {
		c.URL = defaultWholesaleURL
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
}

// Validate checks mandatory fields.
func (c WholesaleConfig) Validate() error {
	if _, err := url.Parse(c.URL); err != nil {
		return fmt.Errorf("wholesale url: %w", err)
	}
	return c.Auth.Validate()
}

// WholesaleResponse mirrors the power exchange payload. Prices are per MWh.
type WholesaleResponse struct {
	FrancePowerExchanges []struct {
		StartDate   string `json:"start_date"`
		EndDate     string `json:"end_date"`
		UpdatedDate string `json:"updated_date"`
		Values      []struct {
			StartDate string  `json:"start_date"`
			EndDate   string  `json:"end_date"`
			Value     float64 `json:"value"`
			Price     float64 `json:"price"`
		} `json:"values"`
	} `json:"france_power_exchanges"`
}

type pricePoint struct {
	start, end time.Time
	perKWh     float64
}

// points flattens the response into intervals priced per kWh.
func (r WholesaleResponse) points(markup float64) ([]pricePoint, error) {
	var out []pricePoint
	for _, ex := range r.FrancePowerExchanges {
		for _, v := range ex.Values {
			s, err := time.Parse(time.RFC3339, v.StartDate)
			if err != nil {
				return nil, fmt.Errorf("failed to parse start %q: %w", v.StartDate, err)
			}
			e, err := time.Parse(time.RFC3339, v.EndDate)
			if err != nil {
				return nil, fmt.Errorf("failed to parse end %q: %w", v.EndDate, err)
			}
			out = append(out, pricePoint{start: s, end: e, perKWh: v.Price/1000 + markup})
		}
	}
	return out, nil
}

// WholesaleClient fetches day-ahead prices and expands them to 15 minute
// slots.
type WholesaleClient struct {
	cfg  WholesaleConfig
	auth *auth.ClientCred
	http *http.Client
}

func NewWholesaleClient(cfg WholesaleConfig) (*WholesaleClient, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &WholesaleClient{
		cfg:  cfg,
		auth: auth.NewClientCred(cfg.Auth),
		http: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Prices returns the slot prices from start. The result stops at the first
// slot the market has not priced yet; an uncovered first slot is an error.
func (w *WholesaleClient) Prices(ctx context.Context, start time.Time, slots int) ([]float64, error) {
	if slots <= 0 {
		slots = model.SlotsPerDay
	}
	end := start.Add(time.Duration(slots) * model.SlotDuration)
	resp, err := w.fetch(ctx, start, end, false)
	if err != nil {
		return nil, err
	}
	points, err := resp.points(w.cfg.Markup)
	if err != nil {
		return nil, err
	}
	prices := make([]float64, 0, slots)
	for i := 0; i < slots; i++ {
		at := start.Add(time.Duration(i) * model.SlotDuration)
		p, ok := priceAt(points, at)
		if !ok {
			break
		}
		prices = append(prices, p)
	}
	if len(prices) == 0 {
		return nil, fmt.Errorf("no market price covers %s", start.Format(time.RFC3339))
	}
	return prices, nil
}

func priceAt(points []pricePoint, at time.Time) (float64, bool) {
	for _, p := range points {
		if !at.Before(p.start) && at.Before(p.end) {
			return p.perKWh, true
		}
	}
	return 0, false
}

func (w *WholesaleClient) fetch(ctx context.Context, start, end time.Time, retried bool) (WholesaleResponse, error) {
	u, err := url.Parse(w.cfg.URL)
	if err != nil {
		return WholesaleResponse{}, err
	}
	q := u.Query()
	q.Set("start_date", start.Format(time.RFC3339))
	q.Set("end_date", end.Format(time.RFC3339))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return WholesaleResponse{}, fmt.Errorf("failed to create request: %w", err)
	}
	if err := w.auth.SetAuthHeader(ctx, req); err != nil {
		return WholesaleResponse{}, fmt.Errorf("failed to set auth header: %w", err)
	}
	resp, err := w.http.Do(req)
	if err != nil {
		return WholesaleResponse{}, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized && !retried {
		_, _ = io.Copy(io.Discard, resp.Body)
		if _, err := w.auth.ForceRefresh(ctx); err != nil {
			return WholesaleResponse{}, err
		}
		return w.fetch(ctx, start, end, true)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return WholesaleResponse{}, fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode, body)
	}
	var out WholesaleResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return WholesaleResponse{}, fmt.Errorf("failed to decode response: %w", err)
	}
	return out, nil
}
