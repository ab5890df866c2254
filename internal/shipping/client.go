// Package shipping talks to the external rate-shopping provider: quoting
// carrier rates for a parcel, purchasing a label for a previously quoted
// rate, and tracking. Provider failures surface as RateQuoteError or
// LabelPurchaseError; callers must offer a retry and never fall back to a
// silently invented rate.
package shipping

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"storefront/internal/domain"
)

// Rate is an immutable quote snapshot; selecting one never mutates it.
type Rate struct {
	ID            string `json:"id"`
	Carrier       string `json:"carrier"`
	Service       string `json:"service"`
	AmountCents   int64  `json:"amountCents"`
	EstimatedDays int    `json:"estimatedDays"`
}

type Label struct {
	TrackingNumber string `json:"trackingNumber"`
	LabelURL       string `json:"labelUrl"`
	Carrier        string `json:"carrier"`
	Service        string `json:"service"`
	Status         string `json:"status"`
	ETA            string `json:"eta,omitempty"`
}

type TrackingEvent struct {
	Status   string    `json:"status"`
	Location string    `json:"location,omitempty"`
	At       time.Time `json:"at"`
}

type Tracking struct {
	Status  string          `json:"status"`
	History []TrackingEvent `json:"history"`
}

// Parcel dimensions in centimeters, weight in kilograms.
type Parcel struct {
	LengthCM float64 `json:"length"`
	WidthCM  float64 `json:"width"`
	HeightCM float64 `json:"height"`
	WeightKG float64 `json:"weight"`
}

type Client interface {
	Quote(ctx context.Context, from, to domain.Address, parcel Parcel) ([]Rate, error)
	PurchaseLabel(ctx context.Context, rateID string) (*Label, error)
	Track(ctx context.Context, carrier, trackingNumber string) (*Tracking, error)
}

type httpClient struct {
	base   string
	apiKey string
	http   *http.Client
	logger *log.Logger
}

func NewClient(base, apiKey string, logger *log.Logger) Client {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &httpClient{
		base:   base,
		apiKey: apiKey,
		http:   &http.Client{Timeout: 20 * time.Second},
		logger: logger,
	}
}

type wireAddress struct {
	Name    string `json:"name"`
	Street1 string `json:"street1"`
	City    string `json:"city"`
	State   string `json:"state,omitempty"`
	Zip     string `json:"zip"`
	Country string `json:"country"`
	Email   string `json:"email,omitempty"`
}

type wireParcel struct {
	Length       string `json:"length"`
	Width        string `json:"width"`
	Height       string `json:"height"`
	DistanceUnit string `json:"distance_unit"`
	Weight       string `json:"weight"`
	MassUnit     string `json:"mass_unit"`
}

type wireRate struct {
	ObjectID     string `json:"object_id"`
	Provider     string `json:"provider"`
	ServiceLevel struct {
		Name string `json:"name"`
	} `json:"servicelevel"`
	Amount        string `json:"amount"`
	EstimatedDays int    `json:"estimated_days"`
}

func (c *httpClient) Quote(ctx context.Context, from, to domain.Address, parcel Parcel) ([]Rate, error) {
	payload := map[string]interface{}{
		"address_from": toWireAddress(from),
		"address_to":   toWireAddress(to),
		"parcels":      []wireParcel{toWireParcel(parcel)},
		"async":        false,
	}
	var resp struct {
		Rates []wireRate `json:"rates"`
	}
	if err := c.post(ctx, "/shipments", payload, &resp); err != nil {
		return nil, &domain.RateQuoteError{Err: err}
	}

	rates := make([]Rate, 0, len(resp.Rates))
	for _, r := range resp.Rates {
		rates = append(rates, Rate{
			ID:            r.ObjectID,
			Carrier:       r.Provider,
			Service:       r.ServiceLevel.Name,
			AmountCents:   parseAmountCents(r.Amount),
			EstimatedDays: r.EstimatedDays,
		})
	}
	if len(rates) == 0 {
		return nil, &domain.RateQuoteError{Err: fmt.Errorf("provider returned no rates")}
	}
	return rates, nil
}

func (c *httpClient) PurchaseLabel(ctx context.Context, rateID string) (*Label, error) {
	payload := map[string]interface{}{
		"rate":            rateID,
		"label_file_type": "PDF",
		"async":           false,
	}
	var resp struct {
		Status         string `json:"status"`
		TrackingNumber string `json:"tracking_number"`
		LabelURL       string `json:"label_url"`
		Rate           struct {
			Provider     string `json:"provider"`
			ServiceLevel struct {
				Name string `json:"name"`
			} `json:"servicelevel"`
			EstimatedDays int `json:"estimated_days"`
		} `json:"rate"`
	}
	if err := c.post(ctx, "/transactions", payload, &resp); err != nil {
		return nil, &domain.LabelPurchaseError{RateID: rateID, Err: err}
	}
	if resp.Status != "SUCCESS" || resp.TrackingNumber == "" {
		return nil, &domain.LabelPurchaseError{RateID: rateID, Err: fmt.Errorf("transaction status %q", resp.Status)}
	}
	return &Label{
		TrackingNumber: resp.TrackingNumber,
		LabelURL:       resp.LabelURL,
		Carrier:        resp.Rate.Provider,
		Service:        resp.Rate.ServiceLevel.Name,
		Status:         resp.Status,
		ETA:            fmt.Sprintf("%d days", resp.Rate.EstimatedDays),
	}, nil
}

func (c *httpClient) Track(ctx context.Context, carrier, trackingNumber string) (*Tracking, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/tracks/%s/%s", c.base, carrier, trackingNumber), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "ShippoToken "+c.apiKey)

	var resp struct {
		TrackingStatus struct {
			Status string `json:"status"`
		} `json:"tracking_status"`
		TrackingHistory []struct {
			Status         string    `json:"status"`
			Location       string    `json:"location"`
			StatusDate     time.Time `json:"status_date"`
		} `json:"tracking_history"`
	}
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}
	out := &Tracking{Status: resp.TrackingStatus.Status}
	for _, h := range resp.TrackingHistory {
		out.History = append(out.History, TrackingEvent{Status: h.Status, Location: h.Location, At: h.StatusDate})
	}
	return out, nil
}

func (c *httpClient) post(ctx context.Context, path string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "ShippoToken "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *httpClient) do(req *http.Request, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		c.logger.Printf("shipping: %s %s status=%d body=%s", req.Method, req.URL.Path, resp.StatusCode, b)
		return fmt.Errorf("shipping provider status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func toWireAddress(a domain.Address) wireAddress {
	return wireAddress{
		Name:    a.Name,
		Street1: a.Street,
		City:    a.City,
		State:   a.State,
		Zip:     a.PostalCode,
		Country: a.Country,
		Email:   a.Email,
	}
}

func toWireParcel(p Parcel) wireParcel {
	f := func(v float64) string { return fmt.Sprintf("%.2f", v) }
	return wireParcel{
		Length:       f(p.LengthCM),
		Width:        f(p.WidthCM),
		Height:       f(p.HeightCM),
		DistanceUnit: "cm",
		Weight:       f(p.WeightKG),
		MassUnit:     "kg",
	}
}

func parseAmountCents(amount string) int64 {
	var dollars, cents int64
	var seenDot bool
	digits := 0
	for _, ch := range amount {
		switch {
		case ch == '.':
			seenDot = true
		case ch >= '0' && ch <= '9':
			if seenDot {
				if digits < 2 {
					cents = cents*10 + int64(ch-'0')
					digits++
				}
			} else {
				dollars = dollars*10 + int64(ch-'0')
			}
		}
	}
	if digits == 1 {
		cents *= 10
	}
	return dollars*100 + cents
}
