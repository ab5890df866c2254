// Package address validates shipping addresses: a static postal-code rule
// table for the cheap inline checks, and a geocoding provider for forward
// search and full validation.
package address

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"storefront/internal/domain"
)

// Candidate is one forward-search suggestion.
type Candidate struct {
	Label      string  `json:"label"`
	Street     string  `json:"street,omitempty"`
	City       string  `json:"city,omitempty"`
	State      string  `json:"state,omitempty"`
	PostalCode string  `json:"postalCode,omitempty"`
	Country    string  `json:"country,omitempty"`
	Confidence float64 `json:"confidence"`
}

// Result is the outcome of validating a full address.
type Result struct {
	Valid      bool            `json:"valid"`
	Normalized *domain.Address `json:"normalized,omitempty"`
}

type Validator interface {
	Forward(ctx context.Context, query, lang, country string) ([]Candidate, error)
	Validate(ctx context.Context, addr domain.Address) (*Result, error)
}

type httpValidator struct {
	base   string
	apiKey string
	http   *http.Client
	logger *log.Logger
}

func NewValidator(base, apiKey string, logger *log.Logger) Validator {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &httpValidator{
		base:   base,
		apiKey: apiKey,
		http:   &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}
}

type geocodeResponse struct {
	Results []struct {
		Formatted string `json:"formatted"`
		Street    string `json:"street"`
		City      string `json:"city"`
		State     string `json:"state"`
		Postcode  string `json:"postcode"`
		Country   string `json:"country_code"`
		Rank      struct {
			Confidence float64 `json:"confidence"`
		} `json:"rank"`
	} `json:"results"`
}

func (v *httpValidator) Forward(ctx context.Context, query, lang, country string) ([]Candidate, error) {
	params := url.Values{
		"text":   {query},
		"apiKey": {v.apiKey},
		"format": {"json"},
		"limit":  {"5"},
	}
	if lang != "" {
		params.Set("lang", lang)
	}
	if country != "" {
		params.Set("filter", "countrycode:"+strings.ToLower(country))
	}

	var resp geocodeResponse
	if err := v.get(ctx, "/search?"+params.Encode(), &resp); err != nil {
		return nil, err
	}

	out := make([]Candidate, 0, len(resp.Results))
	for _, r := range resp.Results {
		out = append(out, Candidate{
			Label:      r.Formatted,
			Street:     r.Street,
			City:       r.City,
			State:      r.State,
			PostalCode: r.Postcode,
			Country:    strings.ToUpper(r.Country),
			Confidence: r.Rank.Confidence,
		})
	}
	return out, nil
}

// Validate geocodes the full address and accepts it when the best match is
// confident enough. The normalized form comes back for display; callers
// keep the user's input as the authoritative value.
func (v *httpValidator) Validate(ctx context.Context, addr domain.Address) (*Result, error) {
	query := strings.Join([]string{addr.Street, addr.City, addr.PostalCode}, ", ")
	candidates, err := v.Forward(ctx, query, "", addr.Country)
	if err != nil {
		return nil, err
	}

	const minConfidence = 0.5
	for _, c := range candidates {
		if c.Confidence >= minConfidence {
			normalized := addr
			if c.Street != "" {
				normalized.Street = c.Street
			}
			if c.City != "" {
				normalized.City = c.City
			}
			if c.PostalCode != "" {
				normalized.PostalCode = c.PostalCode
			}
			return &Result{Valid: true, Normalized: &normalized}, nil
		}
	}
	return &Result{Valid: false}, nil
}

func (v *httpValidator) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.base+path, nil)
	if err != nil {
		return err
	}
	resp, err := v.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		v.logger.Printf("address: GET %s status=%d body=%s", path, resp.StatusCode, b)
		return fmt.Errorf("address provider status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
