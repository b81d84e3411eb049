package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Geolocation is the enrichment attached to a session at creation time. All
// fields are non-authoritative; nothing in the token protocol depends on
// them.
type Geolocation struct {
	Country     string  `json:"country"`
	CountryCode string  `json:"countryCode"`
	City        string  `json:"city"`
	Zip         string  `json:"zip"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	As          string  `json:"as"`
}

// Geolocator resolves an IP address to a location. Implementations must
// honor context cancellation; callers bound every lookup with a timeout.
type Geolocator interface {
	Lookup(ctx context.Context, ip string) (Geolocation, error)
}

// IPAPIGeolocator queries the free ip-api.com JSON endpoint.
type IPAPIGeolocator struct {
	Client  *http.Client
	BaseURL string
}

// NewIPAPIGeolocator builds a geolocator with a bounded HTTP client. The
// client timeout is a hard backstop; per-call contexts cut lookups shorter.
func NewIPAPIGeolocator(timeout time.Duration) *IPAPIGeolocator {
	return &IPAPIGeolocator{
		Client:  &http.Client{Timeout: timeout},
		BaseURL: "http://ip-api.com/json",
	}
}

// Lookup fetches geolocation data for ip. The endpoint reports failures in
// the payload with an HTTP 200, so the status field is checked explicitly.
func (g *IPAPIGeolocator) Lookup(ctx context.Context, ip string) (Geolocation, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.BaseURL+"/"+ip, nil)
	if err != nil {
		return Geolocation{}, err
	}
	resp, err := g.Client.Do(req)
	if err != nil {
		return Geolocation{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Geolocation{}, fmt.Errorf("geolocation: unexpected status %d", resp.StatusCode)
	}

	var payload struct {
		Geolocation
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Geolocation{}, err
	}
	if payload.Status != "success" {
		return Geolocation{}, fmt.Errorf("geolocation: lookup failed for %s", ip)
	}
	return payload.Geolocation, nil
}
