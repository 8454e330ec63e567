// Package geo locates the user: by public IP when no location is configured,
// and by reverse geocoding coordinates into a human-readable place name.
package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Location holds geographic coordinates detected from the user's IP.
type Location struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
	City      string  `json:"city"`
	Country   string  `json:"country"`
	Timezone  string  `json:"timezone"`
}

// ipAPIResponse maps the response from ip-api.com.
type ipAPIResponse struct {
	Status   string  `json:"status"`
	Message  string  `json:"message"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	City     string  `json:"city"`
	Country  string  `json:"country"`
	Timezone string  `json:"timezone"`
}

// geoAPIURL is the geolocation API endpoint. It is a variable (not a constant)
// so that tests can override it with an httptest server URL.
var geoAPIURL = "http://ip-api.com/json/?fields=status,message,lat,lon,city,country,timezone"

var httpClient = &http.Client{Timeout: 5 * time.Second}

// DetectLocation uses ip-api.com to determine the user's location from their
// public IP address. This is a free service that requires no API key.
func DetectLocation(ctx context.Context) (*Location, error) {
	var result ipAPIResponse
	if err := getJSON(ctx, geoAPIURL, "geolocation", &result); err != nil {
		return nil, err
	}

	if result.Status != "success" {
		return nil, fmt.Errorf("geolocation failed: %s", result.Message)
	}

	return &Location{
		Latitude:  result.Lat,
		Longitude: result.Lon,
		City:      result.City,
		Country:   result.Country,
		Timezone:  result.Timezone,
	}, nil
}

// getJSON performs a GET and decodes the JSON body into out. what names the
// service in error messages.
func getJSON(ctx context.Context, url, what string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", what, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", what, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s API returned status %d", what, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", what, err)
	}
	return nil
}
