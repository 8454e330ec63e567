package geo

import (
	"context"
	"fmt"
	"net/url"
)

// userAgent identifies the client; Nominatim's usage policy rejects requests without one.
const userAgent = "prayer-widget/1.0"

// reverseURL is the Nominatim reverse geocoding endpoint. Overridden in tests.
var reverseURL = "https://nominatim.openstreetmap.org/reverse"

type nominatimResponse struct {
	DisplayName string `json:"display_name"`
	Error       string `json:"error"`
	Address     struct {
		City    string `json:"city"`
		Town    string `json:"town"`
		Village string `json:"village"`
		Country string `json:"country"`
	} `json:"address"`
}

// Place is the result of reverse geocoding a coordinate pair.
type Place struct {
	DisplayName string `json:"display_name"`
	City        string `json:"city,omitempty"`
	Country     string `json:"country,omitempty"`
}

// ReverseGeocode resolves coordinates to a place name using OpenStreetMap's
// Nominatim service.
func ReverseGeocode(ctx context.Context, lat, lon float64) (*Place, error) {
	params := url.Values{}
	params.Set("format", "jsonv2")
	params.Set("lat", fmt.Sprintf("%f", lat))
	params.Set("lon", fmt.Sprintf("%f", lon))

	var result nominatimResponse
	if err := getJSON(ctx, reverseURL+"?"+params.Encode(), "reverse geocoding", &result); err != nil {
		return nil, err
	}
	if result.Error != "" {
		return nil, fmt.Errorf("reverse geocoding failed: %s", result.Error)
	}
	if result.DisplayName == "" {
		return nil, fmt.Errorf("reverse geocoding returned no place for %.4f,%.4f", lat, lon)
	}

	city := result.Address.City
	if city == "" {
		city = result.Address.Town
	}
	if city == "" {
		city = result.Address.Village
	}

	return &Place{
		DisplayName: result.DisplayName,
		City:        city,
		Country:     result.Address.Country,
	}, nil
}
