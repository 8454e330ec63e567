package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const defaultBaseURL = "https://api.aladhan.com/v1"

// Client communicates with the Al Adhan prayer times API.
type Client struct {
	httpClient *http.Client
	// BaseURL is the API base URL. Defaults to the Al Adhan API.
	// Exported for testing with httptest.
	BaseURL string
}

// NewClient creates a new API client with sensible defaults.
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		BaseURL: defaultBaseURL,
	}
}

// FetchByCoordinates fetches prayer times for the given date and coordinates.
func (c *Client) FetchByCoordinates(ctx context.Context, date time.Time, lat, lon float64, method, school int) (*Response, error) {
	endpoint := fmt.Sprintf("%s/timings/%s", c.BaseURL, date.Format("02-01-2006"))

	params := url.Values{}
	params.Set("latitude", fmt.Sprintf("%f", lat))
	params.Set("longitude", fmt.Sprintf("%f", lon))
	setMethodSchool(params, method, school)

	var resp Response
	if err := c.doRequest(ctx, endpoint, params, &resp); err != nil {
		return nil, err
	}
	if err := checkStatus(resp.Code, resp.Status); err != nil {
		return nil, err
	}
	return &resp, nil
}

// FetchByCity fetches prayer times for the given date, city, and country.
func (c *Client) FetchByCity(ctx context.Context, date time.Time, city, country string, method, school int) (*Response, error) {
	endpoint := fmt.Sprintf("%s/timingsByCity/%s", c.BaseURL, date.Format("02-01-2006"))

	params := url.Values{}
	params.Set("city", city)
	params.Set("country", country)
	setMethodSchool(params, method, school)

	var resp Response
	if err := c.doRequest(ctx, endpoint, params, &resp); err != nil {
		return nil, err
	}
	if err := checkStatus(resp.Code, resp.Status); err != nil {
		return nil, err
	}
	return &resp, nil
}

// FetchByAddress fetches prayer times for a free-form address such as
// "Regent's Park, London".
func (c *Client) FetchByAddress(ctx context.Context, date time.Time, address string, method, school int) (*Response, error) {
	endpoint := fmt.Sprintf("%s/timingsByAddress/%s", c.BaseURL, date.Format("02-01-2006"))

	params := url.Values{}
	params.Set("address", address)
	setMethodSchool(params, method, school)

	var resp Response
	if err := c.doRequest(ctx, endpoint, params, &resp); err != nil {
		return nil, err
	}
	if err := checkStatus(resp.Code, resp.Status); err != nil {
		return nil, err
	}
	return &resp, nil
}

// FetchCalendarByCoordinates fetches a whole month of prayer times for the given coordinates.
func (c *Client) FetchCalendarByCoordinates(ctx context.Context, year, month int, lat, lon float64, method, school int) (*CalendarResponse, error) {
	endpoint := fmt.Sprintf("%s/calendar/%d/%d", c.BaseURL, year, month)

	params := url.Values{}
	params.Set("latitude", fmt.Sprintf("%f", lat))
	params.Set("longitude", fmt.Sprintf("%f", lon))
	setMethodSchool(params, method, school)

	var resp CalendarResponse
	if err := c.doRequest(ctx, endpoint, params, &resp); err != nil {
		return nil, err
	}
	if err := checkStatus(resp.Code, resp.Status); err != nil {
		return nil, err
	}
	return &resp, nil
}

// FetchCalendarByCity fetches a whole month of prayer times for the given city.
func (c *Client) FetchCalendarByCity(ctx context.Context, year, month int, city, country string, method, school int) (*CalendarResponse, error) {
	endpoint := fmt.Sprintf("%s/calendarByCity/%d/%d", c.BaseURL, year, month)

	params := url.Values{}
	params.Set("city", city)
	params.Set("country", country)
	setMethodSchool(params, method, school)

	var resp CalendarResponse
	if err := c.doRequest(ctx, endpoint, params, &resp); err != nil {
		return nil, err
	}
	if err := checkStatus(resp.Code, resp.Status); err != nil {
		return nil, err
	}
	return &resp, nil
}

// FetchCalendarByAddress fetches a whole month of prayer times for a free-form address.
func (c *Client) FetchCalendarByAddress(ctx context.Context, year, month int, address string, method, school int) (*CalendarResponse, error) {
	endpoint := fmt.Sprintf("%s/calendarByAddress/%d/%d", c.BaseURL, year, month)

	params := url.Values{}
	params.Set("address", address)
	setMethodSchool(params, method, school)

	var resp CalendarResponse
	if err := c.doRequest(ctx, endpoint, params, &resp); err != nil {
		return nil, err
	}
	if err := checkStatus(resp.Code, resp.Status); err != nil {
		return nil, err
	}
	return &resp, nil
}

func setMethodSchool(params url.Values, method, school int) {
	if method >= 0 {
		params.Set("method", fmt.Sprintf("%d", method))
	}
	if school >= 0 {
		params.Set("school", fmt.Sprintf("%d", school))
	}
}

func checkStatus(code int, status string) error {
	if code != 200 {
		return fmt.Errorf("API error: code=%d status=%s", code, status)
	}
	return nil
}

func (c *Client) doRequest(ctx context.Context, endpoint string, params url.Values, out any) error {
	reqURL := fmt.Sprintf("%s?%s", endpoint, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build API request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode API response: %w", err)
	}

	return nil
}
