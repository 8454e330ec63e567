package cli

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/smokyabdulrahman/prayer-widget/internal/api"
	"github.com/smokyabdulrahman/prayer-widget/internal/cache"
	"github.com/smokyabdulrahman/prayer-widget/internal/config"
	"github.com/smokyabdulrahman/prayer-widget/internal/geo"
	"github.com/smokyabdulrahman/prayer-widget/internal/prayer"
)

func testTimings() api.Timings {
	return api.Timings{
		Fajr:       "05:51",
		Sunrise:    "07:10",
		Dhuhr:      "12:27",
		Asr:        "15:21",
		Sunset:     "17:40",
		Maghrib:    "17:40",
		Isha:       "19:04",
		Imsak:      "05:41",
		Midnight:   "00:06",
		Firstthird: "22:11",
		Lastthird:  "02:02",
	}
}

func testData(tz string) api.Data {
	return api.Data{
		Timings: testTimings(),
		Meta:    api.Meta{Latitude: 21.4225, Longitude: 39.8262, Timezone: tz},
	}
}

// apiStub serves Al Adhan shaped responses and records request paths.
type apiStub struct {
	tz     string
	status int

	mu    sync.Mutex
	paths []string
}

func (a *apiStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	a.paths = append(a.paths, r.URL.Path)
	a.mu.Unlock()

	if a.status != 0 {
		http.Error(w, "unavailable", a.status)
		return
	}

	var body any = api.Response{Code: 200, Status: "OK", Data: testData(a.tz)}
	if strings.Contains(r.URL.Path, "calendar") {
		days := make([]api.Data, 31)
		for i := range days {
			days[i] = testData(a.tz)
		}
		body = api.CalendarResponse{Code: 200, Status: "OK", Data: days}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(body)
}

func (a *apiStub) requests() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.paths...)
}

// newTestSession returns a session talking to stub with a fresh cache.
func newTestSession(t *testing.T, stub *apiStub, loc resolvedLocation) *session {
	t.Helper()
	srv := httptest.NewServer(stub)
	t.Cleanup(srv.Close)

	client := api.NewClient()
	client.BaseURL = srv.URL

	c, err := cache.New(t.TempDir())
	if err != nil {
		t.Fatalf("cache.New: %v", err)
	}

	return &session{
		cfg:     &config.Config{},
		cache:   c,
		client:  client,
		loc:     loc,
		method:  -1,
		school:  -1,
		timeFmt: "15:04",
		prayers: prayer.DefaultPrayerNames,
	}
}

var testDay = time.Date(2026, 3, 14, 14, 0, 0, 0, time.UTC)

func TestResolveLocation_Configured(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.Config
		want    resolvedLocation
		wantErr string
	}{
		{
			name: "coordinates win",
			cfg:  config.Config{Latitude: 21.4225, Longitude: 39.8262, City: "Makkah", Country: "SA"},
			want: resolvedLocation{Mode: locationCoords, Lat: 21.4225, Lon: 39.8262},
		},
		{
			name: "city",
			cfg:  config.Config{City: "Makkah", Country: "SA", Address: "ignored"},
			want: resolvedLocation{Mode: locationCity, City: "Makkah", Country: "SA"},
		},
		{
			name:    "city without country",
			cfg:     config.Config{City: "Makkah"},
			wantErr: "--country is required",
		},
		{
			name: "address",
			cfg:  config.Config{Address: "Regent's Park, London"},
			want: resolvedLocation{Mode: locationAddress, Address: "Regent's Park, London"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveLocation(context.Background(), &tt.cfg, nil)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("err = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("resolveLocation() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestResolveLocation_CachedGeo(t *testing.T) {
	c, err := cache.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := c.SaveGeo(&geo.Location{Latitude: 51.5, Longitude: -0.12, City: "London", Country: "UK", Timezone: "Europe/London"}); err != nil {
		t.Fatal(err)
	}

	got, err := resolveLocation(context.Background(), &config.Config{}, c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := resolvedLocation{Mode: locationAuto, Lat: 51.5, Lon: -0.12, City: "London", Country: "UK", Timezone: "Europe/London"}
	if got != want {
		t.Errorf("resolveLocation() = %+v, want %+v", got, want)
	}
}

func TestCacheKey(t *testing.T) {
	tests := []struct {
		name string
		loc  resolvedLocation
		want cache.Key
	}{
		{"coords", resolvedLocation{Mode: locationCoords, Lat: 1, Lon: 2}, cache.Key{Lat: 1, Lon: 2, Method: 4, School: 1}},
		{"auto keeps coords only", resolvedLocation{Mode: locationAuto, Lat: 1, Lon: 2, City: "X"}, cache.Key{Lat: 1, Lon: 2, Method: 4, School: 1}},
		{"city", resolvedLocation{Mode: locationCity, City: "Makkah", Country: "SA"}, cache.Key{City: "Makkah", Country: "SA", Method: 4, School: 1}},
		{"address", resolvedLocation{Mode: locationAddress, Address: "Makkah"}, cache.Key{Address: "Makkah", Method: 4, School: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.loc.cacheKey(4, 1); got != tt.want {
				t.Errorf("cacheKey() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestFetchTimings_EndpointPerMode(t *testing.T) {
	tests := []struct {
		loc  resolvedLocation
		path string
	}{
		{resolvedLocation{Mode: locationCoords, Lat: 21.4225, Lon: 39.8262}, "/timings/14-03-2026"},
		{resolvedLocation{Mode: locationAuto, Lat: 21.4225, Lon: 39.8262}, "/timings/14-03-2026"},
		{resolvedLocation{Mode: locationCity, City: "Makkah", Country: "SA"}, "/timingsByCity/14-03-2026"},
		{resolvedLocation{Mode: locationAddress, Address: "Makkah"}, "/timingsByAddress/14-03-2026"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			stub := &apiStub{tz: "UTC"}
			s := newTestSession(t, stub, tt.loc)

			res, err := s.fetchTimings(context.Background(), testDay)
			if err != nil {
				t.Fatalf("fetchTimings: %v", err)
			}
			if res.Timings.Dhuhr != "12:27" {
				t.Errorf("Dhuhr = %q", res.Timings.Dhuhr)
			}
			if got := stub.requests(); len(got) != 1 || got[0] != tt.path {
				t.Errorf("requests = %v, want [%s]", got, tt.path)
			}
		})
	}
}

func TestFetchTimings_ServedFromCache(t *testing.T) {
	stub := &apiStub{tz: "UTC"}
	s := newTestSession(t, stub, resolvedLocation{Mode: locationCity, City: "Makkah", Country: "SA"})

	for i := 0; i < 3; i++ {
		if _, err := s.fetchTimings(context.Background(), testDay); err != nil {
			t.Fatalf("fetchTimings #%d: %v", i, err)
		}
	}
	if n := len(stub.requests()); n != 1 {
		t.Errorf("API hit %d times, want 1", n)
	}
}

func TestFetchTimings_APIError(t *testing.T) {
	stub := &apiStub{status: http.StatusServiceUnavailable}
	s := newTestSession(t, stub, resolvedLocation{Mode: locationCoords, Lat: 1, Lon: 1})

	if _, err := s.fetchTimings(context.Background(), testDay); err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestToday_ReanchorsToObserverZone(t *testing.T) {
	riyadh, err := time.LoadLocation("Asia/Riyadh")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}

	s := newTestSession(t, &apiStub{tz: "Asia/Riyadh"}, resolvedLocation{Mode: locationCoords, Lat: 1, Lon: 1})

	_, now, err := s.today(context.Background(), testDay)
	if err != nil {
		t.Fatalf("today: %v", err)
	}
	if now.Location().String() != riyadh.String() {
		t.Errorf("location = %s, want Asia/Riyadh", now.Location())
	}
	if !now.Equal(testDay) {
		t.Errorf("instant changed: %v != %v", now, testDay)
	}
}

func TestToday_InvalidTimezone(t *testing.T) {
	s := newTestSession(t, &apiStub{tz: "Mars/Olympus_Mons"}, resolvedLocation{Mode: locationCoords, Lat: 1, Lon: 1})

	_, _, err := s.today(context.Background(), testDay)
	if err == nil || !strings.Contains(err.Error(), "invalid timezone") {
		t.Fatalf("err = %v, want invalid timezone", err)
	}
}
