package api

import "github.com/smokyabdulrahman/prayer-widget/internal/window"

// Response is the body of the single-day timings endpoints.
type Response struct {
	Code   int    `json:"code"`
	Status string `json:"status"`
	Data   Data   `json:"data"`
}

// CalendarResponse is the body of the calendar endpoints: one Data per day
// of the requested month.
type CalendarResponse struct {
	Code   int    `json:"code"`
	Status string `json:"status"`
	Data   []Data `json:"data"`
}

// Data is one day of timings with its date and request metadata.
type Data struct {
	Timings Timings  `json:"timings"`
	Date    DateInfo `json:"date"`
	Meta    Meta     `json:"meta"`
}

// Timings holds every time the API reports for a day, as "HH:MM" with an
// optional " (TZ)" suffix.
type Timings struct {
	Fajr       string `json:"Fajr"`
	Sunrise    string `json:"Sunrise"`
	Dhuhr      string `json:"Dhuhr"`
	Asr        string `json:"Asr"`
	Sunset     string `json:"Sunset"`
	Maghrib    string `json:"Maghrib"`
	Isha       string `json:"Isha"`
	Imsak      string `json:"Imsak"`
	Midnight   string `json:"Midnight"`
	Firstthird string `json:"Firstthird"`
	Lastthird  string `json:"Lastthird"`
}

// Lookup returns the raw time for a prayer or event name such as "Asr" or
// "Lastthird". Names are case-sensitive.
func (t Timings) Lookup(name string) (string, bool) {
	switch name {
	case "Fajr":
		return t.Fajr, true
	case "Sunrise":
		return t.Sunrise, true
	case "Dhuhr":
		return t.Dhuhr, true
	case "Asr":
		return t.Asr, true
	case "Sunset":
		return t.Sunset, true
	case "Maghrib":
		return t.Maghrib, true
	case "Isha":
		return t.Isha, true
	case "Imsak":
		return t.Imsak, true
	case "Midnight":
		return t.Midnight, true
	case "Firstthird":
		return t.Firstthird, true
	case "Lastthird":
		return t.Lastthird, true
	}
	return "", false
}

// Windows returns the raw start times of the five prayer windows, keyed by
// window name. Sunrise and the other events are left out. The values are
// not validated; window.ParseBoundarySet does that.
func (t Timings) Windows() map[string]string {
	out := make(map[string]string, window.Count)
	for _, name := range window.Names {
		out[name], _ = t.Lookup(name)
	}
	return out
}

// Meta describes how the API computed the timings.
type Meta struct {
	Latitude  float64    `json:"latitude"`
	Longitude float64    `json:"longitude"`
	Timezone  string     `json:"timezone"`
	Method    MethodInfo `json:"method"`
	School    string     `json:"school"`
}

// MethodInfo identifies the calculation method used.
type MethodInfo struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// DateInfo carries the day in both calendars.
type DateInfo struct {
	Readable  string        `json:"readable"`
	Timestamp string        `json:"timestamp"`
	Hijri     HijriDate     `json:"hijri"`
	Gregorian GregorianDate `json:"gregorian"`
}

// HijriDate is the Islamic calendar date, e.g. day "10" of Sha'ban 1447.
type HijriDate struct {
	Date        string           `json:"date"` // "10-08-1447"
	Day         string           `json:"day"`
	Month       HijriMonth       `json:"month"`
	Year        string           `json:"year"`
	Designation HijriDesignation `json:"designation"`
}

type HijriMonth struct {
	Number int    `json:"number"`
	En     string `json:"en"`
	Ar     string `json:"ar"`
}

type HijriDesignation struct {
	Abbreviated string `json:"abbreviated"` // "AH"
	Expanded    string `json:"expanded"`
}

// Format renders "DD Month YYYY AH", or "" when any part is missing.
func (h HijriDate) Format() string {
	if h.Day == "" || h.Month.En == "" || h.Year == "" {
		return ""
	}
	abbr := h.Designation.Abbreviated
	if abbr == "" {
		abbr = "AH"
	}
	return h.Day + " " + h.Month.En + " " + h.Year + " " + abbr
}

// GregorianDate is the civil date as the API reports it.
type GregorianDate struct {
	Date    string         `json:"date"` // "28-02-2026"
	Day     string         `json:"day"`
	Weekday GregorianDay   `json:"weekday"`
	Month   GregorianMonth `json:"month"`
	Year    string         `json:"year"`
}

type GregorianDay struct {
	En string `json:"en"`
}

type GregorianMonth struct {
	Number int    `json:"number"`
	En     string `json:"en"`
}
