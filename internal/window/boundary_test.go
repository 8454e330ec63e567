package window

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    TimeOfDay
		wantErr bool
	}{
		{"simple", "15:02", TimeOfDay{15, 2}, false},
		{"midnight", "00:00", TimeOfDay{0, 0}, false},
		{"single digit hour", "5:51", TimeOfDay{5, 51}, false},
		{"timezone suffix", "15:02 (BST)", TimeOfDay{15, 2}, false},
		{"padded", "  05:17  (EET) ", TimeOfDay{5, 17}, false},
		{"hour out of range", "24:00", TimeOfDay{}, true},
		{"minute out of range", "12:60", TimeOfDay{}, true},
		{"negative", "-1:30", TimeOfDay{}, true},
		{"missing minute", "15:", TimeOfDay{}, true},
		{"one digit minute", "15:2", TimeOfDay{}, true},
		{"no colon", "1502", TimeOfDay{}, true},
		{"non-numeric", "ab:cd", TimeOfDay{}, true},
		{"empty", "", TimeOfDay{}, true},
		{"plus sign hour", "+5:30", TimeOfDay{}, true},
		{"plus sign minute", "12:+5", TimeOfDay{}, true},
		{"negative zero", "-0:00", TimeOfDay{}, true},
		{"three digit hour", "012:00", TimeOfDay{}, true},
		{"trailing text", "19:04 nonsense", TimeOfDay{}, true},
		{"empty annotation", "19:04 ()", TimeOfDay{}, true},
		{"unclosed annotation", "19:04 (BST", TimeOfDay{}, true},
		{"annotation with space", "19:04 (B ST)", TimeOfDay{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTimeOfDay(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrMalformedBoundaries))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseBoundarySet_RejectsSignedAndTrailingValues(t *testing.T) {
	raw := map[string]string{
		"Fajr": "+5:51", "Dhuhr": "12:+7", "Asr": "15:21", "Maghrib": "17:40", "Isha": "19:04 nonsense",
	}
	_, err := ParseBoundarySet(raw)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedBoundaries))
}

func TestParseBoundarySet_Valid(t *testing.T) {
	raw := map[string]string{
		"Fajr": "05:17", "Dhuhr": "12:13", "Asr": "15:02", "Maghrib": "17:39", "Isha": "19:10",
	}

	set, err := ParseBoundarySet(raw)
	require.NoError(t, err)

	assert.Equal(t, TimeOfDay{5, 17}, set[Fajr])
	assert.Equal(t, TimeOfDay{19, 10}, set[Isha])
	assert.Equal(t, raw, set.Map())
}

func TestParseBoundarySet_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]string
	}{
		{"too few", map[string]string{"Fajr": "05:17", "Dhuhr": "12:13", "Asr": "15:02", "Maghrib": "17:39"}},
		{"too many", map[string]string{
			"Fajr": "05:17", "Sunrise": "06:48", "Dhuhr": "12:13", "Asr": "15:02", "Maghrib": "17:39", "Isha": "19:10",
		}},
		{"unknown name", map[string]string{
			"Fajr": "05:17", "Sunrise": "06:48", "Asr": "15:02", "Maghrib": "17:39", "Isha": "19:10",
		}},
		{"bad time", map[string]string{
			"Fajr": "05:17", "Dhuhr": "noon", "Asr": "15:02", "Maghrib": "17:39", "Isha": "19:10",
		}},
		{"not increasing", map[string]string{
			"Fajr": "05:17", "Dhuhr": "12:13", "Asr": "11:02", "Maghrib": "17:39", "Isha": "19:10",
		}},
		{"duplicate time", map[string]string{
			"Fajr": "05:17", "Dhuhr": "12:13", "Asr": "15:02", "Maghrib": "17:39", "Isha": "17:39",
		}},
		{"nil map", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseBoundarySet(tt.raw)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedBoundaries), "got %v", err)
		})
	}
}
