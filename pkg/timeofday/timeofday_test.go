package timeofday

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	c, err := Parse("08:30")
	require.NoError(t, err)
	assert.Equal(t, 510, c.Minutes())
	assert.Equal(t, "08:30", c.String())

	c, err = Parse("16:00:00")
	require.NoError(t, err)
	assert.Equal(t, "16:00", c.String())

	for _, bad := range []string{"", "8", "24:00", "10:61", "aa:bb", "1:2:3:4"} {
		_, err := Parse(bad)
		assert.Error(t, err, bad)
	}
}

func TestClockScan(t *testing.T) {
	var c Clock
	require.NoError(t, c.Scan([]byte("09:15:00")))
	assert.Equal(t, MustParse("09:15"), c)

	require.NoError(t, c.Scan(time.Date(0, 1, 1, 13, 45, 0, 0, time.UTC)))
	assert.Equal(t, "13:45", c.String())

	assert.Error(t, c.Scan(42))
}

func TestClockJSON(t *testing.T) {
	type payload struct {
		Opens  Clock  `json:"opens_at"`
		Closes *Clock `json:"closes_at"`
	}
	var p payload
	require.NoError(t, json.Unmarshal([]byte(`{"opens_at":"08:00","closes_at":null}`), &p))
	assert.Equal(t, 480, p.Opens.Minutes())
	assert.Nil(t, p.Closes)

	out, err := json.Marshal(payload{Opens: MustParse("07:05")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"opens_at":"07:05","closes_at":null}`, string(out))

	assert.Error(t, json.Unmarshal([]byte(`{"opens_at":"8am"}`), &p))
}

func TestWeekdayMondayFirst(t *testing.T) {
	monday, err := ParseDate("2025-01-06")
	require.NoError(t, err)
	assert.Equal(t, 0, Weekday(monday))
	assert.Equal(t, 6, Weekday(monday.AddDate(0, 0, 6)))
	assert.Equal(t, "2025-01-12", FormatDate(monday.AddDate(0, 0, 6)))

	_, err = ParseDate("06-01-2025")
	assert.Error(t, err)
}

func TestParseDurationMinutes(t *testing.T) {
	cases := map[string]int{
		"30":            30,
		"00:30":         30,
		"01:15":         75,
		"30 min":        30,
		"45mins":        45,
		"1h":            60,
		"1 hour 15 min": 75,
		"2 hours":       120,
	}
	for raw, want := range cases {
		got, ok := ParseDurationMinutes(raw)
		assert.True(t, ok, raw)
		assert.Equal(t, want, got, raw)
	}

	for _, bad := range []string{"", "0", "00:00", "soon", "-5", "3 days"} {
		_, ok := ParseDurationMinutes(bad)
		assert.False(t, ok, bad)
	}
}

func TestDateScanAndJSON(t *testing.T) {
	var d Date
	require.NoError(t, d.Scan(time.Date(2025, 1, 6, 0, 0, 0, 0, time.FixedZone("x", 3600))))
	assert.Equal(t, "2025-01-06", d.String())
	assert.Equal(t, 0, d.Weekday())

	require.NoError(t, d.Scan([]byte("2025-01-07T00:00:00Z")))
	assert.Equal(t, MustParseDate("2025-01-07"), d)

	out, err := json.Marshal(struct {
		Day Date `json:"day"`
	}{Day: MustParseDate("2025-02-01")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"day":"2025-02-01"}`, string(out))

	assert.Error(t, json.Unmarshal([]byte(`"01/02/2025"`), &d))
}
