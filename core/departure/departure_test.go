package departure

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 3, 2, 18, 0, 0, 0, time.UTC)

func TestParse(t *testing.T) {
	cases := []struct {
		in   string
		want time.Time
	}{
		{"2h30m", now.Add(150 * time.Minute)},
		{"90m", now.Add(90 * time.Minute)},
		{" 21:15 ", time.Date(2026, 3, 2, 21, 15, 0, 0, time.UTC)},
		{"07:30", time.Date(2026, 3, 3, 7, 30, 0, 0, time.UTC)},
		{"18:00", time.Date(2026, 3, 3, 18, 0, 0, 0, time.UTC)},
	}
	for _, c := range cases {
		got, err := Parse(c.in, now)
		require.NoError(t, err, c.in)
		assert.Equal(t, c.want, got, c.in)
	}
}

func TestParseInvalid(t *testing.T) {
	for _, in := range []string{"", "soon", "25:00", "-1h", "0s"} {
		_, err := Parse(in, now)
		assert.ErrorIs(t, err, ErrInvalidInput, in)
	}
}

func TestPromptFallback(t *testing.T) {
	tr := NewTracker(Config{})
	tr.Prompt("car", now)

	_, err := tr.Answer("car", "whenever", now.Add(time.Minute))
	require.Error(t, err)
	assert.True(t, tr.Pending("car"))
	assert.Empty(t, tr.Resolve(now.Add(29*time.Minute)))
	assert.Nil(t, tr.Departure("car"))

	assert.Equal(t, []string{"car"}, tr.Resolve(now.Add(30*time.Minute)))
	dep := tr.Departure("car")
	require.NotNil(t, dep)
	assert.Equal(t, time.Date(2026, 3, 3, 7, 0, 0, 0, time.UTC), *dep)
	assert.False(t, tr.Pending("car"))
}

func TestAnswerClosesPrompt(t *testing.T) {
	tr := NewTracker(Config{})
	tr.Prompt("car", now)
	dep, err := tr.Answer("car", "1h", now)
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), dep)
	assert.Empty(t, tr.Resolve(now.Add(time.Hour)))

	tr.Clear("car")
	assert.Nil(t, tr.Departure("car"))
}

func TestConfigValidate(t *testing.T) {
	c := Config{Default: "7am"}
	c.SetDefaults()
	assert.Error(t, c.Validate())
}
