package boost

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)

func TestStartDefaultsToSoleVehicle(t *testing.T) {
	m := New(Config{}, []string{"car"}, nil)
	b, err := m.Start("", 0, now)
	require.NoError(t, err)
	assert.Equal(t, "car", b.VehicleID)
	assert.Equal(t, now.Add(2*time.Hour), b.Until)

	cur, ok, _ := m.Current(now.Add(time.Hour))
	assert.True(t, ok)
	assert.Equal(t, b, cur)
}

func TestStartValidation(t *testing.T) {
	m := New(Config{}, []string{"a", "b"}, nil)
	_, err := m.Start("", 0, now)
	assert.ErrorIs(t, err, ErrAmbiguousVehicle)
	_, err = m.Start("c", 0, now)
	assert.ErrorIs(t, err, ErrUnknownVehicle)

	b, err := m.Start("b", 10*time.Hour, now)
	require.NoError(t, err)
	assert.Equal(t, now.Add(6*time.Hour), b.Until)
}

func TestQuietHoursRejected(t *testing.T) {
	m := New(Config{}, []string{"car"}, func(time.Time) bool { return true })
	_, err := m.Start("car", 0, now)
	assert.ErrorIs(t, err, ErrQuietHours)
}

func TestExpiryAndCancel(t *testing.T) {
	m := New(Config{}, []string{"car"}, nil)
	_, err := m.Start("car", time.Hour, now)
	require.NoError(t, err)

	_, ok, expired := m.Current(now.Add(time.Hour))
	assert.False(t, ok)
	assert.True(t, expired)
	_, _, expired = m.Current(now.Add(2 * time.Hour))
	assert.False(t, expired)

	_, err = m.Start("car", 0, now)
	require.NoError(t, err)
	assert.True(t, m.Cancel())
	assert.False(t, m.Cancel())
}
