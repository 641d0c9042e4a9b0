package mqtt

import "errors"

var (
	// ErrNoData is returned when a value has not been received yet.
	ErrNoData = errors.New("no value received")
	// ErrStale is returned when the last value is older than allowed.
	ErrStale = errors.New("value is stale")
	// ErrNotConnected is returned while the broker connection is down.
	ErrNotConnected = errors.New("mqtt not connected")
)
