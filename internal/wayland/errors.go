package wayland

import "errors"

var (
	// ErrNotConnected is returned when the client has no compositor connection.
	ErrNotConnected = errors.New("wayland client not connected")
	// ErrNoSeat is returned when the compositor advertises no wl_seat.
	ErrNoSeat = errors.New("compositor advertises no seat")
)
