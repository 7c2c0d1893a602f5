package channel

import "errors"

var (
	// ErrAlreadyConnected is returned by Connect outside the Closed state.
	ErrAlreadyConnected = errors.New("quest channel already connected")

	// ErrHandshake indicates the transport failed before reporting open.
	ErrHandshake = errors.New("quest channel handshake failed")

	// ErrConnectTimeout indicates the handshake did not finish in time.
	ErrConnectTimeout = errors.New("quest channel connect timed out")

	// ErrNotOpen is returned by Send when no connection is open.
	ErrNotOpen = errors.New("quest channel is not open")
)
