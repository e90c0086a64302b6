package niim

import (
	"errors"
	"fmt"
)

var (
	// ErrFormat reports a frame with bad magic bytes or an inconsistent length.
	ErrFormat = errors.New("niim: packet format error")
	// ErrChecksum reports a frame whose XOR checksum does not match.
	ErrChecksum = errors.New("niim: checksum error")
	// ErrTimeout reports that no matching packet arrived before the deadline.
	ErrTimeout = errors.New("niim: timeout waiting for packet")
	// ErrInvalidArgument reports a client-side validation failure.
	ErrInvalidArgument = errors.New("niim: invalid argument")
	// ErrInvalidFormat reports a response payload that does not fit the expected shape.
	ErrInvalidFormat = errors.New("niim: invalid data format")
	// ErrPayloadTooLarge is returned by Encode for payloads over MaxPayloadSize.
	ErrPayloadTooLarge = fmt.Errorf("%w: payload exceeds %d bytes", ErrInvalidArgument, MaxPayloadSize)
)
