package dbsession

import "errors"

var (
	// ErrAcquire is returned when no connection could be taken from the pool.
	ErrAcquire = errors.New("dbsession: acquire connection")

	// ErrSetup is returned when the session settings could not be applied.
	// The connection has already been released when this is returned.
	ErrSetup = errors.New("dbsession: apply session settings")

	// ErrNoConn is returned when a handler runs without a scoped connection in its context.
	ErrNoConn = errors.New("dbsession: no connection in context")

	// ErrInvalidTimeZone is returned for offsets that are not of the form [+-]HH:MM.
	ErrInvalidTimeZone = errors.New("dbsession: invalid time zone offset")
)
