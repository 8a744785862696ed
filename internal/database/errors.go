package database

import "errors"

// ErrInvalidDatabaseURL indicates the provided database URL could not be parsed.
var ErrInvalidDatabaseURL = errors.New("invalid database URL")

// ErrConnectionFailed indicates a connection to the database could not be established.
var ErrConnectionFailed = errors.New("database connection failed")

// ErrQueryFailed indicates a ledger or script round trip failed on an open connection.
var ErrQueryFailed = errors.New("database query failed")

// ErrUnsupportedKind indicates a backend kind with no implementation.
var ErrUnsupportedKind = errors.New("unsupported database kind")

// ErrUnsupportedScheme indicates a replicated-backend URL scheme with no driver.
var ErrUnsupportedScheme = errors.New("unsupported database URL scheme")

// ErrNonTransactional indicates a script contains a statement that cannot
// run inside the single transaction wrapping it.
var ErrNonTransactional = errors.New("script cannot run in a single transaction")
