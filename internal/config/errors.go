package config

import "errors"

// Sentinel errors returned while resolving configuration. All of them are
// raised before any database is contacted.
var (
	ErrReadConfig         = errors.New("reading config file")
	ErrUnrecognizedFormat = errors.New("unrecognized config format")
	ErrParseConfig        = errors.New("parsing config")
	ErrEnvFile            = errors.New("reading env file")
	ErrUndefinedVariable  = errors.New("undefined variable")
	ErrInvalidConfig      = errors.New("invalid config")
)
