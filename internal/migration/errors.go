package migration

import "errors"

// ErrDirectoryUnreadable indicates the migrations root could not be listed.
var ErrDirectoryUnreadable = errors.New("migrations directory unreadable")

// ErrScriptNotFound indicates a migration script does not exist on disk.
var ErrScriptNotFound = errors.New("migration script not found")

// ErrScriptUnreadable indicates a migration script exists but could not be read.
var ErrScriptUnreadable = errors.New("migration script unreadable")

// ErrInvalidName indicates a scaffold name that cannot form a migration identifier.
var ErrInvalidName = errors.New("invalid migration name")

// ErrScaffold indicates the migration directory or its scripts could not be written.
var ErrScaffold = errors.New("creating migration files")
