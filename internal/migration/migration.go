package migration

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Script file names inside every migration directory.
const (
	UpFile   = "up.sql"
	DownFile = "down.sql"
)

// TimestampLayout is the 14-digit UTC prefix of a migration identifier.
const TimestampLayout = "20060102150405"

// NewIdentifier builds "<YYYYMMDDHHMMSS>_<name>" from t in UTC.
func NewIdentifier(t time.Time, name string) string {
	return t.UTC().Format(TimestampLayout) + "_" + name
}

// ComputeChecksum returns the SHA-256 hex digest of the given SQL string.
func ComputeChecksum(sql string) string {
	h := sha256.Sum256([]byte(sql))

	return hex.EncodeToString(h[:])
}
