package executor

import "errors"

// ErrExecutionFailed indicates the backend rejected a migration script.
var ErrExecutionFailed = errors.New("migration execution failed")

// ErrRecordFailed indicates a script ran but its ledger write did not.
var ErrRecordFailed = errors.New("recording migration in ledger failed")
