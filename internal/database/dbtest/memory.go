// Package dbtest provides an in-memory database.Connection for tests.
package dbtest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aqasim81/dmt/internal/database"
)

// ErrClosed is returned by every call made after Close.
var ErrClosed = errors.New("dbtest: connection closed")

// Memory is a fake backend holding the ledger in a map. GetMigrations
// returns rows in map iteration order, so callers relying on row order
// are caught by tests.
type Memory struct {
	mu sync.Mutex

	tableExists bool
	nextID      int64
	records     map[string]database.Record
	executed    []string
	writes      int
	closed      bool

	// FailScript, when set, is consulted before each ExecuteSQL; a non-nil
	// result fails the script without recording it as executed.
	FailScript func(script string) error
	// CreateErr and RemoveErr fail the corresponding ledger writes.
	CreateErr error
	RemoveErr error
}

var _ database.Connection = (*Memory)(nil)

// NewMemory returns an empty fake with no ledger table.
func NewMemory() *Memory {
	return &Memory{records: make(map[string]database.Record)}
}

// Seed creates the ledger and inserts names as already applied. Seeding
// does not count as a write.
func (m *Memory) Seed(names ...string) *Memory {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.tableExists = true

	for _, name := range names {
		m.nextID++
		m.records[name] = database.Record{ID: m.nextID, Name: name, AppliedAt: time.Now().UTC()}
	}

	return m
}

// FailOn makes every script containing substr fail with err.
func (m *Memory) FailOn(substr string, err error) *Memory {
	m.FailScript = func(script string) error {
		if strings.Contains(script, substr) {
			return err
		}

		return nil
	}

	return m
}

// Names returns the ledger names in no particular order.
func (m *Memory) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	names := make([]string, 0, len(m.records))
	for name := range m.records {
		names = append(names, name)
	}

	return names
}

// Executed returns the scripts run successfully, in call order.
func (m *Memory) Executed() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]string(nil), m.executed...)
}

// Writes counts successful state changes: ledger creation, script
// execution, inserts and deletes.
func (m *Memory) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.writes
}

// Closed reports whether Close was called.
func (m *Memory) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.closed
}

func (m *Memory) CreateMigrationsTable(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	if !m.tableExists {
		m.tableExists = true
		m.writes++
	}

	return nil
}

func (m *Memory) MigrationTableExists(_ context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return false, ErrClosed
	}

	return m.tableExists, nil
}

func (m *Memory) GetMigrations(_ context.Context) ([]database.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}

	if !m.tableExists {
		return nil, fmt.Errorf("%w: relation %q does not exist", database.ErrQueryFailed, database.LedgerTable)
	}

	records := make([]database.Record, 0, len(m.records))
	for _, r := range m.records {
		records = append(records, r)
	}

	return records, nil
}

func (m *Memory) CreateMigration(_ context.Context, name string, appliedAt time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case m.closed:
		return 0, ErrClosed
	case m.CreateErr != nil:
		return 0, m.CreateErr
	case !m.tableExists:
		return 0, fmt.Errorf("%w: relation %q does not exist", database.ErrQueryFailed, database.LedgerTable)
	}

	if _, ok := m.records[name]; ok {
		return 0, fmt.Errorf("%w: duplicate migration name %q", database.ErrQueryFailed, name)
	}

	m.nextID++
	m.records[name] = database.Record{ID: m.nextID, Name: name, AppliedAt: appliedAt}
	m.writes++

	return m.nextID, nil
}

func (m *Memory) ExecuteSQL(ctx context.Context, script string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	if m.FailScript != nil {
		if err := m.FailScript(script); err != nil {
			return err
		}
	}

	m.executed = append(m.executed, script)
	m.writes++

	return nil
}

func (m *Memory) RemoveMigrationByName(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.removeCheck(); err != nil {
		return err
	}

	if _, ok := m.records[name]; ok {
		delete(m.records, name)
		m.writes++
	}

	return nil
}

func (m *Memory) RemoveMigrationByID(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.removeCheck(); err != nil {
		return err
	}

	for name, r := range m.records {
		if r.ID == id {
			delete(m.records, name)
			m.writes++

			break
		}
	}

	return nil
}

func (m *Memory) removeCheck() error {
	if m.closed {
		return ErrClosed
	}

	return m.RemoveErr
}

func (m *Memory) Close(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true

	return nil
}
