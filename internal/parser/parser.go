// Package parser inspects PostgreSQL migration scripts with the server's
// own grammar (libpg_query).
package parser //nolint:revive // intentional: does not conflict with go/parser in internal package

import (
	"fmt"
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"
)

// Statements splits a script into its top-level statements. Blank and
// comment-only scripts yield none.
func Statements(script string) ([]*pg_query.RawStmt, error) {
	if strings.TrimSpace(script) == "" {
		return nil, nil
	}

	tree, err := pg_query.Parse(script)
	if err != nil {
		return nil, fmt.Errorf("parsing SQL: %w", err)
	}

	return tree.GetStmts(), nil
}
