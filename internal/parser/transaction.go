package parser //nolint:revive // intentional: does not conflict with go/parser in internal package

import (
	"fmt"

	pg_query "github.com/pganalyze/pg_query_go/v6"
)

// FindNonTransactional returns a short description of the first statement
// in sql that cannot run inside the single transaction wrapping a
// migration script, or "" if there is none. Transaction control would
// commit or abort that wrapper early; the others are refused by PostgreSQL
// inside a transaction block.
func FindNonTransactional(sql string) (string, error) {
	stmts, err := Statements(sql)
	if err != nil {
		return "", fmt.Errorf("checking transaction safety: %w", err)
	}

	for _, stmt := range stmts {
		if desc := describeNonTransactional(stmt); desc != "" {
			return desc, nil
		}
	}

	return "", nil
}

func describeNonTransactional(stmt *pg_query.RawStmt) string {
	if stmt == nil || stmt.Stmt == nil {
		return ""
	}

	switch node := stmt.Stmt.Node.(type) {
	case *pg_query.Node_TransactionStmt:
		return "transaction control (" + transactionKind(node.TransactionStmt.GetKind()) + ")"
	case *pg_query.Node_IndexStmt:
		if node.IndexStmt != nil && node.IndexStmt.Concurrent {
			return "CREATE INDEX CONCURRENTLY"
		}
	case *pg_query.Node_VacuumStmt:
		return "VACUUM"
	case *pg_query.Node_CreatedbStmt:
		return "CREATE DATABASE"
	case *pg_query.Node_DropdbStmt:
		return "DROP DATABASE"
	}

	return ""
}

func transactionKind(kind pg_query.TransactionStmtKind) string {
	switch kind {
	case pg_query.TransactionStmtKind_TRANS_STMT_BEGIN, pg_query.TransactionStmtKind_TRANS_STMT_START:
		return "BEGIN"
	case pg_query.TransactionStmtKind_TRANS_STMT_COMMIT:
		return "COMMIT"
	case pg_query.TransactionStmtKind_TRANS_STMT_ROLLBACK:
		return "ROLLBACK"
	case pg_query.TransactionStmtKind_TRANS_STMT_SAVEPOINT:
		return "SAVEPOINT"
	case pg_query.TransactionStmtKind_TRANS_STMT_RELEASE:
		return "RELEASE"
	case pg_query.TransactionStmtKind_TRANS_STMT_ROLLBACK_TO:
		return "ROLLBACK TO"
	default:
		return "two-phase commit"
	}
}
