package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/tursodatabase/go-libsql"

	"github.com/rendis/tickrule/pkg/schema"
)

// LibSQLJournal persists entries to a local libsql database file so
// decisions survive process restarts and can be compared across
// backtest and live runs.
type LibSQLJournal struct {
	db *sql.DB
}

// NewLibSQLJournal opens (or creates) the database at path and applies
// pending migrations.
func NewLibSQLJournal(path string) (*LibSQLJournal, error) {
	db, err := sql.Open("libsql", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("open journal database: %w", err)
	}

	// Single writer; the trading loop is the only producer.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %s: %w", pragma, err)
		}
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return &LibSQLJournal{db: db}, nil
}

// Record inserts one evaluation entry.
func (j *LibSQLJournal) Record(ctx context.Context, entry Entry) error {
	reasons := ""
	if len(entry.ReasonCodes) > 0 {
		raw, err := json.Marshal(entry.ReasonCodes)
		if err != nil {
			return fmt.Errorf("encode reason codes: %w", err)
		}
		reasons = string(raw)
	}

	_, err := j.db.ExecContext(ctx, `
		INSERT INTO decisions (
			id, strategy_id, workflow, decision, reason_codes,
			rule_id, error, expression, evaluated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.StrategyID,
		string(entry.Workflow),
		boolToInt(entry.Decision),
		reasons,
		entry.RuleID,
		entry.Error,
		entry.Expression,
		entry.EvaluatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert decision: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (j *LibSQLJournal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := j.db.QueryContext(ctx, `
		SELECT id, strategy_id, workflow, decision, reason_codes,
		       rule_id, error, expression, evaluated_at
		FROM decisions
		ORDER BY evaluated_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query decisions: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			entry    Entry
			workflow string
			decision int
			reasons  string
			at       string
		)
		if err := rows.Scan(
			&entry.ID, &entry.StrategyID, &workflow, &decision, &reasons,
			&entry.RuleID, &entry.Error, &entry.Expression, &at,
		); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		entry.Workflow = schema.WorkflowKind(workflow)
		entry.Decision = decision != 0
		if reasons != "" {
			if err := json.Unmarshal([]byte(reasons), &entry.ReasonCodes); err != nil {
				return nil, fmt.Errorf("decode reason codes: %w", err)
			}
		}
		if ts, err := time.Parse(time.RFC3339Nano, at); err == nil {
			entry.EvaluatedAt = ts
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

// Close releases the database handle.
func (j *LibSQLJournal) Close() error {
	return j.db.Close()
}

var _ Journal = (*LibSQLJournal)(nil)

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// migrations run in order; the applied version is tracked in
// schema_version so re-opening an existing database is a no-op.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS decisions (
		id           TEXT PRIMARY KEY,
		strategy_id  TEXT NOT NULL DEFAULT '',
		workflow     TEXT NOT NULL,
		decision     INTEGER NOT NULL,
		reason_codes TEXT NOT NULL DEFAULT '',
		rule_id      TEXT NOT NULL DEFAULT '',
		error        TEXT NOT NULL DEFAULT '',
		expression   TEXT NOT NULL DEFAULT '',
		evaluated_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_decisions_workflow
		ON decisions (workflow, evaluated_at);
	CREATE INDEX IF NOT EXISTS idx_decisions_strategy
		ON decisions (strategy_id, evaluated_at);`,
}

func migrate(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version    INTEGER PRIMARY KEY,
		applied_at TEXT NOT NULL
	)`); err != nil {
		return fmt.Errorf("create schema_version: %w", err)
	}

	var current sql.NullInt64
	if err := db.QueryRow(`SELECT MAX(version) FROM schema_version`).Scan(&current); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	for i, stmts := range migrations {
		version := i + 1
		if current.Valid && int64(version) <= current.Int64 {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", version, err)
		}
		for _, stmt := range strings.Split(stmts, ";") {
			stmt = strings.TrimSpace(stmt)
			if stmt == "" {
				continue
			}
			if _, err := tx.Exec(stmt); err != nil {
				tx.Rollback()
				return fmt.Errorf("migration %d: %w", version, err)
			}
		}
		if _, err := tx.Exec(
			`INSERT INTO schema_version (version, applied_at) VALUES (?, ?)`,
			version, time.Now().UTC().Format(time.RFC3339),
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", version, err)
		}
	}
	return nil
}
