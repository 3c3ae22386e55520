package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/jace/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	// Pragmas are per-connection; a single connection keeps them in effect
	// and serializes writers.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS compliance_rules (
	id                     TEXT PRIMARY KEY,
	state                  TEXT NOT NULL,
	county                 TEXT NOT NULL DEFAULT '',
	city                   TEXT NOT NULL DEFAULT '',
	jurisdiction_key       TEXT NOT NULL,
	jurisdiction_type      TEXT NOT NULL,
	requirements           TEXT NOT NULL DEFAULT '[]',
	source                 TEXT NOT NULL DEFAULT 'ai_scout',
	is_verified            BOOLEAN NOT NULL DEFAULT 0,
	is_active              BOOLEAN NOT NULL DEFAULT 0,
	model_used             TEXT NOT NULL DEFAULT '',
	research_timestamp     DATETIME NOT NULL DEFAULT (datetime('now')),
	verified_by            TEXT NOT NULL DEFAULT '',
	verification_timestamp DATETIME,
	notes                  TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_compliance_rules_key ON compliance_rules(jurisdiction_key);
CREATE INDEX IF NOT EXISTS idx_compliance_rules_state_active ON compliance_rules(state, is_active);
CREATE INDEX IF NOT EXISTS idx_compliance_rules_verified ON compliance_rules(is_verified);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) FindOne(ctx context.Context, filter RuleFilter) (*model.RuleSet, error) {
	filter.Limit = 1
	query, args := buildFindQuery(filter, false, true)
	rs, err := scanRuleSet(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "sqlite: find rule set %s", filter.JurisdictionKey)
	}
	return rs, nil
}

func (s *SQLiteStore) Find(ctx context.Context, filter RuleFilter) ([]model.RuleSet, error) {
	query, args := buildFindQuery(filter, false, false)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list rule sets")
	}
	defer rows.Close()

	var out []model.RuleSet
	for rows.Next() {
		rs, err := scanRuleSet(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan rule set")
		}
		out = append(out, *rs)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list rule sets iterate")
}

func (s *SQLiteStore) Insert(ctx context.Context, rs *model.RuleSet) (string, error) {
	if rs.ID == "" {
		rs.ID = uuid.New().String()
	}
	if rs.ResearchTimestamp.IsZero() {
		rs.ResearchTimestamp = time.Now().UTC()
	}
	reqJSON, err := marshalRequirements(rs.Requirements)
	if err != nil {
		return "", err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO compliance_rules (`+ruleSetColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rs.ID, rs.State, rs.County, rs.City, rs.JurisdictionKey, rs.JurisdictionType, string(reqJSON), rs.Source,
		rs.IsVerified, rs.IsActive, rs.ModelUsed, rs.ResearchTimestamp.UTC(), rs.VerifiedBy, utcPtr(rs.VerificationTimestamp), rs.Notes,
	)
	if err != nil {
		return "", eris.Wrapf(err, "sqlite: insert rule set %s", rs.JurisdictionKey)
	}
	return rs.ID, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*model.RuleSet, error) {
	return getSQLite(ctx, s.db.QueryRowContext, id)
}

func (s *SQLiteStore) Save(ctx context.Context, rs *model.RuleSet) error {
	return saveSQLite(ctx, s.db.ExecContext, rs)
}

// Update serializes writers with BEGIN IMMEDIATE on a dedicated connection.
func (s *SQLiteStore) Update(ctx context.Context, id string, fn func(*model.RuleSet) error) (*model.RuleSet, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: acquire conn")
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		return nil, eris.Wrap(err, "sqlite: begin update")
	}
	rollback := func() { _, _ = conn.ExecContext(context.WithoutCancel(ctx), "ROLLBACK") }

	rs, err := getSQLite(ctx, conn.QueryRowContext, id)
	if err != nil {
		rollback()
		return nil, err
	}
	if err := fn(rs); err != nil {
		rollback()
		return nil, err
	}
	if err := saveSQLite(ctx, conn.ExecContext, rs); err != nil {
		rollback()
		return nil, err
	}
	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		rollback()
		return nil, eris.Wrapf(err, "sqlite: commit rule set %s", id)
	}
	return rs, nil
}

type (
	sqliteQueryRow func(ctx context.Context, query string, args ...any) *sql.Row
	sqliteExec     func(ctx context.Context, query string, args ...any) (sql.Result, error)
)

func getSQLite(ctx context.Context, queryRow sqliteQueryRow, id string) (*model.RuleSet, error) {
	rs, err := scanRuleSet(queryRow(ctx, `SELECT `+ruleSetColumns+` FROM compliance_rules WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "sqlite: get rule set %s", id)
		}
		return nil, eris.Wrapf(err, "sqlite: get rule set %s", id)
	}
	return rs, nil
}

func saveSQLite(ctx context.Context, exec sqliteExec, rs *model.RuleSet) error {
	reqJSON, err := marshalRequirements(rs.Requirements)
	if err != nil {
		return err
	}
	res, err := exec(ctx,
		`UPDATE compliance_rules SET state = ?, county = ?, city = ?, jurisdiction_key = ?,
		 jurisdiction_type = ?, requirements = ?, source = ?, is_verified = ?, is_active = ?,
		 model_used = ?, research_timestamp = ?, verified_by = ?, verification_timestamp = ?,
		 notes = ? WHERE id = ?`,
		rs.State, rs.County, rs.City, rs.JurisdictionKey, rs.JurisdictionType, string(reqJSON), rs.Source,
		rs.IsVerified, rs.IsActive, rs.ModelUsed, rs.ResearchTimestamp.UTC(), rs.VerifiedBy, utcPtr(rs.VerificationTimestamp),
		rs.Notes, rs.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: save rule set %s", rs.ID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "sqlite: save rule set %s", rs.ID)
	}
	return nil
}

func utcPtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
