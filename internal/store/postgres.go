package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/jace/internal/db"
	"github.com/sells-group/jace/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS compliance_rules (
	id                     TEXT PRIMARY KEY,
	state                  TEXT NOT NULL,
	county                 TEXT NOT NULL DEFAULT '',
	city                   TEXT NOT NULL DEFAULT '',
	jurisdiction_key       TEXT NOT NULL,
	jurisdiction_type      TEXT NOT NULL,
	requirements           JSONB NOT NULL DEFAULT '[]',
	source                 TEXT NOT NULL DEFAULT 'ai_scout',
	is_verified            BOOLEAN NOT NULL DEFAULT false,
	is_active              BOOLEAN NOT NULL DEFAULT false,
	model_used             TEXT NOT NULL DEFAULT '',
	research_timestamp     TIMESTAMPTZ NOT NULL DEFAULT now(),
	verified_by            TEXT NOT NULL DEFAULT '',
	verification_timestamp TIMESTAMPTZ,
	notes                  TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_compliance_rules_key ON compliance_rules(jurisdiction_key);
CREATE INDEX IF NOT EXISTS idx_compliance_rules_state_active ON compliance_rules(state, is_active);
CREATE INDEX IF NOT EXISTS idx_compliance_rules_verified ON compliance_rules(is_verified);
`

const ruleSetColumns = `id, state, county, city, jurisdiction_key, jurisdiction_type, requirements, source, ` +
	`is_verified, is_active, model_used, research_timestamp, verified_by, verification_timestamp, notes`

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) FindOne(ctx context.Context, filter RuleFilter) (*model.RuleSet, error) {
	filter.Limit = 1
	query, args := buildFindQuery(filter, true, true)
	rs, err := scanRuleSet(s.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: find rule set %s", filter.JurisdictionKey)
	}
	return rs, nil
}

func (s *PostgresStore) Find(ctx context.Context, filter RuleFilter) ([]model.RuleSet, error) {
	query, args := buildFindQuery(filter, true, false)
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list rule sets")
	}
	defer rows.Close()

	var out []model.RuleSet
	for rows.Next() {
		rs, err := scanRuleSet(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan rule set")
		}
		out = append(out, *rs)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list rule sets iterate")
}

func (s *PostgresStore) Insert(ctx context.Context, rs *model.RuleSet) (string, error) {
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

	_, err = s.pool.Exec(ctx,
		`INSERT INTO compliance_rules (`+ruleSetColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		rs.ID, rs.State, rs.County, rs.City, rs.JurisdictionKey, rs.JurisdictionType, reqJSON, rs.Source,
		rs.IsVerified, rs.IsActive, rs.ModelUsed, rs.ResearchTimestamp, rs.VerifiedBy, rs.VerificationTimestamp, rs.Notes,
	)
	if err != nil {
		return "", eris.Wrapf(err, "postgres: insert rule set %s", rs.JurisdictionKey)
	}
	return rs.ID, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*model.RuleSet, error) {
	rs, err := scanRuleSet(s.pool.QueryRow(ctx,
		`SELECT `+ruleSetColumns+` FROM compliance_rules WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "postgres: get rule set %s", id)
		}
		return nil, eris.Wrapf(err, "postgres: get rule set %s", id)
	}
	return rs, nil
}

func (s *PostgresStore) Save(ctx context.Context, rs *model.RuleSet) error {
	return savePostgres(ctx, s.pool.Exec, rs)
}

type execFunc func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)

func savePostgres(ctx context.Context, exec execFunc, rs *model.RuleSet) error {
	reqJSON, err := marshalRequirements(rs.Requirements)
	if err != nil {
		return err
	}
	tag, err := exec(ctx,
		`UPDATE compliance_rules SET state = $1, county = $2, city = $3, jurisdiction_key = $4,
		 jurisdiction_type = $5, requirements = $6, source = $7, is_verified = $8, is_active = $9,
		 model_used = $10, research_timestamp = $11, verified_by = $12, verification_timestamp = $13,
		 notes = $14 WHERE id = $15`,
		rs.State, rs.County, rs.City, rs.JurisdictionKey, rs.JurisdictionType, reqJSON, rs.Source,
		rs.IsVerified, rs.IsActive, rs.ModelUsed, rs.ResearchTimestamp, rs.VerifiedBy, rs.VerificationTimestamp,
		rs.Notes, rs.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: save rule set %s", rs.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "postgres: save rule set %s", rs.ID)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, id string, fn func(*model.RuleSet) error) (*model.RuleSet, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: begin update")
	}

	rs, err := scanRuleSet(tx.QueryRow(ctx,
		`SELECT `+ruleSetColumns+` FROM compliance_rules WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		_ = tx.Rollback(ctx)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "postgres: update rule set %s", id)
		}
		return nil, eris.Wrapf(err, "postgres: lock rule set %s", id)
	}

	if err := fn(rs); err != nil {
		_ = tx.Rollback(ctx)
		return nil, err
	}

	if err := savePostgres(ctx, tx.Exec, rs); err != nil {
		_ = tx.Rollback(ctx)
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, eris.Wrapf(err, "postgres: commit rule set %s", id)
	}
	return rs, nil
}
