package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/jace/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

var ruleSetCols = []string{
	"id", "state", "county", "city", "jurisdiction_key", "jurisdiction_type", "requirements", "source",
	"is_verified", "is_active", "model_used", "research_timestamp", "verified_by", "verification_timestamp", "notes",
}

func ruleSetRow(mock pgxmock.PgxPoolIface, id string, verified bool) *pgxmock.Rows {
	researched := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	var verifiedAt *time.Time
	verifiedBy := ""
	if verified {
		t := researched.Add(24 * time.Hour)
		verifiedAt = &t
		verifiedBy = "admin"
	}
	return mock.NewRows(ruleSetCols).AddRow(
		id, "MT", "Missoula", "", "MT:Missoula:", "county",
		[]byte(`[{"name":"Radon Disclosure","category":"DISCLOSURE","status":"REQUIRED","confidence":0.9}]`),
		"ai_scout", verified, verified, "gpt-4o", researched, verifiedBy, verifiedAt, "",
	)
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS compliance_rules`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FindOne_Hit(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT .* FROM compliance_rules WHERE jurisdiction_key = \$1 AND is_verified = \$2 AND is_active = \$3 ORDER BY verification_timestamp DESC NULLS LAST`).
		WithArgs("MT:Missoula:", true, true, 1).
		WillReturnRows(ruleSetRow(mock, "rs-1", true))

	rs, err := s.FindOne(context.Background(), LiveFilter("MT:Missoula:"))
	require.NoError(t, err)
	require.NotNil(t, rs)
	assert.Equal(t, "rs-1", rs.ID)
	assert.True(t, rs.Live())
	require.Len(t, rs.Requirements, 1)
	assert.Equal(t, "Radon Disclosure", rs.Requirements[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FindOne_Miss(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM compliance_rules WHERE jurisdiction_key = \$1`).
		WithArgs("NY:Kings:Brooklyn", true, true, 1).
		WillReturnError(pgx.ErrNoRows)

	rs, err := s.FindOne(context.Background(), LiveFilter("NY:Kings:Brooklyn"))
	require.NoError(t, err)
	assert.Nil(t, rs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FindOne_Error(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM compliance_rules`).
		WithArgs("MT::", true, true, 1).
		WillReturnError(errors.New("connection refused"))

	rs, err := s.FindOne(context.Background(), LiveFilter("MT::"))
	require.Error(t, err)
	assert.Nil(t, rs)
	assert.Contains(t, err.Error(), "find rule set MT::")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Find(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM compliance_rules WHERE state = \$1 ORDER BY research_timestamp DESC LIMIT \$2`).
		WithArgs("MT", DefaultListLimit).
		WillReturnRows(ruleSetRow(mock, "rs-1", false))

	out, err := s.Find(context.Background(), RuleFilter{State: "mt"})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.False(t, out[0].IsVerified)
	assert.Nil(t, out[0].VerificationTimestamp)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Insert(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO compliance_rules`).
		WithArgs(pgxmock.AnyArg(), "MT", "Gallatin", "Bozeman", "MT:Gallatin:Bozeman", "city", pgxmock.AnyArg(), "ai_scout",
			false, false, pgxmock.AnyArg(), pgxmock.AnyArg(), "", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	rs := sampleRuleSet("MT:Gallatin:Bozeman")
	id, err := s.Insert(context.Background(), rs)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Get_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM compliance_rules WHERE id = \$1`).
		WithArgs("nonexistent").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.Get(context.Background(), "nonexistent")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Save_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE compliance_rules SET`).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	rs := sampleRuleSet("MT::")
	rs.ID = "gone"
	err := s.Save(context.Background(), rs)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Update_LocksRow(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM compliance_rules WHERE id = \$1 FOR UPDATE`).
		WithArgs("rs-1").
		WillReturnRows(ruleSetRow(mock, "rs-1", false))
	mock.ExpectExec(`UPDATE compliance_rules SET`).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	rs, err := s.Update(context.Background(), "rs-1", func(r *model.RuleSet) error {
		r.MarkVerified("reviewer", time.Now())
		return nil
	})
	require.NoError(t, err)
	assert.True(t, rs.Live())
	assert.Equal(t, "reviewer", rs.VerifiedBy)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Update_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	_, err := s.Update(context.Background(), "missing", func(*model.RuleSet) error { return nil })
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}
