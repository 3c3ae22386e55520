package resilience

import (
	"errors"
	"fmt"
	"syscall"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "deadline" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("invalid api key"), false},
		{"explicit", NewTransientError(errors.New("503"), 503), true},
		{"wrapped explicit", eris.Wrap(NewTransientError(errors.New("429"), 429), "llm: complete"), true},
		{"net timeout", fmt.Errorf("send: %w", timeoutErr{}), true},
		{"conn reset", fmt.Errorf("read: %w", syscall.ECONNRESET), true},
		{"conn refused", syscall.ECONNREFUSED, true},
		{"message", errors.New("write tcp: broken pipe"), true},
		{"pg connection", &pgconn.PgError{Code: "08006"}, true},
		{"pg serialization", eris.Wrap(&pgconn.PgError{Code: "40001"}, "update"), true},
		{"pg deadlock", &pgconn.PgError{Code: "40P01"}, true},
		{"pg unique violation", &pgconn.PgError{Code: "23505"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestIsTransientHTTPStatus(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504, 529} {
		assert.True(t, IsTransientHTTPStatus(code), code)
	}
	for _, code := range []int{200, 400, 401, 403, 404, 422} {
		assert.False(t, IsTransientHTTPStatus(code), code)
	}
}

func TestMaybeTransient(t *testing.T) {
	base := errors.New("status")
	assert.True(t, IsTransient(MaybeTransient(base, 503)))
	assert.Same(t, base, MaybeTransient(base, 400))
	assert.NoError(t, MaybeTransient(nil, 503))
}
