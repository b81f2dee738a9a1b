package errors

import (
	"context"
	"database/sql"
	stdErrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type codedErr struct{}

func (codedErr) Error() string        { return "coded" }
func (codedErr) ErrorCode() ErrorCode { return ErrCodeDuplicate }

func TestWrapError(t *testing.T) {
	cause := stdErrors.New("disk full")
	err := WrapError(cause, ErrCodeDatabase, "insert")

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "[DATABASE_ERROR] insert: disk full", err.Error())
	assert.Equal(t, ErrCodeDatabase, GetErrorCode(fmt.Errorf("store: %w", err)))
	assert.Nil(t, WrapError(nil, ErrCodeDatabase, "insert"))
}

func TestAppError_IsByCode(t *testing.T) {
	a := NewError(ErrCodeNotFound, "a")
	b := NewError(ErrCodeNotFound, "b")
	assert.ErrorIs(t, a, b)
	assert.NotErrorIs(t, a, NewError(ErrCodeConflict, "a"))
}

func TestAppError_WithContext(t *testing.T) {
	base := NewError(ErrCodeValidation, "ungueltig")
	withName := base.WithContext("name", "fehlt")
	withBoth := withName.WithContext("preis", "fehlt")

	assert.Empty(t, base.Details())
	assert.Equal(t, map[string]any{"name": "fehlt"}, withName.Details())
	assert.Len(t, withBoth.Details(), 2)
	assert.Equal(t, ErrCodeValidation, withBoth.Code())
	assert.Equal(t, "ungueltig", withBoth.Message())
}

func TestGetErrorCode(t *testing.T) {
	assert.Equal(t, ErrorCode(""), GetErrorCode(nil))
	assert.Equal(t, ErrCodeInternal, GetErrorCode(stdErrors.New("plain")))
	assert.Equal(t, ErrCodeDuplicate, GetErrorCode(fmt.Errorf("wrap: %w", codedErr{})))
}

func TestNormalize(t *testing.T) {
	assert.NoError(t, Normalize(nil))

	plain := stdErrors.New("plain")
	assert.Same(t, plain, Normalize(plain))

	var coded error = codedErr{}
	assert.Equal(t, coded, Normalize(coded))

	assert.Equal(t, ErrCodeNotFound, GetErrorCode(Normalize(sql.ErrNoRows)))
	assert.Equal(t, ErrCodeTimeout, GetErrorCode(Normalize(context.Canceled)))
	assert.Equal(t, ErrCodeDatabase, GetErrorCode(Normalize(sql.ErrTxDone)))
}

func TestWrapDatabaseError(t *testing.T) {
	ctx := context.Background()
	require.NoError(t, WrapDatabaseError(ctx, nil, "find"))

	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{name: "unbekannt", err: stdErrors.New("connection refused"), want: ErrCodeDatabase},
		{name: "keine Zeile", err: sql.ErrNoRows, want: ErrCodeNotFound},
		{name: "schon codiert", err: NewError(ErrCodeNotFound, "weg"), want: ErrCodeNotFound},
		{name: "Zeitueberschreitung", err: fmt.Errorf("query: %w", context.DeadlineExceeded), want: ErrCodeTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := WrapDatabaseError(ctx, tt.err, "find")
			require.Error(t, err)
			assert.Equal(t, tt.want, GetErrorCode(err))
			assert.ErrorIs(t, err, tt.err)
		})
	}
}
