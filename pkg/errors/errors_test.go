package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestNew_MatchesKind(t *testing.T) {
	err := New(ErrNotFound, "评估记录不存在")

	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrConflict)
	assert.Equal(t, "评估记录不存在", err.Error())
}

func TestWrap_KeepsCause(t *testing.T) {
	cause := fmt.Errorf("dial tcp: i/o timeout")
	err := Wrap(ErrTransient, "远程服务暂不可用", cause)

	assert.ErrorIs(t, err, ErrTransient)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "远程服务暂不可用", SafeMessage(err))
}

func TestOptimisticLockIsConflict(t *testing.T) {
	assert.ErrorIs(t, ErrOptimisticLock, ErrConflict)
	assert.Equal(t, ErrConflict, KindOf(fmt.Errorf("submit: %w", ErrOptimisticLock)))
}

func TestKindOf(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{"nil", nil, nil},
		{"record not found", gorm.ErrRecordNotFound, ErrNotFound},
		{"gorm duplicated key", gorm.ErrDuplicatedKey, ErrConflict},
		{"pg unique violation", &pgconn.PgError{Code: "23505"}, ErrConflict},
		{"pg immutable trigger", &pgconn.PgError{Code: "P0001", Hint: "immutable_record"}, ErrImmutable},
		{"other pg error", &pgconn.PgError{Code: "42P01"}, ErrInternal},
		{"plain", errors.New("boom"), ErrInternal},
		{"domain", New(ErrChecksumMismatch, "x"), ErrChecksumMismatch},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, KindOf(tc.err))
		})
	}
}

func TestSafeMessage_HidesInternal(t *testing.T) {
	err := fmt.Errorf("pq: password authentication failed for user %q", "postgres")

	assert.Equal(t, ErrInternal.Error(), SafeMessage(err))
	assert.Equal(t, ErrNotFound.Error(), SafeMessage(gorm.ErrRecordNotFound))
}
