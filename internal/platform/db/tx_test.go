package db

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

type fakeTx struct {
	pgx.Tx
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Commit(ctx context.Context) error {
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(ctx context.Context) error {
	if !t.committed {
		t.rolledBack = true
	}
	return nil
}

type fakeBeginner struct {
	txs []*fakeTx
}

func (b *fakeBeginner) BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error) {
	if opts.IsoLevel != pgx.RepeatableRead {
		return nil, errors.New("unexpected isolation level")
	}
	tx := &fakeTx{}
	b.txs = append(b.txs, tx)
	return tx, nil
}

func TestWithTxCommitsOnSuccess(t *testing.T) {
	b := &fakeBeginner{}
	require.NoError(t, WithTx(context.Background(), b, func(pgx.Tx) error { return nil }))
	require.Len(t, b.txs, 1)
	require.True(t, b.txs[0].committed)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	b := &fakeBeginner{}
	sentinel := errors.New("row failed")
	err := WithTx(context.Background(), b, func(pgx.Tx) error { return sentinel })
	require.ErrorIs(t, err, sentinel)
	require.Len(t, b.txs, 1)
	require.True(t, b.txs[0].rolledBack)
	require.False(t, b.txs[0].committed)
}

func TestWithTxRetriesSerializationFailureOnce(t *testing.T) {
	b := &fakeBeginner{}
	calls := 0
	err := WithTx(context.Background(), b, func(pgx.Tx) error {
		calls++
		if calls == 1 {
			return fmt.Errorf("insert: %w", &pgconn.PgError{Code: codeSerializationFailure})
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 2, calls)
	require.Len(t, b.txs, 2)
	require.True(t, b.txs[1].committed)
}

func TestErrorCodeHelpers(t *testing.T) {
	require.True(t, IsUniqueViolation(fmt.Errorf("wrap: %w", &pgconn.PgError{Code: "23505"})))
	require.False(t, IsUniqueViolation(errors.New("plain")))
	require.False(t, IsSerializationFailure(&pgconn.PgError{Code: "23505"}))
}
