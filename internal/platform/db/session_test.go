package db

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

func TestConnFromContext_Empty(t *testing.T) {
	if conn := ConnFromContext(context.Background()); conn != nil {
		t.Errorf("expected nil conn from empty context, got %v", conn)
	}
}

func TestConnFromContext_WrongType(t *testing.T) {
	ctx := context.WithValue(context.Background(), DBConnKey, "not a conn")
	if conn := ConnFromContext(ctx); conn != nil {
		t.Errorf("expected nil conn for wrong type, got %v", conn)
	}
}

func TestWithConn_NilConnRoundTrip(t *testing.T) {
	var conn *pgxpool.Conn
	ctx := WithConn(context.Background(), conn)
	if got := ConnFromContext(ctx); got != nil {
		t.Errorf("expected nil conn, got %v", got)
	}
}

func TestTxFromContext_Empty(t *testing.T) {
	if tx := TxFromContext(context.Background()); tx != nil {
		t.Errorf("expected nil tx from empty context, got %v", tx)
	}
}

func TestWithTx_JoinsOuterTransaction(t *testing.T) {
	// A context already carrying a transaction must not begin a new one, so a
	// nil pool is never touched.
	outer := context.WithValue(context.Background(), txKey, fakeTx{})
	called := false
	err := WithTx(outer, nil, func(ctx context.Context) error {
		called = true
		if TxFromContext(ctx) == nil {
			t.Error("expected the outer transaction to be visible")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Error("expected fn to be called")
	}
}

type fakeTx struct{ pgx.Tx }
