package mysqladapter

import (
	"context"
	"fmt"

	"github.com/semitexa/semitexa/internal/dbpool"
)

type txStateKey struct{}

type txState struct {
	conn  *dbpool.Connection
	depth int
}

// Tx is the single-connection adapter view handed to a Run callback.
type Tx struct {
	ctx  context.Context
	conn *dbpool.Connection
}

func (t *Tx) Query(query string, args ...any) (*QueryResult, error) {
	return QueryOn(t.ctx, t.conn, query, args...)
}

func (t *Tx) Execute(query string, args ...any) (int64, error) {
	return ExecuteOn(t.ctx, t.conn, query, args...)
}

// Run claims one connection for the callback's duration, issues BEGIN,
// invokes fn, and commits — or rolls back and rethrows on any error. Nested
// Run calls on the same flow (detected via context) reuse the outer
// connection and wrap the body in SAVEPOINT/RELEASE/ROLLBACK TO instead of a
// new BEGIN/COMMIT.
func (a *Adapter) Run(ctx context.Context, fn func(ctx context.Context, tx *Tx) error) error {
	if outer, ok := ctx.Value(txStateKey{}).(*txState); ok {
		return a.runNested(ctx, outer, fn)
	}

	conn, err := a.Pool.Pop(ctx, a.PopTimeout)
	if err != nil {
		return err
	}
	defer a.Pool.Push(conn)

	if _, err := ExecuteOn(ctx, conn, "START TRANSACTION"); err != nil {
		return err
	}

	state := &txState{conn: conn, depth: 0}
	txCtx := context.WithValue(ctx, txStateKey{}, state)

	if err := fn(txCtx, &Tx{ctx: txCtx, conn: conn}); err != nil {
		_, _ = ExecuteOn(ctx, conn, "ROLLBACK")
		return err
	}
	if _, err := ExecuteOn(ctx, conn, "COMMIT"); err != nil {
		return err
	}
	return nil
}

func (a *Adapter) runNested(ctx context.Context, outer *txState, fn func(ctx context.Context, tx *Tx) error) error {
	depth := outer.depth + 1
	savepoint := fmt.Sprintf("sp_%d", depth)

	if _, err := ExecuteOn(ctx, outer.conn, "SAVEPOINT "+savepoint); err != nil {
		return err
	}

	nested := &txState{conn: outer.conn, depth: depth}
	nestedCtx := context.WithValue(ctx, txStateKey{}, nested)

	if err := fn(nestedCtx, &Tx{ctx: nestedCtx, conn: outer.conn}); err != nil {
		_, _ = ExecuteOn(ctx, outer.conn, "ROLLBACK TO "+savepoint)
		return err
	}
	if _, err := ExecuteOn(ctx, outer.conn, "RELEASE SAVEPOINT "+savepoint); err != nil {
		return err
	}
	return nil
}
