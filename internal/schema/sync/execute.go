package sync

import (
	"context"

	"github.com/semitexa/semitexa/internal/errs"
	"github.com/semitexa/semitexa/internal/mysqladapter"
	"github.com/semitexa/semitexa/internal/schema"
)

// Result reports what a plan execution actually did.
type Result struct {
	Executed []schema.DdlOperation
	Skipped  []schema.DdlOperation // destructive ops omitted because allowDestructive was false
}

// Execute runs the selected operations of plan against adapter: if the
// server supports atomic DDL, every selected operation runs inside one
// transaction (rolled back as a whole on any failure); otherwise operations
// apply one at a time with no automatic rollback, and the caller can see
// exactly how far execution got. If requireAtomic is set and the server
// doesn't support atomic DDL, execution is refused outright rather than
// silently falling back to the one-at-a-time mode.
func Execute(ctx context.Context, adapter *mysqladapter.Adapter, plan *schema.ExecutionPlan, allowDestructive, requireAtomic bool) (*Result, error) {
	var selected, skipped []schema.DdlOperation
	for _, op := range plan.Operations {
		if op.Destructive && !allowDestructive {
			skipped = append(skipped, op)
			continue
		}
		selected = append(selected, op)
	}

	atomic, err := adapter.SupportsAtomicDDL(ctx)
	if err != nil {
		return nil, err
	}

	if requireAtomic && !atomic {
		return nil, errs.New(errs.Capability, "server does not support atomic DDL, cannot honor requireAtomic")
	}

	if atomic {
		err := adapter.Run(ctx, func(_ context.Context, tx *mysqladapter.Tx) error {
			for _, op := range selected {
				if _, err := tx.Execute(op.SQL); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			// Rolled back as a whole: nothing was durably applied.
			return &Result{Skipped: skipped}, err
		}
		return &Result{Executed: selected, Skipped: skipped}, nil
	}

	var executed []schema.DdlOperation
	for _, op := range selected {
		if _, err := adapter.Execute(ctx, op.SQL); err != nil {
			return &Result{Executed: executed, Skipped: skipped}, err
		}
		executed = append(executed, op)
	}
	return &Result{Executed: executed, Skipped: skipped}, nil
}
