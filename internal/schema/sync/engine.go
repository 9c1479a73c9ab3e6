package sync

import (
	"context"
	"time"

	"github.com/semitexa/semitexa/internal/mysqladapter"
	"github.com/semitexa/semitexa/internal/schema"
	"github.com/semitexa/semitexa/internal/schema/compare"
	"github.com/semitexa/semitexa/internal/schema/reader"
)

// Outcome bundles everything one sync invocation produced, for CLI
// presentation (status/diff/sync commands).
type Outcome struct {
	Diff   *schema.SchemaDiff
	Plan   *schema.ExecutionPlan
	Result *Result // nil for a dry run
}

// Diff reads live state and returns the diff and plan without executing
// anything (used by `diff` and by `sync --dry-run`).
func Diff(ctx context.Context, adapter *mysqladapter.Adapter, database string, ignoreTables []string, declared *schema.Schema) (*schema.SchemaDiff, *schema.ExecutionPlan, error) {
	live, err := reader.New(adapter.Pool.DB(), database, ignoreTables).Read()
	if err != nil {
		return nil, nil, err
	}
	diff := compare.Compare(declared, live)
	plan := BuildPlan(diff)
	return diff, plan, nil
}

// Run performs a full sync: read, diff, plan, execute, audit. If dryRun,
// execution and audit are skipped and Outcome.Result is nil. If
// requireAtomic is set, Run refuses to execute at all on a server that
// doesn't support atomic DDL rather than falling back to a one-at-a-time
// apply with no rollback.
func Run(ctx context.Context, adapter *mysqladapter.Adapter, database string, ignoreTables []string, declared *schema.Schema, allowDestructive, requireAtomic, dryRun bool, auditRoot string) (*Outcome, error) {
	diff, plan, err := Diff(ctx, adapter, database, ignoreTables, declared)
	if err != nil {
		return nil, err
	}
	if dryRun {
		return &Outcome{Diff: diff, Plan: plan}, nil
	}

	result, err := Execute(ctx, adapter, plan, allowDestructive, requireAtomic)
	if err != nil {
		return &Outcome{Diff: diff, Plan: plan, Result: result}, err
	}

	if len(result.Executed) > 0 {
		if _, _, err := WriteAudit(auditRoot, result.Executed, time.Now()); err != nil {
			return &Outcome{Diff: diff, Plan: plan, Result: result}, err
		}
	}

	return &Outcome{Diff: diff, Plan: plan, Result: result}, nil
}
