// Command semitexa is the operator-facing CLI for the schema-sync engine
// and seed runner.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/semitexa/semitexa/internal/config"
	"github.com/semitexa/semitexa/internal/mysqladapter"
	"github.com/semitexa/semitexa/internal/orm/upsert"
	"github.com/semitexa/semitexa/internal/resource"
	"github.com/semitexa/semitexa/internal/schema"
	"github.com/semitexa/semitexa/internal/schema/collector"
	"github.com/semitexa/semitexa/internal/schema/sync"
)

var tomlPath string

var rootCmd = &cobra.Command{
	Use:   "semitexa",
	Short: "Attribute-driven ORM and schema-sync engine for MySQL",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&tomlPath, "config", "semitexa.toml", "path to the optional semitexa.toml overlay")
	rootCmd.AddCommand(statusCmd, diffCmd, syncCmd, seedCmd, demoCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error: %v", err))
		os.Exit(1)
	}
}

// registeredTypes lists every resource.Register()'d zero value; the CLI
// subcommands operate over this set since there is no runtime scanning of
// arbitrary packages for annotated types.
var registeredTypes = []any{
	resource.User{},
	resource.Order{},
	resource.OrderItem{},
	resource.Tag{},
}

func declaredSchema() (*schema.Schema, error) {
	res := collector.Collect(registeredTypes)
	if len(res.Errors) > 0 {
		return nil, res.Errors[0]
	}
	for _, w := range res.Warnings {
		log.Printf("warn: %s", w)
	}
	return res.Schema, nil
}

func openAdapter(cfg *config.Config) (*mysqladapter.Adapter, error) {
	adapter, err := mysqladapter.Open(cfg.CLIDSN(), cfg.DBPoolSize)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	return adapter, nil
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report server version, pool size, and declared table count",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(tomlPath)
		if err != nil {
			return err
		}
		adapter, err := openAdapter(cfg)
		if err != nil {
			return err
		}
		defer adapter.Pool.Close()

		ctx := context.Background()
		version, err := adapter.ServerVersion(ctx)
		if err != nil {
			return err
		}
		declared, err := declaredSchema()
		if err != nil {
			return err
		}

		fmt.Printf("server version: %s\n", version)
		fmt.Printf("pool size:      %d\n", cfg.DBPoolSize)
		fmt.Printf("declared tables: %s\n", humanize.Comma(int64(len(declared.Tables))))
		return nil
	},
}

var diffCmd = &cobra.Command{
	Use:   "diff",
	Short: "Show declared-vs-live schema differences without applying them",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(tomlPath)
		if err != nil {
			return err
		}
		adapter, err := openAdapter(cfg)
		if err != nil {
			return err
		}
		defer adapter.Pool.Close()

		declared, err := declaredSchema()
		if err != nil {
			return err
		}

		ctx := context.Background()
		diff, plan, err := sync.Diff(ctx, adapter, cfg.DBDatabase, cfg.IgnoreTables, declared)
		if err != nil {
			return err
		}
		printPlan(diff, plan)
		return nil
	},
}

var (
	syncDryRun           bool
	syncAllowDestructive bool
	syncRequireAtomic    bool
	syncAuditOut         string
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reconcile the live database to the declared schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(tomlPath)
		if err != nil {
			return err
		}
		adapter, err := openAdapter(cfg)
		if err != nil {
			return err
		}
		defer adapter.Pool.Close()

		declared, err := declaredSchema()
		if err != nil {
			return err
		}

		allowDestructive := syncAllowDestructive || cfg.Overlay.AllowDestructive
		auditRoot := syncAuditOut
		if auditRoot == "" {
			auditRoot = "."
		}

		ctx := context.Background()
		start := time.Now()
		outcome, err := sync.Run(ctx, adapter, cfg.DBDatabase, cfg.IgnoreTables, declared, allowDestructive, syncRequireAtomic, syncDryRun, auditRoot)
		if err != nil {
			return err
		}

		printPlan(outcome.Diff, outcome.Plan)
		if outcome.Result != nil {
			color.Green("executed %d operation(s), skipped %d in %s",
				len(outcome.Result.Executed), len(outcome.Result.Skipped), time.Since(start).Round(time.Millisecond))
			if len(outcome.Result.Skipped) > 0 {
				color.Yellow("skipped (destructive, pass --allow-destructive to apply):")
				for _, op := range outcome.Result.Skipped {
					fmt.Printf("  %s\n", op.SQL)
				}
			}
			if syncAuditOut != "" {
				var script strings.Builder
				for _, op := range outcome.Result.Executed {
					script.WriteString(op.SQL + ";\n")
				}
				if err := os.WriteFile(syncAuditOut, []byte(script.String()), 0o644); err != nil {
					return fmt.Errorf("write %s: %w", syncAuditOut, err)
				}
			}
		}
		return nil
	},
}

func init() {
	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "compute and print the plan without executing it")
	syncCmd.Flags().BoolVar(&syncAllowDestructive, "allow-destructive", false, "also execute destructive operations (DROP COLUMN/TABLE, narrowing ALTER)")
	syncCmd.Flags().BoolVar(&syncRequireAtomic, "require-atomic", false, "refuse to execute at all if the server does not support atomic DDL")
	syncCmd.Flags().StringVarP(&syncAuditOut, "output", "o", "", "root directory for the migrations/history audit trail")
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Upsert every registered resource type's Defaults()",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(tomlPath)
		if err != nil {
			return err
		}
		adapter, err := openAdapter(cfg)
		if err != nil {
			return err
		}
		defer adapter.Pool.Close()

		ctx := context.Background()
		results, err := upsert.Seed(ctx, adapter, registeredTypes)
		if err != nil {
			return err
		}
		for table, r := range results {
			fmt.Printf("%s: inserted=%d updated=%d unchanged=%d\n", table, r.Inserted, r.Updated, r.Unchanged)
		}
		return nil
	},
}

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run status, diff, sync --dry-run, and seed in sequence",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, name := range []string{"status", "diff"} {
			c, _, err := rootCmd.Find([]string{name})
			if err != nil {
				return err
			}
			if err := c.RunE(c, nil); err != nil {
				return err
			}
		}
		syncDryRun = true
		if err := syncCmd.RunE(syncCmd, nil); err != nil {
			return err
		}
		return seedCmd.RunE(seedCmd, nil)
	},
}

func printPlan(diff *schema.SchemaDiff, plan *schema.ExecutionPlan) {
	if diff.IsEmpty() {
		color.Green("schema is already in sync")
		return
	}
	for _, op := range plan.Operations {
		label := fmt.Sprintf("[%s] %s", op.Kind, op.Description)
		if op.Destructive {
			color.Red("%s (destructive)", label)
		} else {
			color.Cyan(label)
		}
		fmt.Printf("  %s\n", op.SQL)
	}
}
