// Package mysqladapter wraps a dbpool.Pool with a suspension-point-safe
// contract: every Query/Execute acquires a connection, performs the
// statement, fully materializes the result into a QueryResult value, and
// returns the connection — no cursor is ever exposed across a yield.
package mysqladapter

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"

	"github.com/semitexa/semitexa/internal/dbpool"
	"github.com/semitexa/semitexa/internal/errs"
)

// QueryResult is a fully materialized result set: no live cursor survives
// past the call that produced it.
type QueryResult struct {
	Columns []string
	Rows    []map[string]any
}

// Adapter executes statements against a pooled MySQL connection.
type Adapter struct {
	Pool        *dbpool.Pool
	PopTimeout  time.Duration
}

// Open parses dsn with go-sql-driver/mysql options matching the teacher's
// mysqlSourceDB.OpenDB (ParseTime, UTC) and builds a pool-backed Adapter.
func Open(dsn string, poolSize int) (*Adapter, error) {
	cfg, err := mysqldriver.ParseDSN(dsn)
	if err != nil {
		return nil, errs.Wrap(errs.SchemaState, "parse mysql dsn", err)
	}
	cfg.ParseTime = true
	cfg.InterpolateParams = true
	cfg.Loc = time.UTC

	db, err := sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return nil, errs.Wrap(errs.SchemaState, "open mysql", err)
	}
	return &Adapter{Pool: dbpool.New(db, poolSize), PopTimeout: 5 * time.Second}, nil
}

// Query executes sql, materializes every row, and returns the connection to
// the pool before returning.
func (a *Adapter) Query(ctx context.Context, query string, args ...any) (*QueryResult, error) {
	conn, err := a.Pool.Pop(ctx, a.PopTimeout)
	if err != nil {
		return nil, err
	}
	defer a.Pool.Push(conn)

	rows, err := conn.Conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classifyExecError(err)
	}
	defer rows.Close()

	result, err := materialize(rows)
	if err != nil {
		return nil, classifyExecError(err)
	}
	return result, nil
}

// Execute runs a non-query statement and returns the server-reported
// affected-row count exactly, unmodified.
func (a *Adapter) Execute(ctx context.Context, query string, args ...any) (int64, error) {
	conn, err := a.Pool.Pop(ctx, a.PopTimeout)
	if err != nil {
		return 0, err
	}
	defer a.Pool.Push(conn)

	res, err := conn.Conn.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, classifyExecError(err)
	}
	return res.RowsAffected()
}

// ExecuteOn runs a non-query statement on an already-claimed connection
// (used by the transaction manager so every statement inside a flow stays
// on the one connection).
func ExecuteOn(ctx context.Context, conn *dbpool.Connection, query string, args ...any) (int64, error) {
	res, err := conn.Conn.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, classifyExecError(err)
	}
	return res.RowsAffected()
}

// QueryOn runs a query on an already-claimed connection, materializing rows.
func QueryOn(ctx context.Context, conn *dbpool.Connection, query string, args ...any) (*QueryResult, error) {
	rows, err := conn.Conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classifyExecError(err)
	}
	defer rows.Close()
	return materialize(rows)
}

func materialize(rows *sql.Rows) (*QueryResult, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	result := &QueryResult{Columns: cols}
	for rows.Next() {
		dest := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range dest {
			ptrs[i] = &dest[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(map[string]any, len(cols))
		for i, c := range cols {
			row[c] = dest[i]
		}
		result.Rows = append(result.Rows, row)
	}
	return result, rows.Err()
}

func classifyExecError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if strings.Contains(msg, "invalid connection") || strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "broken pipe") || strings.Contains(msg, "EOF") {
		return errs.Wrap(errs.ConnLost, "statement failed on a reset connection", err)
	}
	var myErr *mysqldriver.MySQLError
	if asMySQLError(err, &myErr) {
		switch myErr.Number {
		case 1062, 1451, 1452, 1048, 1216, 1217: // duplicate key, FK violations, not-null violation
			return errs.Wrap(errs.Integrity, "constraint violation", err)
		}
	}
	return err
}

func asMySQLError(err error, target **mysqldriver.MySQLError) bool {
	if me, ok := err.(*mysqldriver.MySQLError); ok {
		*target = me
		return true
	}
	return false
}

// ServerVersion returns the raw MySQL version string via SELECT VERSION().
func (a *Adapter) ServerVersion(ctx context.Context) (string, error) {
	res, err := a.Query(ctx, "SELECT VERSION()")
	if err != nil {
		return "", err
	}
	if len(res.Rows) == 0 {
		return "", errs.New(errs.SchemaState, "SELECT VERSION() returned no rows")
	}
	for _, v := range res.Rows[0] {
		switch vv := v.(type) {
		case []byte:
			return string(vv), nil
		case string:
			return vv, nil
		}
	}
	return "", errs.New(errs.SchemaState, "SELECT VERSION() returned no usable value")
}

// SupportsAtomicDDL reports whether the connected server is MySQL >= 8.0.0,
// the version at which DDL participates in transactions.
func (a *Adapter) SupportsAtomicDDL(ctx context.Context) (bool, error) {
	v, err := a.ServerVersion(ctx)
	if err != nil {
		return false, err
	}
	major, minor, ok := parseMajorMinor(v)
	if !ok {
		return false, errs.New(errs.SchemaState, fmt.Sprintf("unrecognized server version %q", v))
	}
	if major < 8 {
		return false, nil
	}
	_ = minor
	return true, nil
}

func parseMajorMinor(v string) (major, minor int, ok bool) {
	parts := strings.SplitN(v, "-", 2)
	nums := strings.Split(parts[0], ".")
	if len(nums) < 2 {
		return 0, 0, false
	}
	maj, err1 := strconv.Atoi(nums[0])
	min, err2 := strconv.Atoi(nums[1])
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return maj, min, true
}
