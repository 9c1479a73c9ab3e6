package sync

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/semitexa/semitexa/internal/schema"
)

// auditOperation is the JSON shape of one executed operation.
type auditOperation struct {
	Type        schema.DdlKind `json:"type"`
	Table       string         `json:"table"`
	Destructive bool           `json:"destructive"`
	Description string         `json:"description"`
	SQL         string         `json:"sql"`
}

type auditFile struct {
	Timestamp        string           `json:"timestamp"`
	OperationsCount  int              `json:"operations_count"`
	Operations       []auditOperation `json:"operations"`
}

// WriteAudit writes the sibling .json/.sql pair under
// {root}/var/migrations/history/, timestamped to millisecond precision.
// Missing directories are created.
func WriteAudit(root string, executed []schema.DdlOperation, at time.Time) (jsonPath, sqlPath string, err error) {
	dir := filepath.Join(root, "var", "migrations", "history")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("create audit dir: %w", err)
	}

	stamp := at.Format("2006-01-02_15-04-05.000")
	base := stamp + "_sync"
	jsonPath = filepath.Join(dir, base+".json")
	sqlPath = filepath.Join(dir, base+".sql")

	ops := make([]auditOperation, len(executed))
	for i, op := range executed {
		ops[i] = auditOperation{
			Type: op.Kind, Table: op.Table, Destructive: op.Destructive,
			Description: op.Description, SQL: op.SQL,
		}
	}
	payload := auditFile{
		Timestamp:       at.UTC().Format(time.RFC3339Nano),
		OperationsCount: len(ops),
		Operations:      ops,
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", "", fmt.Errorf("marshal audit json: %w", err)
	}
	if err := os.WriteFile(jsonPath, data, 0o644); err != nil {
		return "", "", fmt.Errorf("write audit json: %w", err)
	}

	var sqlScript string
	for _, op := range executed {
		sqlScript += op.SQL + ";\n"
	}
	if err := os.WriteFile(sqlPath, []byte(sqlScript), 0o644); err != nil {
		return "", "", fmt.Errorf("write audit sql: %w", err)
	}

	return jsonPath, sqlPath, nil
}
