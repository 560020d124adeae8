package migrate

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// SQLiteSchema mirrors the goose migrations for local sqlite databases and
// in-memory test databases. Postgres-only features (arrays, partial indexes,
// gen_random_uuid) are flattened to plain columns.
//
//go:embed sqlite/schema.sql
var SQLiteSchema string

// ApplySQLiteSchema creates every table that does not exist yet.
func ApplySQLiteSchema(ctx context.Context, conn *gorm.DB) error {
	for _, stmt := range strings.Split(SQLiteSchema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if err := conn.WithContext(ctx).Exec(stmt).Error; err != nil {
			return fmt.Errorf("apply sqlite schema: %w", err)
		}
	}
	return nil
}
