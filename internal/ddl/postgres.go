package ddl

import (
	"fmt"
	"strings"

	"github.com/strata-db/strata/runtime/metadata"
)

// QuoteIdentifier wraps an identifier in double quotes, doubling any embedded
// quotes per the SQL standard.
func QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// columnSQLType maps a logical column type to its PostgreSQL type. The
// integer family becomes a SERIAL variant when the column auto-increments.
func columnSQLType(col metadata.ColumnMetadata) (string, error) {
	switch col.Type {
	case "integer":
		if col.AutoIncrement {
			return "SERIAL", nil
		}
		return "INTEGER", nil
	case "bigInteger":
		if col.AutoIncrement {
			return "BIGSERIAL", nil
		}
		return "BIGINT", nil
	case "smallInteger":
		if col.AutoIncrement {
			return "SMALLSERIAL", nil
		}
		return "SMALLINT", nil
	case "string":
		length := col.Length
		if length <= 0 {
			length = 255
		}
		return fmt.Sprintf("VARCHAR(%d)", length), nil
	case "text":
		return "TEXT", nil
	case "boolean":
		return "BOOLEAN", nil
	case "decimal":
		if col.Precision > 0 {
			if col.Scale > 0 {
				return fmt.Sprintf("NUMERIC(%d,%d)", col.Precision, col.Scale), nil
			}
			return fmt.Sprintf("NUMERIC(%d)", col.Precision), nil
		}
		return "NUMERIC", nil
	case "float":
		return "DOUBLE PRECISION", nil
	case "date":
		return "DATE", nil
	case "time":
		return "TIME", nil
	case "dateTime":
		return "TIMESTAMP", nil
	case "timestamp":
		return "TIMESTAMP WITH TIME ZONE", nil
	case "binary":
		return "BYTEA", nil
	case "json":
		return "JSONB", nil
	}
	return "", fmt.Errorf("unmappable column type %q", col.Type)
}

// formatDefault renders a column default as a SQL literal for the column's
// type. Numeric values pass through, booleans normalize to TRUE/FALSE,
// timestamp columns accept the now() and CURRENT_TIMESTAMP spellings, and
// everything else is quoted with embedded quotes doubled.
func formatDefault(col metadata.ColumnMetadata) string {
	v := col.Default
	switch col.Type {
	case "integer", "bigInteger", "smallInteger", "float", "decimal":
		return v
	case "boolean":
		if strings.EqualFold(v, "true") || v == "1" {
			return "TRUE"
		}
		return "FALSE"
	case "dateTime", "timestamp":
		if strings.EqualFold(v, "now()") || strings.EqualFold(v, "current_timestamp") {
			return "CURRENT_TIMESTAMP"
		}
	}
	return "'" + strings.ReplaceAll(v, "'", "''") + "'"
}

func isNumericType(t string) bool {
	switch t {
	case "integer", "bigInteger", "smallInteger", "float", "decimal":
		return true
	}
	return false
}
