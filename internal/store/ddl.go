package store

import (
	"fmt"
	"strings"

	"github.com/skucrawler/skucrawler/pkg/catalog"
)

// Dialect selects the SQL flavor of the generated DDL.
type Dialect string

const (
	DialectPostgres  Dialect = "postgresql"
	DialectMySQL     Dialect = "mysql"
	DialectSQLite    Dialect = "sqlite"
	DialectOracle    Dialect = "oracle"
	DialectSQLServer Dialect = "sqlserver"
)

// ParseDialect validates a dialect name from the CLI.
func ParseDialect(name string) (Dialect, error) {
	switch Dialect(strings.ToLower(name)) {
	case DialectPostgres, DialectMySQL, DialectSQLite, DialectOracle, DialectSQLServer:
		return Dialect(strings.ToLower(name)), nil
	}
	return "", fmt.Errorf("unknown dialect %q: pick one of postgresql, mysql, sqlite, oracle, sqlserver", name)
}

func (d Dialect) columnType(t catalog.ColType) string {
	switch d {
	case DialectPostgres:
		switch t {
		case catalog.TypeText:
			return "TEXT"
		case catalog.TypeInt:
			return "BIGINT"
		case catalog.TypeFloat:
			return "DOUBLE PRECISION"
		case catalog.TypeBool:
			return "BOOLEAN"
		case catalog.TypeJSON:
			return "JSONB"
		case catalog.TypeTimestamp:
			return "TIMESTAMP WITHOUT TIME ZONE"
		}
	case DialectMySQL:
		switch t {
		case catalog.TypeText:
			return "VARCHAR(255)"
		case catalog.TypeInt:
			return "BIGINT"
		case catalog.TypeFloat:
			return "DOUBLE"
		case catalog.TypeBool:
			return "TINYINT(1)"
		case catalog.TypeJSON:
			return "JSON"
		case catalog.TypeTimestamp:
			return "DATETIME"
		}
	case DialectSQLite:
		switch t {
		case catalog.TypeText:
			return "TEXT"
		case catalog.TypeInt:
			return "INTEGER"
		case catalog.TypeFloat:
			return "REAL"
		case catalog.TypeBool:
			return "BOOLEAN"
		case catalog.TypeJSON:
			return "TEXT"
		case catalog.TypeTimestamp:
			return "TIMESTAMP"
		}
	case DialectOracle:
		switch t {
		case catalog.TypeText:
			return "VARCHAR2(255)"
		case catalog.TypeInt:
			return "NUMBER(19)"
		case catalog.TypeFloat:
			return "BINARY_DOUBLE"
		case catalog.TypeBool:
			return "NUMBER(1)"
		case catalog.TypeJSON:
			return "CLOB"
		case catalog.TypeTimestamp:
			return "TIMESTAMP"
		}
	case DialectSQLServer:
		switch t {
		case catalog.TypeText:
			return "NVARCHAR(255)"
		case catalog.TypeInt:
			return "BIGINT"
		case catalog.TypeFloat:
			return "FLOAT"
		case catalog.TypeBool:
			return "BIT"
		case catalog.TypeJSON:
			return "NVARCHAR(MAX)"
		case catalog.TypeTimestamp:
			return "DATETIME2"
		}
	}
	return "TEXT"
}

// CreateStatements renders CREATE TABLE statements for all live tables
// and their SCD companions, in FK dependency order. Constraints are named
// pk_<table> and fk_<table>_<col>_<referenced> so future migrations can
// target them. Column comments are emitted inline where the dialect
// supports them and as COMMENT ON statements for postgresql and oracle.
func CreateStatements(d Dialect, ifNotExists bool) []string {
	var stmts []string
	for _, t := range catalog.Tables() {
		stmts = append(stmts, createTable(d, t.Name, t.Columns, t.PK, t.FKs, ifNotExists)...)
		if t.SCD {
			stmts = append(stmts, createTable(d, t.SCDName(), t.Columns, scdPK(t), nil, ifNotExists)...)
		}
	}
	return stmts
}

// scdPK promotes observed_at into the primary key so every observation is
// kept as an immutable row.
func scdPK(t *catalog.Table) []string {
	return append(append([]string{}, t.PK...), "observed_at")
}

func createTable(d Dialect, name string, cols []catalog.Column, pk []string, fks []catalog.ForeignKey, ifNotExists bool) []string {
	var b strings.Builder
	b.WriteString("CREATE TABLE ")
	if ifNotExists && d != DialectOracle && d != DialectSQLServer {
		b.WriteString("IF NOT EXISTS ")
	}
	b.WriteString(name)
	b.WriteString(" (\n")

	for _, c := range cols {
		b.WriteString("\t")
		b.WriteString(c.Name)
		b.WriteString(" ")
		b.WriteString(d.columnType(c.Type))
		if !c.Nullable {
			b.WriteString(" NOT NULL")
		}
		switch d {
		case DialectMySQL:
			fmt.Fprintf(&b, " COMMENT '%s'", escapeComment(c.Comment))
		}
		b.WriteString(",")
		switch d {
		case DialectSQLite, DialectSQLServer:
			fmt.Fprintf(&b, " -- %s", c.Comment)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "\tCONSTRAINT pk_%s PRIMARY KEY (%s)", name, strings.Join(pk, ", "))
	for _, fk := range fks {
		fmt.Fprintf(&b, ",\n\tCONSTRAINT fk_%s_%s_%s FOREIGN KEY (%s) REFERENCES %s (%s)",
			name, fk.Columns[0], fk.RefTable,
			strings.Join(fk.Columns, ", "), fk.RefTable, strings.Join(fk.RefColumns, ", "))
	}
	b.WriteString("\n)")

	stmts := []string{b.String()}
	if d == DialectPostgres || d == DialectOracle {
		for _, c := range cols {
			stmts = append(stmts, fmt.Sprintf("COMMENT ON COLUMN %s.%s IS '%s'",
				name, c.Name, escapeComment(c.Comment)))
		}
	}
	return stmts
}

func escapeComment(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
