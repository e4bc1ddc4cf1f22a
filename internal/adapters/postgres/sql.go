package postgres

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/okian/locapi/internal/domain/model"
)

func ident(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

func buildSelect(table string, filters []model.Filter) (string, []any) {
	var b strings.Builder
	b.WriteString("SELECT * FROM ")
	b.WriteString(ident(table))
	args := appendWhere(&b, filters, nil)
	return b.String(), args
}

func buildInsert(table string, rec model.Record, returning bool) (string, []any) {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(ident(table))

	cols := sortedColumns(rec)
	args := make([]any, 0, len(cols))
	if len(cols) == 0 {
		b.WriteString(" DEFAULT VALUES")
	} else {
		quoted := make([]string, len(cols))
		params := make([]string, len(cols))
		for i, c := range cols {
			quoted[i] = ident(c)
			params[i] = "$" + strconv.Itoa(i+1)
			args = append(args, argValue(rec[c]))
		}
		b.WriteString(" (" + strings.Join(quoted, ", ") + ")")
		b.WriteString(" VALUES (" + strings.Join(params, ", ") + ")")
	}
	if returning {
		b.WriteString(" RETURNING *")
	}
	return b.String(), args
}

func buildUpdate(table string, rec model.Record, filters []model.Filter, returning bool) (string, []any, error) {
	cols := sortedColumns(rec)
	if len(cols) == 0 {
		return "", nil, ErrNoColumns
	}
	var b strings.Builder
	b.WriteString("UPDATE ")
	b.WriteString(ident(table))
	b.WriteString(" SET ")

	args := make([]any, 0, len(cols)+len(filters))
	for i, c := range cols {
		if i > 0 {
			b.WriteString(", ")
		}
		args = append(args, argValue(rec[c]))
		b.WriteString(ident(c) + " = $" + strconv.Itoa(len(args)))
	}
	args = appendWhere(&b, filters, args)
	if returning {
		b.WriteString(" RETURNING *")
	}
	return b.String(), args, nil
}

func buildDelete(table string, filters []model.Filter, returning bool) (string, []any) {
	var b strings.Builder
	b.WriteString("DELETE FROM ")
	b.WriteString(ident(table))
	args := appendWhere(&b, filters, nil)
	if returning {
		b.WriteString(" RETURNING *")
	}
	return b.String(), args
}

// appendWhere compares as text so a path segment matches integer, uuid and
// text keys alike.
func appendWhere(b *strings.Builder, filters []model.Filter, args []any) []any {
	for i, f := range filters {
		if i == 0 {
			b.WriteString(" WHERE ")
		} else {
			b.WriteString(" AND ")
		}
		args = append(args, f.Value)
		b.WriteString(ident(f.Column) + "::text = $" + strconv.Itoa(len(args)))
	}
	return args
}

func sortedColumns(rec model.Record) []string {
	cols := make([]string, 0, len(rec))
	for c := range rec {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}

// argValue converts decoded JSON numbers into values pgx can encode.
func argValue(v any) any {
	n, ok := v.(json.Number)
	if !ok {
		return v
	}
	if i, err := n.Int64(); err == nil {
		return i
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}

func normalizeRow(m map[string]any) model.Record {
	out := make(model.Record, len(m))
	for k, v := range m {
		if raw, ok := v.([16]byte); ok {
			out[k] = uuid.UUID(raw).String()
			continue
		}
		out[k] = v
	}
	return out
}
