package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	qerrors "github.com/FocuswithJustin/JuniperQuran/core/errors"
	"github.com/FocuswithJustin/JuniperQuran/core/quran"
	"github.com/FocuswithJustin/JuniperQuran/internal/logging"
)

// DefaultTable is the table of the SQLite edition of the dataset.
const DefaultTable = "tafseer"

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// LoadRows reads ayah records from a table of db. Columns are matched to
// fields by name, so the column order does not matter and unknown columns
// are ignored. NULL and blank columns stay unset, as empty elements do in
// markup sources.
func (l *Loader) LoadRows(ctx context.Context, a *quran.Assembler, name string, db *sql.DB, table string) (int, error) {
	if table == "" {
		table = DefaultTable
	}
	if !tableName.MatchString(table) {
		return 0, qerrors.NewValidation("table", fmt.Sprintf("invalid table name %q", table))
	}

	rows, err := db.QueryContext(ctx, "SELECT * FROM "+table+" ORDER BY id")
	if err != nil {
		return 0, qerrors.NewIO("query", name, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return 0, qerrors.NewIO("columns", name, err)
	}
	fields := make([]field, len(cols))
	for i, c := range cols {
		fields[i] = fieldFor(c)
	}

	values := make([]sql.NullString, len(cols))
	dest := make([]any, len(cols))
	for i := range values {
		dest[i] = &values[i]
	}

	var index, added int
	for rows.Next() {
		index++
		if err := rows.Scan(dest...); err != nil {
			return added, qerrors.NewIO("scan", name, err)
		}

		err := l.addRow(a, index, fields, values)
		if err == nil {
			added++
			continue
		}
		if l.opts.Policy == PolicySkip {
			logging.RecordSkipped(name, index, err)
			continue
		}
		return added, err
	}
	if err := rows.Err(); err != nil {
		return added, qerrors.NewIO("read", name, err)
	}
	return added, nil
}

func (l *Loader) addRow(a *quran.Assembler, index int, fields []field, values []sql.NullString) error {
	b := NewAyahBuilder(index)
	for i, f := range fields {
		if f == fieldNone || !values[i].Valid || strings.TrimSpace(values[i].String) == "" {
			continue
		}
		if err := b.Set(f, values[i].String); err != nil {
			return wrapRecord(index, err)
		}
	}
	return l.add(a, b)
}
