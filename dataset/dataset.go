// Package dataset reads the tab separated customer export and writes the
// augmented snapshot produced by a training run.
package dataset

import (
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"

	M "custseg/model"
)

const separator = '\t'

// Table is the raw customer export: a normalised header and string cells.
type Table struct {
	Header []string
	Rows   [][]string

	index map[string]int
}

// NewTable builds a table from a header and rows. Header names are normalised.
func NewTable(header []string, rows [][]string) *Table {
	table := &Table{Header: make([]string, len(header)), Rows: rows, index: make(map[string]int)}
	for i, name := range header {
		name = NormaliseColumnName(name)
		table.Header[i] = name
		if _, exists := table.index[name]; !exists {
			table.index[name] = i
		}
	}
	return table
}

// NormaliseColumnName strips spaces and stray tab characters from a header cell.
func NormaliseColumnName(name string) string {
	name = strings.TrimPrefix(name, "\ufeff")
	name = strings.ReplaceAll(name, "\t", "")
	return strings.TrimSpace(name)
}

// ColumnIndex returns the position of a column in the header.
func (t *Table) ColumnIndex(name string) (int, bool) {
	i, ok := t.index[name]
	return i, ok
}

// MissingColumns returns the given columns absent from the header, in the given order.
func (t *Table) MissingColumns(columns []string) []string {
	missing := make([]string, 0)
	for _, column := range columns {
		if _, ok := t.index[column]; !ok {
			missing = append(missing, column)
		}
	}
	return missing
}

// ExtraColumns returns the header columns not consumed by the pipeline, in header order.
func (t *Table) ExtraColumns() []string {
	extra := make([]string, 0)
	for i, column := range t.Header {
		if M.IsRequiredColumn(column) || t.index[column] != i || isDerivedColumn(column) {
			continue
		}
		extra = append(extra, column)
	}
	return extra
}

func isDerivedColumn(column string) bool {
	switch column {
	case M.ColumnAge, M.ColumnTotalSpend, M.ColumnFrequency, M.ColumnTotalAccepted, M.ColumnCluster:
		return true
	}
	return false
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Read parses a tab separated export with a header row.
func Read(reader io.Reader) (*Table, error) {
	csvReader := csv.NewReader(reader)
	csvReader.Comma = separator
	csvReader.LazyQuotes = true

	header, err := csvReader.Read()
	if err == io.EOF {
		return nil, errors.New("empty dataset: missing header row")
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to read dataset header")
	}

	rows := make([][]string, 0)
	for {
		row, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "malformed dataset row")
		}
		rows = append(rows, row)
	}

	return NewTable(header, rows), nil
}

// ReadFile opens and parses a tab separated export from the local disk.
func ReadFile(path string) (*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open dataset %s", path)
	}
	defer file.Close()

	return Read(file)
}
