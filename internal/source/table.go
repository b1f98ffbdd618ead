package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
)

// Table is a tabular query result. The first CSV row becomes the column
// names.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Len returns the number of rows.
func (t Table) Len() int {
	return len(t.Rows)
}

// ParseCSV reads a CSV document with a header row.
func ParseCSV(r io.Reader) (Table, error) {
	reader := csv.NewReader(r)

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return Table{}, nil
	}
	if err != nil {
		return Table{}, fmt.Errorf("unable to read csv header: %w", err)
	}

	t := Table{Columns: header}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Table{}, fmt.Errorf("unable to read csv row %d: %w", len(t.Rows)+1, err)
		}
		t.Rows = append(t.Rows, record)
	}
	return t, nil
}

// WriteCSV writes the table with its header row.
func (t Table) WriteCSV(w io.Writer) error {
	writer := csv.NewWriter(w)
	if len(t.Columns) > 0 {
		if err := writer.Write(t.Columns); err != nil {
			return err
		}
	}
	if err := writer.WriteAll(t.Rows); err != nil {
		return err
	}
	return writer.Error()
}
