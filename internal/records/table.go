// Package records reads the input table and writes the enriched output table.
package records

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/goodnatureofminers/blockinsight7000-txlookup/internal/model"
)

// ErrColumnNotFound is returned when a requested column is absent from a table.
var ErrColumnNotFound = errors.New("column not found")

// Table is a CSV document with a header row.
type Table struct {
	Header []string
	Rows   [][]string
}

// ReadTable loads the CSV file at path.
func ReadTable(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read %s: missing header row", path)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s header: %w", path, err)
	}
	header[0] = strings.TrimPrefix(header[0], "\ufeff")

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s rows: %w", path, err)
	}
	return &Table{Header: header, Rows: rows}, nil
}

// Column returns the position of name in the header.
func (t *Table) Column(name string) (int, error) {
	for i, h := range t.Header {
		if h == name {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: %q (available: %s)", ErrColumnNotFound, name, strings.Join(t.Header, ", "))
}

// Keys returns the normalized, non-empty, distinct values of column in
// first-seen order.
func (t *Table) Keys(column string) ([]string, error) {
	idx, err := t.Column(column)
	if err != nil {
		return nil, err
	}

	raw := make([]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		raw = append(raw, cell(row, idx))
	}
	unique := model.UniqueKeys(raw)
	keys := make([]string, len(unique))
	for i, k := range unique {
		keys[i] = string(k)
	}
	return keys, nil
}

// WriteTable writes t to path through a temporary file in the same directory,
// so path is either left untouched or fully replaced.
func WriteTable(path string, t *Table) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	w := csv.NewWriter(tmp)
	if err = w.Write(t.Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err = w.WriteAll(t.Rows); err != nil {
		return fmt.Errorf("write rows: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", tmp.Name(), err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename to %s: %w", path, err)
	}
	return nil
}

func cell(row []string, idx int) string {
	if idx < len(row) {
		return row[idx]
	}
	return ""
}
