package records

import (
	"github.com/goodnatureofminers/blockinsight7000-txlookup/internal/model"
)

const clashSuffix = "_lookup"

// Merge left-joins snapshot onto t by the normalized value of column. Every
// input row is kept in order; rows without a stored result get empty lookup
// fields. Lookup columns whose name already exists in t get a "_lookup"
// suffix, except the key column itself when it is named like the result key.
func Merge(t *Table, column string, snapshot *model.Snapshot) (*Table, error) {
	idx, err := t.Column(column)
	if err != nil {
		return nil, err
	}

	existing := make(map[string]struct{}, len(t.Header))
	for _, h := range t.Header {
		existing[h] = struct{}{}
	}

	keyColumn := model.ResultColumns[0]
	sharedKey := column == keyColumn

	header := append([]string(nil), t.Header...)
	var picks []int
	for i, name := range model.ResultColumns {
		if i == 0 && sharedKey {
			continue
		}
		if _, clash := existing[name]; clash {
			name += clashSuffix
		}
		header = append(header, name)
		picks = append(picks, i)
	}

	rows := make([][]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		out := make([]string, len(t.Header), len(header))
		copy(out, row)

		var fields []string
		if result, ok := snapshot.Get(model.NormalizeKey(cell(row, idx))); ok {
			fields = result.Fields()
		}
		for _, p := range picks {
			if fields == nil {
				out = append(out, "")
				continue
			}
			out = append(out, fields[p])
		}
		rows = append(rows, out)
	}

	return &Table{Header: header, Rows: rows}, nil
}
