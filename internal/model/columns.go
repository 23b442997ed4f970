package model

import (
	"errors"
	"fmt"
	"strconv"
)

// ResultColumns is the tabular layout of a Result.
var ResultColumns = []string{
	"txid",
	"block_height",
	"block_time_unix",
	"block_time_utc_iso",
	"block_hash",
	"api_source",
	"error",
}

// Fields renders the result in ResultColumns order; absent values are empty.
func (r Result) Fields() []string {
	fields := make([]string, 0, len(ResultColumns))
	fields = append(fields, string(r.Key))
	if r.BlockHeight != nil {
		fields = append(fields, strconv.FormatUint(*r.BlockHeight, 10))
	} else {
		fields = append(fields, "")
	}
	if r.BlockTimeUnix != nil {
		fields = append(fields, strconv.FormatInt(*r.BlockTimeUnix, 10))
	} else {
		fields = append(fields, "")
	}
	return append(fields, r.BlockTimeISO, r.BlockHash, string(r.Source), r.Error)
}

// ParseFields decodes a row produced by Fields.
func ParseFields(fields []string) (Result, error) {
	if len(fields) != len(ResultColumns) {
		return Result{}, fmt.Errorf("expected %d fields, got %d", len(ResultColumns), len(fields))
	}
	key := NormalizeKey(fields[0])
	if key == "" {
		return Result{}, errors.New("empty txid")
	}

	r := Result{
		Key:          key,
		BlockTimeISO: fields[3],
		BlockHash:    fields[4],
		Source:       Backend(fields[5]),
		Error:        fields[6],
	}
	if fields[1] != "" {
		height, err := parseHeight(fields[1])
		if err != nil {
			return Result{}, fmt.Errorf("parse block_height: %w", err)
		}
		r.BlockHeight = &height
	}
	if fields[2] != "" {
		ts, err := parseUnix(fields[2])
		if err != nil {
			return Result{}, fmt.Errorf("parse block_time_unix: %w", err)
		}
		r.BlockTimeUnix = &ts
	}
	return r, nil
}

// parseHeight also accepts the "123.0" float rendering some tools emit for
// nullable integer columns.
func parseHeight(s string) (uint64, error) {
	if v, err := strconv.ParseUint(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 || f != float64(uint64(f)) {
		return 0, fmt.Errorf("invalid height %q", s)
	}
	return uint64(f), nil
}

func parseUnix(s string) (int64, error) {
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int64(f)) {
		return 0, fmt.Errorf("invalid timestamp %q", s)
	}
	return int64(f), nil
}
