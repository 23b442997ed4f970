package model

import (
	"time"
)

// isoLayout renders UTC timestamps with an explicit +00:00 offset.
const isoLayout = "2006-01-02T15:04:05-07:00"

// Result is the lookup outcome for one WorkKey.
type Result struct {
	Key           WorkKey
	BlockHeight   *uint64
	BlockTimeUnix *int64
	BlockTimeISO  string
	BlockHash     string
	Source        Backend
	Error         string
}

// TxStatus is the confirmation data a backend reports for a transaction.
type TxStatus struct {
	Confirmed   bool
	BlockHeight *uint64
	BlockTime   *int64
	BlockHash   string
}

// Resolved builds the Result for a successful lookup. Unconfirmed transactions
// carry no block fields and no error.
func Resolved(key WorkKey, source Backend, status TxStatus) Result {
	r := Result{Key: key, Source: source}
	if !status.Confirmed {
		return r
	}
	r.BlockHeight = status.BlockHeight
	r.BlockTimeUnix = status.BlockTime
	r.BlockTimeISO = ISOTime(status.BlockTime)
	r.BlockHash = status.BlockHash
	return r
}

// Failed builds the Result for a lookup that ended in an error.
func Failed(key WorkKey, source Backend, reason string) Result {
	return Result{Key: key, Source: source, Error: reason}
}

// Confirmed reports whether the result carries block data.
func (r Result) Confirmed() bool {
	return r.Error == "" && r.BlockHeight != nil
}

// ISOTime formats a unix timestamp in UTC; nil yields an empty string.
func ISOTime(ts *int64) string {
	if ts == nil {
		return ""
	}
	return time.Unix(*ts, 0).UTC().Format(isoLayout)
}
