// Package model defines domain models for transaction block lookups.
package model

import (
	"strings"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// WorkKey is a normalized transaction id, the unit of idempotent work.
type WorkKey string

// NormalizeKey trims and lowercases a raw identifier.
func NormalizeKey(raw string) WorkKey {
	return WorkKey(strings.ToLower(strings.TrimSpace(raw)))
}

// UniqueKeys normalizes raw identifiers, drops empty values and duplicates,
// and keeps the first-seen order.
func UniqueKeys(raw []string) []WorkKey {
	seen := make(map[WorkKey]struct{}, len(raw))
	keys := make([]WorkKey, 0, len(raw))
	for _, r := range raw {
		key := NormalizeKey(r)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	return keys
}

// ValidTxID reports whether the key is a 32-byte hex transaction id.
func ValidTxID(key WorkKey) bool {
	if len(key) != chainhash.MaxHashStringSize {
		return false
	}
	_, err := chainhash.NewHashFromStr(string(key))
	return err == nil
}
