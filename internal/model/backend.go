package model

import (
	"fmt"
	"strings"
)

// Backend names a lookup service implementation.
type Backend string

var (
	// Blockstream is the public Blockstream Esplora API.
	Blockstream Backend = "blockstream"
	// Mempool is the public mempool.space Esplora API.
	Mempool Backend = "mempool"
	// Esplora is a self-hosted Esplora API reachable at a configured URL.
	Esplora Backend = "esplora"
	// Bitcoind is a bitcoind node queried over JSON-RPC.
	Bitcoind Backend = "bitcoind"
)

// Backends lists every supported backend.
func Backends() []Backend {
	return []Backend{Blockstream, Mempool, Esplora, Bitcoind}
}

// ParseBackend resolves a backend name case-insensitively.
func ParseBackend(name string) (Backend, error) {
	b := Backend(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Backends() {
		if b == known {
			return b, nil
		}
	}
	return "", fmt.Errorf("api source %q must be one of %v", name, Backends())
}

// EsploraBaseURL returns the public endpoint of a hosted Esplora backend.
func (b Backend) EsploraBaseURL() (string, bool) {
	switch b {
	case Blockstream:
		return "https://blockstream.info/api", true
	case Mempool:
		return "https://mempool.space/api", true
	default:
		return "", false
	}
}
