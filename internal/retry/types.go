package retry

import (
	"context"

	"github.com/goodnatureofminers/blockinsight7000-txlookup/internal/model"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	// Fetcher performs one lookup round trip.
	Fetcher interface {
		Fetch(ctx context.Context, key model.WorkKey) (model.TxStatus, error)
		Backend() model.Backend
	}
)
