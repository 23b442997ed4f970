package enricher

import (
	"context"
	"time"

	"github.com/goodnatureofminers/blockinsight7000-txlookup/internal/model"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	Limiter interface {
		Wait(ctx context.Context) (time.Time, error)
	}
	Resolver interface {
		Resolve(ctx context.Context, key model.WorkKey) (model.Result, error)
	}
	ProgressStore interface {
		Load(ctx context.Context) (*model.Snapshot, error)
		Append(ctx context.Context, results []model.Result) error
	}
	Metrics interface {
		ObserveResolve(result model.Result, started time.Time)
		ObserveCheckpoint(err error, rows int)
		ObserveSkipped(n int)
	}
)
