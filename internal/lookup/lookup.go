// Package lookup fetches transaction confirmation data from remote backends.
package lookup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goodnatureofminers/blockinsight7000-txlookup/internal/model"
	"go.uber.org/zap"
)

const (
	defaultTimeout   = 15 * time.Second
	defaultUserAgent = "blockinsight7000-txlookup/1.0"
)

// Client performs a single lookup round trip. Failures are *model.Failure.
type Client interface {
	Fetch(ctx context.Context, key model.WorkKey) (model.TxStatus, error)
	Backend() model.Backend
}

// Options configures a backend client.
type Options struct {
	// BaseURL overrides the Esplora endpoint; required for model.Esplora.
	BaseURL string
	// RPCURL, RPCUser and RPCPassword address a model.Bitcoind node.
	RPCURL      string
	RPCUser     string
	RPCPassword string
	Timeout     time.Duration
	Metrics     Metrics
	Logger      *zap.Logger
}

// New returns the client variant serving backend.
func New(backend model.Backend, opts Options) (Client, error) {
	switch backend {
	case model.Blockstream, model.Mempool, model.Esplora:
		base := opts.BaseURL
		if base == "" {
			hosted, ok := backend.EsploraBaseURL()
			if !ok {
				return nil, fmt.Errorf("api url is required for %s backend", backend)
			}
			base = hosted
		}
		return NewEsploraClient(backend, base, opts), nil
	case model.Bitcoind:
		if opts.RPCURL == "" {
			return nil, errors.New("rpc url is required for bitcoind backend")
		}
		return NewNodeClient(opts), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", backend)
	}
}

func newRestyClient(opts Options) *resty.Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return resty.New().
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("User-Agent", defaultUserAgent).
		SetLogger(logger.Sugar())
}

func metricsOrNop(m Metrics) Metrics {
	if m == nil {
		return nopMetrics{}
	}
	return m
}

// invalidKey rejects keys that cannot be a txid without spending a request.
func invalidKey(key model.WorkKey) error {
	if model.ValidTxID(key) {
		return nil
	}
	return &model.Failure{
		Kind:   model.ClientError,
		Code:   400,
		Detail: fmt.Sprintf("invalid txid %q", key),
	}
}

// classifyTransport maps an error raised before any HTTP status was received.
func classifyTransport(err error) *model.Failure {
	var (
		netErr net.Error
		opErr  *net.OpError
		dnsErr *net.DNSError
	)
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return model.TransientFailure(err)
	case errors.As(err, &netErr) && netErr.Timeout():
		return model.TransientFailure(err)
	case errors.As(err, &opErr), errors.As(err, &dnsErr):
		return model.TransientFailure(err)
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return model.TransientFailure(err)
	case errors.Is(err, syscall.ECONNREFUSED), errors.Is(err, syscall.ECONNRESET), errors.Is(err, syscall.EPIPE):
		return model.TransientFailure(err)
	default:
		return model.UnexpectedFailure(err)
	}
}
