package lookup

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goodnatureofminers/blockinsight7000-txlookup/internal/model"
	"github.com/goodnatureofminers/blockinsight7000-txlookup/pkg/safe"
)

// EsploraClient queries GET /tx/{txid} on an Esplora-compatible API.
type EsploraClient struct {
	backend model.Backend
	baseURL string
	http    *resty.Client
	metrics Metrics
}

// NewEsploraClient constructs a client for the Esplora API at baseURL.
func NewEsploraClient(backend model.Backend, baseURL string, opts Options) *EsploraClient {
	return &EsploraClient{
		backend: backend,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    newRestyClient(opts),
		metrics: metricsOrNop(opts.Metrics),
	}
}

// Backend returns the backend this client talks to.
func (c *EsploraClient) Backend() model.Backend {
	return c.backend
}

type esploraTx struct {
	Status *esploraStatus `json:"status"`
}

type esploraStatus struct {
	Confirmed   bool   `json:"confirmed"`
	BlockHeight *int64 `json:"block_height"`
	BlockHash   string `json:"block_hash"`
	BlockTime   *int64 `json:"block_time"`
}

// Fetch retrieves the confirmation status of a transaction.
func (c *EsploraClient) Fetch(ctx context.Context, key model.WorkKey) (status model.TxStatus, err error) {
	if err = invalidKey(key); err != nil {
		return model.TxStatus{}, err
	}

	started := time.Now()
	defer func() {
		c.metrics.Observe("get_tx", err, started)
	}()

	resp, reqErr := c.http.R().
		SetContext(ctx).
		SetPathParam("txid", string(key)).
		Get(c.baseURL + "/tx/{txid}")
	if reqErr != nil {
		return model.TxStatus{}, classifyTransport(reqErr)
	}
	if !resp.IsSuccess() {
		return model.TxStatus{}, model.StatusFailure(resp.StatusCode())
	}

	return decodeEsplora(resp.Body())
}

func decodeEsplora(body []byte) (model.TxStatus, error) {
	if !json.Valid(body) {
		return model.TxStatus{}, model.UnexpectedFailure(errors.New("response body is not valid JSON"))
	}

	var tx esploraTx
	if err := json.Unmarshal(body, &tx); err != nil || tx.Status == nil || !tx.Status.Confirmed {
		// Valid JSON of an unknown shape is treated like an unconfirmed tx.
		return model.TxStatus{}, nil
	}

	status := model.TxStatus{
		Confirmed: true,
		BlockHash: tx.Status.BlockHash,
		BlockTime: tx.Status.BlockTime,
	}
	if tx.Status.BlockHeight != nil {
		if height, err := safe.Uint64(*tx.Status.BlockHeight); err == nil {
			status.BlockHeight = &height
		}
	}
	return status, nil
}
