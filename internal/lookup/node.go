package lookup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/go-resty/resty/v2"
	"github.com/goodnatureofminers/blockinsight7000-txlookup/internal/model"
	"github.com/goodnatureofminers/blockinsight7000-txlookup/pkg/safe"
)

const (
	rpcInWarmup      btcjson.RPCErrorCode = -28
	rpcInvalidParams btcjson.RPCErrorCode = -32602

	txRequestID          = 1
	countRequestID       = 2
	countBeforeRequestID = 3
)

var errTipMoved = errors.New("chain tip moved during lookup")

// NodeClient looks transactions up on a bitcoind node. Each Fetch sends one
// JSON-RPC batch of getblockcount, getrawtransaction and getblockcount again,
// so the block height can be derived from the confirmation count in a single
// round trip. bitcoind runs a batch in order; when the two counts differ a
// block arrived in between and the lookup fails as transient. The node needs
// -txindex to find confirmed transactions outside its wallet.
type NodeClient struct {
	url      string
	user     string
	password string
	http     *resty.Client
	metrics  Metrics
}

// NewNodeClient constructs a bitcoind JSON-RPC client.
func NewNodeClient(opts Options) *NodeClient {
	return &NodeClient{
		url:      opts.RPCURL,
		user:     opts.RPCUser,
		password: opts.RPCPassword,
		http:     newRestyClient(opts),
		metrics:  metricsOrNop(opts.Metrics),
	}
}

// Backend returns model.Bitcoind.
func (c *NodeClient) Backend() model.Backend {
	return model.Bitcoind
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcResponse struct {
	ID     int               `json:"id"`
	Result json.RawMessage   `json:"result"`
	Error  *btcjson.RPCError `json:"error"`
}

// Fetch retrieves the confirmation status of a transaction.
func (c *NodeClient) Fetch(ctx context.Context, key model.WorkKey) (status model.TxStatus, err error) {
	if err = invalidKey(key); err != nil {
		return model.TxStatus{}, err
	}

	started := time.Now()
	defer func() {
		c.metrics.Observe("getrawtransaction", err, started)
	}()

	batch := []rpcRequest{
		{JSONRPC: "1.0", ID: countBeforeRequestID, Method: "getblockcount", Params: []any{}},
		{JSONRPC: "1.0", ID: txRequestID, Method: "getrawtransaction", Params: []any{string(key), 1}},
		{JSONRPC: "1.0", ID: countRequestID, Method: "getblockcount", Params: []any{}},
	}

	req := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(batch)
	if c.user != "" || c.password != "" {
		req.SetBasicAuth(c.user, c.password)
	}
	resp, reqErr := req.Post(c.url)
	if reqErr != nil {
		return model.TxStatus{}, classifyTransport(reqErr)
	}
	if resp.StatusCode() != http.StatusOK {
		return model.TxStatus{}, model.StatusFailure(resp.StatusCode())
	}

	return decodeNodeBatch(resp.Body())
}

func decodeNodeBatch(body []byte) (model.TxStatus, error) {
	var responses []rpcResponse
	if err := json.Unmarshal(body, &responses); err != nil {
		return model.TxStatus{}, model.UnexpectedFailure(fmt.Errorf("decode rpc batch: %w", err))
	}

	var txResp, countResp, countBeforeResp *rpcResponse
	for i := range responses {
		switch responses[i].ID {
		case txRequestID:
			txResp = &responses[i]
		case countRequestID:
			countResp = &responses[i]
		case countBeforeRequestID:
			countBeforeResp = &responses[i]
		}
	}
	if txResp == nil || countResp == nil || countBeforeResp == nil {
		return model.TxStatus{}, model.UnexpectedFailure(errors.New("rpc batch response is incomplete"))
	}
	if txResp.Error != nil {
		return model.TxStatus{}, classifyRPC(txResp.Error)
	}
	for _, count := range []*rpcResponse{countBeforeResp, countResp} {
		if count.Error != nil {
			return model.TxStatus{}, classifyRPC(count.Error)
		}
	}

	var tx btcjson.TxRawResult
	if err := json.Unmarshal(txResp.Result, &tx); err != nil {
		return model.TxStatus{}, nil
	}
	if tx.Confirmations == 0 || tx.BlockHash == "" {
		return model.TxStatus{}, nil
	}

	var tip, tipBefore int64
	if err := json.Unmarshal(countResp.Result, &tip); err != nil {
		return model.TxStatus{}, model.UnexpectedFailure(fmt.Errorf("decode block count: %w", err))
	}
	if err := json.Unmarshal(countBeforeResp.Result, &tipBefore); err != nil {
		return model.TxStatus{}, model.UnexpectedFailure(fmt.Errorf("decode block count: %w", err))
	}
	if tip != tipBefore {
		return model.TxStatus{}, model.TransientFailure(fmt.Errorf("%w: %d -> %d", errTipMoved, tipBefore, tip))
	}

	status := model.TxStatus{
		Confirmed: true,
		BlockHash: tx.BlockHash,
	}
	if height, err := safe.Height(tip, tx.Confirmations); err == nil {
		status.BlockHeight = &height
	}
	if tx.Blocktime > 0 {
		blockTime := tx.Blocktime
		status.BlockTime = &blockTime
	}
	return status, nil
}

func classifyRPC(rpcErr *btcjson.RPCError) *model.Failure {
	switch rpcErr.Code {
	case btcjson.ErrRPCNoTxInfo:
		return &model.Failure{Kind: model.NotFound, Code: http.StatusNotFound, Err: rpcErr}
	case btcjson.ErrRPCInvalidParameter, rpcInvalidParams:
		return &model.Failure{Kind: model.ClientError, Code: http.StatusBadRequest, Err: rpcErr}
	case rpcInWarmup:
		return &model.Failure{Kind: model.ServerError, Code: http.StatusServiceUnavailable, Err: rpcErr}
	default:
		return &model.Failure{
			Kind:   model.Unexpected,
			Detail: fmt.Sprintf("rpc error %d: %s", rpcErr.Code, rpcErr.Message),
			Err:    rpcErr,
		}
	}
}
