// rpc.go — JSON-RPC client against a Sui fullnode.
//
// Wire mapping:
//   Call            → suix_callMoveFunction
//   GetOwnedObjects → suix_getOwnedObjects (filter StructType, showContent)
//   SignAndExecute  → sui_executeTransactionBlock
package ledger

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/suistream/suistream/internal/metrics"
	"github.com/suistream/suistream/internal/retry"
)

// RPCClient talks JSON-RPC 2.0 to a fullnode endpoint.
type RPCClient struct {
	url    string
	http   *http.Client
	policy retry.Policy
	logger *slog.Logger
	nextID atomic.Int64
}

var _ Client = (*RPCClient)(nil)

// NewRPCClient creates a client for the given fullnode URL.
// Reads are retried under policy; writes never are.
func NewRPCClient(url string, policy retry.Policy, logger *slog.Logger) *RPCClient {
	return &RPCClient{
		url:    url,
		http:   &http.Client{Timeout: 15 * time.Second},
		policy: policy,
		logger: logger,
	}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

// do performs one JSON-RPC round trip. Network failures and 5xx responses
// come back as plain errors (retryable); RPC-level errors come back wrapped
// in retry.Permanent — the node understood us and said no.
func (c *RPCClient) do(ctx context.Context, method string, params []any) (json.RawMessage, error) {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return nil, &retry.Permanent{Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, &retry.Permanent{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.LedgerCallDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("rpc %s: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("rpc %s: fullnode returned %d", method, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &retry.Permanent{Err: fmt.Errorf("rpc %s: fullnode returned %d", method, resp.StatusCode)}
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("rpc %s: read body: %w", method, err)
	}

	var rr rpcResponse
	if err := json.Unmarshal(raw, &rr); err != nil {
		return nil, fmt.Errorf("rpc %s: malformed response: %w", method, err)
	}
	if rr.Error != nil {
		return nil, &retry.Permanent{Err: fmt.Errorf("%w: %s (code %d)", ErrRejected, rr.Error.Message, rr.Error.Code)}
	}
	return rr.Result, nil
}

// read performs a retried read-only RPC. Exhausted transient failures come
// back wrapped in ErrUnavailable so callers can distinguish "unknown" from a
// confirmed negative.
func (c *RPCClient) read(ctx context.Context, method string, params []any) (json.RawMessage, error) {
	var result json.RawMessage
	err := c.policy.Do(ctx, func() error {
		var inner error
		result, inner = c.do(ctx, method, params)
		return inner
	})
	if err != nil {
		if errors.Is(err, ErrRejected) {
			return nil, err
		}
		c.logger.Warn("ledger read failed", "method", method, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return result, nil
}

// Call performs a read-only contract function call.
func (c *RPCClient) Call(ctx context.Context, target string, args []any) (*ReadResult, error) {
	pkg, module, function, err := splitTarget(target)
	if err != nil {
		return nil, err
	}
	result, err := c.read(ctx, "suix_callMoveFunction", []any{
		map[string]any{
			"packageObjectId": pkg,
			"module":          module,
			"function":        function,
			"typeArguments":   []string{},
			"arguments":       args,
		},
	})
	if err != nil {
		return nil, err
	}
	return &ReadResult{Status: StatusSuccess, Raw: result}, nil
}

// ownedObjectsPage is the fullnode's paged response shape for owned objects.
type ownedObjectsPage struct {
	Data []struct {
		Data *struct {
			ObjectID string `json:"objectId"`
			Type     string `json:"type"`
			Content  *struct {
				Type   string          `json:"type"`
				Fields json.RawMessage `json:"fields"`
			} `json:"content"`
		} `json:"data"`
	} `json:"data"`
	HasNextPage bool    `json:"hasNextPage"`
	NextCursor  *string `json:"nextCursor"`
}

// GetOwnedObjects lists all objects of structType owned by owner, following
// pagination until exhausted.
func (c *RPCClient) GetOwnedObjects(ctx context.Context, owner, structType string) ([]OwnedObject, error) {
	var objects []OwnedObject
	var cursor *string

	for {
		query := map[string]any{
			"filter":  map[string]any{"StructType": structType},
			"options": map[string]any{"showContent": true, "showType": true},
		}
		params := []any{owner, query}
		if cursor != nil {
			params = append(params, *cursor)
		}

		result, err := c.read(ctx, "suix_getOwnedObjects", params)
		if err != nil {
			return nil, err
		}

		var page ownedObjectsPage
		if err := json.Unmarshal(result, &page); err != nil {
			return nil, fmt.Errorf("%w: malformed owned-objects page: %v", ErrUnavailable, err)
		}
		for _, item := range page.Data {
			if item.Data == nil {
				continue
			}
			obj := OwnedObject{ObjectID: item.Data.ObjectID, ObjectType: item.Data.Type}
			if item.Data.Content != nil {
				obj.Fields = item.Data.Content.Fields
				if obj.ObjectType == "" {
					obj.ObjectType = item.Data.Content.Type
				}
			}
			objects = append(objects, obj)
		}
		if !page.HasNextPage || page.NextCursor == nil {
			return objects, nil
		}
		cursor = page.NextCursor
	}
}

// executeResponse is the fullnode's response shape for an executed
// transaction block.
type executeResponse struct {
	Digest  string `json:"digest"`
	Effects struct {
		Status struct {
			Status string `json:"status"`
			Error  string `json:"error"`
		} `json:"status"`
	} `json:"effects"`
	ObjectChanges []struct {
		Type       string `json:"type"`
		ObjectID   string `json:"objectId"`
		ObjectType string `json:"objectType"`
	} `json:"objectChanges"`
}

// SignAndExecute signs the move call with the injected signer capability and
// submits it. Not retried — see package doc.
func (c *RPCClient) SignAndExecute(ctx context.Context, call MoveCall, signer Signer) (*TransactionResult, error) {
	if signer == nil {
		return nil, &retry.Permanent{Err: fmt.Errorf("no signer capability provided")}
	}
	if _, _, _, err := splitTarget(call.Target); err != nil {
		return nil, err
	}

	txBytes, err := json.Marshal(struct {
		Sender string   `json:"sender"`
		Call   MoveCall `json:"call"`
	}{Sender: signer.Address(), Call: call})
	if err != nil {
		return nil, err
	}
	sig, err := signer.Sign(txBytes)
	if err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}

	result, err := c.do(ctx, "sui_executeTransactionBlock", []any{
		base64.StdEncoding.EncodeToString(txBytes),
		[]string{base64.StdEncoding.EncodeToString(sig)},
		map[string]any{"showEffects": true, "showObjectChanges": true},
		"WaitForLocalExecution",
	})
	if err != nil {
		if errors.Is(err, ErrRejected) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var exec executeResponse
	if err := json.Unmarshal(result, &exec); err != nil {
		return nil, fmt.Errorf("%w: malformed execution response: %v", ErrUnavailable, err)
	}

	tr := &TransactionResult{Digest: exec.Digest, Status: StatusFailure}
	for _, change := range exec.ObjectChanges {
		if change.Type == "created" {
			tr.CreatedObjects = append(tr.CreatedObjects, CreatedObject{
				ObjectID:   change.ObjectID,
				ObjectType: change.ObjectType,
			})
		}
	}
	if exec.Effects.Status.Status == string(StatusSuccess) {
		tr.Status = StatusSuccess
		return tr, nil
	}
	return tr, fmt.Errorf("%w: %s", ErrRejected, exec.Effects.Status.Error)
}

// splitTarget parses "package::module::function".
func splitTarget(target string) (pkg, module, function string, err error) {
	parts := strings.Split(target, "::")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return "", "", "", fmt.Errorf("invalid call target %q (want package::module::function)", target)
	}
	return parts[0], parts[1], parts[2], nil
}
