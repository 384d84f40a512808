// Package ledger is the boundary to the external Sui ledger.
//
// The entitlement core treats the ledger as an opaque RPC: reads are
// idempotent and side-effect-free, writes return a success/failure status
// plus any created-object identifiers. Nothing here defines contract
// semantics — that lives on chain.
//
// Reads run under the uniform retry policy. Writes are never auto-retried:
// re-running a partially applied resource creation risks duplicate on-chain
// objects.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Status is a transaction execution status as reported by the ledger.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// ErrUnavailable means the ledger could not be reached (RPC/network failure).
// A read failing with ErrUnavailable is "unknown", not a confirmed negative.
var ErrUnavailable = errors.New("ledger unavailable")

// ErrRejected means the ledger executed the request but reported failure.
var ErrRejected = errors.New("ledger rejected transaction")

// MoveCall identifies a contract function invocation.
// Target format: "package::module::function".
type MoveCall struct {
	Target    string `json:"target"`
	Arguments []any  `json:"arguments"`
}

// CreatedObject identifies an object created by a write transaction.
type CreatedObject struct {
	ObjectID   string `json:"objectId"`
	ObjectType string `json:"objectType"`
}

// TransactionResult is the outcome of a signed write.
type TransactionResult struct {
	Digest         string          `json:"digest"`
	Status         Status          `json:"status"`
	CreatedObjects []CreatedObject `json:"createdObjects,omitempty"`
}

// FindCreated returns the id of the first created object whose type contains
// typeSubstring, or "" if none matches.
func (t *TransactionResult) FindCreated(typeSubstring string) string {
	for _, obj := range t.CreatedObjects {
		if strings.Contains(obj.ObjectType, typeSubstring) {
			return obj.ObjectID
		}
	}
	return ""
}

// OwnedObject is an on-chain object owned by an address, with its raw
// content fields. Decoding the fields into an internal type happens at the
// resolver boundary, failing closed on schema mismatch.
type OwnedObject struct {
	ObjectID   string          `json:"objectId"`
	ObjectType string          `json:"objectType"`
	Fields     json.RawMessage `json:"fields"`
}

// ReadResult is the outcome of a side-effect-free contract call.
type ReadResult struct {
	Status Status          `json:"status"`
	Raw    json.RawMessage `json:"raw"`
}

// Bool decodes the read result as a single boolean return value.
func (r *ReadResult) Bool() (bool, error) {
	var direct bool
	if err := json.Unmarshal(r.Raw, &direct); err == nil {
		return direct, nil
	}
	var wrapped struct {
		ReturnValues []bool `json:"returnValues"`
	}
	if err := json.Unmarshal(r.Raw, &wrapped); err == nil && len(wrapped.ReturnValues) > 0 {
		return wrapped.ReturnValues[0], nil
	}
	return false, fmt.Errorf("read result is not a boolean: %s", truncate(r.Raw, 120))
}

// StringList decodes the read result as a list of strings.
func (r *ReadResult) StringList() ([]string, error) {
	var direct []string
	if err := json.Unmarshal(r.Raw, &direct); err == nil {
		return direct, nil
	}
	var wrapped struct {
		ReturnValues []string `json:"returnValues"`
	}
	if err := json.Unmarshal(r.Raw, &wrapped); err == nil && wrapped.ReturnValues != nil {
		return wrapped.ReturnValues, nil
	}
	return nil, fmt.Errorf("read result is not a string list: %s", truncate(r.Raw, 120))
}

// Client is the call interface the entitlement core consumes.
type Client interface {
	// Call performs a read-only contract function call.
	Call(ctx context.Context, target string, args []any) (*ReadResult, error)

	// GetOwnedObjects lists objects of the given struct type owned by owner.
	GetOwnedObjects(ctx context.Context, owner, structType string) ([]OwnedObject, error)

	// SignAndExecute signs call with the given signer capability and executes
	// it on the ledger. Returns ErrRejected (wrapped) when the ledger reports
	// failure, ErrUnavailable (wrapped) when it cannot be reached.
	SignAndExecute(ctx context.Context, call MoveCall, signer Signer) (*TransactionResult, error)
}

func truncate(b []byte, n int) string {
	s := string(b)
	if len(s) > n {
		return s[:n] + "…"
	}
	return s
}
