// reviews_test.go — Unit tests for review reads and add-review building.
package reviews

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/suistream/suistream/internal/ledger"
	"github.com/suistream/suistream/internal/registry"
)

type fakeLedger struct {
	result *ledger.ReadResult
	err    error
	target string
	args   []any
}

func (f *fakeLedger) Call(ctx context.Context, target string, args []any) (*ledger.ReadResult, error) {
	f.target = target
	f.args = args
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeLedger) GetOwnedObjects(ctx context.Context, owner, structType string) ([]ledger.OwnedObject, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeLedger) SignAndExecute(ctx context.Context, call ledger.MoveCall, signer ledger.Signer) (*ledger.TransactionResult, error) {
	return nil, errors.New("not implemented")
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func configuredStore(t *testing.T) registry.Store {
	t.Helper()
	store := registry.NewMemoryStore()
	if err := store.SetReviewsHandle(context.Background(), "0xfee1"); err != nil {
		t.Fatal(err)
	}
	return store
}

func TestGet(t *testing.T) {
	raw := json.RawMessage(`[{"reviewer":"0xabc","text":"great","rating":5}]`)
	fake := &fakeLedger{result: &ledger.ReadResult{Status: ledger.StatusSuccess, Raw: raw}}
	svc := NewService(fake, configuredStore(t), "0xpkg", testLogger())

	got, err := svc.Get(context.Background(), "movie-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != string(raw) {
		t.Errorf("reviews = %s", got)
	}
	if fake.target != "0xpkg::content::get_reviews" {
		t.Errorf("called %q", fake.target)
	}
	if len(fake.args) != 2 || fake.args[0] != "0xfee1" || fake.args[1] != "movie-1" {
		t.Errorf("expected [handle, content] arguments, got %v", fake.args)
	}
}

func TestGet_EmptyResultNotNil(t *testing.T) {
	fake := &fakeLedger{result: &ledger.ReadResult{Status: ledger.StatusSuccess}}
	svc := NewService(fake, configuredStore(t), "0xpkg", testLogger())

	got, err := svc.Get(context.Background(), "movie-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != "[]" {
		t.Errorf("expected empty array, got %s", got)
	}
}

func TestGet_HandleNotSet(t *testing.T) {
	svc := NewService(&fakeLedger{}, registry.NewMemoryStore(), "0xpkg", testLogger())
	if _, err := svc.Get(context.Background(), "movie-1"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestGet_LedgerUnavailable(t *testing.T) {
	fake := &fakeLedger{err: fmt.Errorf("%w: refused", ledger.ErrUnavailable)}
	svc := NewService(fake, configuredStore(t), "0xpkg", testLogger())
	if _, err := svc.Get(context.Background(), "movie-1"); !errors.Is(err, ledger.ErrUnavailable) {
		t.Fatalf("expected wrapped ErrUnavailable, got %v", err)
	}
}

func TestBuildMutation(t *testing.T) {
	svc := NewService(&fakeLedger{}, configuredStore(t), "0xpkg", testLogger())

	tx, err := svc.BuildMutation(context.Background(), "0xabc", "movie-1", "loved it")
	if err != nil {
		t.Fatalf("BuildMutation failed: %v", err)
	}
	if tx.Sender != "0xabc" {
		t.Errorf("sender = %q", tx.Sender)
	}
	if tx.Call.Target != "0xpkg::content::add_review" {
		t.Errorf("target = %q", tx.Call.Target)
	}
	if len(tx.Call.Arguments) != 3 || tx.Call.Arguments[0] != "0xfee1" ||
		tx.Call.Arguments[1] != "movie-1" || tx.Call.Arguments[2] != "loved it" {
		t.Errorf("arguments = %v", tx.Call.Arguments)
	}
}

func TestBuildMutation_Validation(t *testing.T) {
	svc := NewService(&fakeLedger{}, configuredStore(t), "0xpkg", testLogger())

	if _, err := svc.BuildMutation(context.Background(), "0xabc", "  ", "text"); err == nil {
		t.Error("blank content ref must be rejected")
	}
	if _, err := svc.BuildMutation(context.Background(), "0xabc", "movie-1", ""); err == nil {
		t.Error("empty text must be rejected")
	}
	long := strings.Repeat("x", maxTextLength+1)
	if _, err := svc.BuildMutation(context.Background(), "0xabc", "movie-1", long); err == nil {
		t.Error("over-length text must be rejected")
	}
}

func TestBuildMutation_HandleNotSet(t *testing.T) {
	svc := NewService(&fakeLedger{}, registry.NewMemoryStore(), "0xpkg", testLogger())
	if _, err := svc.BuildMutation(context.Background(), "0xabc", "movie-1", "text"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}
