package httpapi

import (
	"context"
	"testing"
	"time"
)

type ctxKey struct{}

func TestJoinContexts_CancelsWhenEitherDone(t *testing.T) {
	for _, cancelFirst := range []bool{true, false} {
		a, ac := context.WithCancel(context.Background())
		b, bc := context.WithCancel(context.WithValue(context.Background(), ctxKey{}, "v"))
		j, cancelJ := joinContexts(a, b)
		if j.Value(ctxKey{}) != "v" { t.Fatalf("values of b should be visible") }
		if cancelFirst { ac() } else { bc() }
		select {
		case <-j.Done():
		case <-time.After(500 * time.Millisecond):
			t.Fatalf("joined context did not cancel (cancelFirst=%v)", cancelFirst)
		}
		cancelJ()
		ac()
		bc()
	}
}

func TestSetBaseContext_NilResets(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	SetBaseContext(ctx)
	// nolint:staticcheck // SA1012: nil is the documented reset
	SetBaseContext(nil)
	if serverBaseCtx != context.Background() { t.Fatalf("expected Background after reset") }
}
