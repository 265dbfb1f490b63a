package api

import (
	"context"
	"errors"
	"testing"
)

func TestStreamRegistry(t *testing.T) {
	reg := newStreamRegistry()

	ctxA, cancelA := context.WithCancelCause(context.Background())
	ctxB, cancelB := context.WithCancelCause(context.Background())
	ctxC, cancelC := context.WithCancelCause(context.Background())
	defer cancelA(nil)
	defer cancelB(nil)
	defer cancelC(nil)

	reg.track("jti-a", "alice", cancelA)
	reg.track("jti-b", "alice", cancelB)
	release := reg.track("jti-c", "bob", cancelC)

	if n := reg.revokeToken("jti-a"); n != 1 {
		t.Errorf("expected one stream ended, got %d", n)
	}
	if !errors.Is(context.Cause(ctxA), errSessionEnded) {
		t.Errorf("expected session ended cause, got %v", context.Cause(ctxA))
	}
	if ctxB.Err() != nil || ctxC.Err() != nil {
		t.Error("revoking one token ended other streams")
	}

	if n := reg.revokeOwner("alice"); n != 1 || ctxB.Err() == nil {
		t.Errorf("expected alice's remaining stream ended, got %d", n)
	}

	release()
	if n := reg.revokeOwner("bob"); n != 0 || ctxC.Err() != nil {
		t.Error("released stream should not be ended")
	}

	var nilReg *streamRegistry
	if n := nilReg.revokeToken("x"); n != 0 {
		t.Errorf("expected nil registry to end nothing, got %d", n)
	}
}
