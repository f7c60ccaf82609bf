package middleware

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/felixgeelhaar/mcp-docs/protocol"
)

func waitForCancel(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(time.Second):
		return okHandler(ctx, req)
	}
}

func TestTimeout(t *testing.T) {
	_, err := Timeout(10*time.Millisecond)(waitForCancel)(context.Background(), toolCall(1, "x"))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want context.DeadlineExceeded", err)
	}
}

func TestTimeout_Disabled(t *testing.T) {
	var hasDeadline bool
	h := func(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
		_, hasDeadline = ctx.Deadline()
		return okHandler(ctx, req)
	}

	if _, err := Timeout(0)(h)(context.Background(), toolCall(1, "x")); err != nil {
		t.Fatal(err)
	}
	if hasDeadline {
		t.Error("zero timeout should not set a deadline")
	}

	if _, err := Timeout(time.Millisecond)(h)(context.Background(), &protocol.Request{Method: protocol.MethodCancelled}); err != nil {
		t.Fatal(err)
	}
	if hasDeadline {
		t.Error("notifications should not be bounded")
	}
}
