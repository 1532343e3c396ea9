package core

import (
	"context"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/jabolina/go-pvsync/pkg/pvsync/types"
)

func TestTransportQueue_ScalarRoundTrip(t *testing.T) {
	inv := NewInvoker()
	defer inv.Stop()
	q := NewTransportQueue[int32](2, 1, inv)

	for _, v := range []int32{42, 43, 44} {
		in := types.NewBuffer[int32](1)
		in.Payload[0] = v
		if lost := q.PushOverwrite(in); lost {
			t.Fatalf("did not expect data loss pushing %d", v)
		}
	}

	var out types.Buffer[int32]
	for _, want := range []int32{42, 43, 44} {
		if !q.Pop(&out) {
			t.Fatalf("expected a value, queue reported empty")
		}
		if out.Payload[0] != want {
			t.Errorf("got %d, want %d", out.Payload[0], want)
		}
	}
	if q.Pop(&out) {
		t.Errorf("expected queue to be empty after draining all writes")
	}
}

func TestTransportQueue_Overflow(t *testing.T) {
	inv := NewInvoker()
	defer inv.Stop()
	q := NewTransportQueue[int32](2, 1, inv)

	var lastLost bool
	for v := int32(1); v <= 10; v++ {
		in := types.NewBuffer[int32](1)
		in.Payload[0] = v
		lastLost = q.PushOverwrite(in)
	}
	if !lastLost {
		t.Errorf("expected the 10th write to report data loss (every write from the K+2nd on is lossy)")
	}

	var out types.Buffer[int32]
	for _, want := range []int32{1, 2, 10} {
		if !q.Pop(&out) {
			t.Fatalf("expected a value, queue reported empty")
		}
		if out.Payload[0] != want {
			t.Errorf("got %d, want %d", out.Payload[0], want)
		}
	}
	if q.Pop(&out) {
		t.Errorf("expected queue to be empty after draining 1, 2, 10")
	}
}

func TestTransportQueue_KPlus1WritesAreLossless(t *testing.T) {
	inv := NewInvoker()
	defer inv.Stop()
	const k = 3
	q := NewTransportQueue[int32](k, 1, inv)

	for v := int32(1); v <= k+1; v++ {
		in := types.NewBuffer[int32](1)
		in.Payload[0] = v
		if lost := q.PushOverwrite(in); lost {
			t.Fatalf("write %d should not have been lossy", v)
		}
	}

	in := types.NewBuffer[int32](1)
	in.Payload[0] = k + 2
	if lost := q.PushOverwrite(in); !lost {
		t.Errorf("write %d (the K+2nd) should have reported data loss", k+2)
	}
}

func TestTransportQueue_PopOnEmptyReturnsFalse(t *testing.T) {
	inv := NewInvoker()
	defer inv.Stop()
	q := NewTransportQueue[int32](2, 1, inv)

	var out types.Buffer[int32]
	if q.Pop(&out) {
		t.Errorf("expected Pop on empty queue to return false")
	}
}

func TestTransportQueue_PopWaitUnblocksOnPush(t *testing.T) {
	defer goleak.VerifyNone(t)

	inv := NewInvoker()
	defer inv.Stop()
	q := NewTransportQueue[int32](2, 1, inv)

	done := make(chan error, 1)
	var out types.Buffer[int32]
	go func() {
		done <- q.PopWait(context.Background(), &out)
	}()

	time.Sleep(10 * time.Millisecond)
	in := types.NewBuffer[int32](1)
	in.Payload[0] = 7
	q.PushOverwrite(in)

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out.Payload[0] != 7 {
			t.Errorf("got %d, want 7", out.Payload[0])
		}
	case <-time.After(time.Second):
		t.Fatal("PopWait did not unblock after push")
	}
}

func TestTransportQueue_PopWaitRespectsCancellation(t *testing.T) {
	defer goleak.VerifyNone(t)

	inv := NewInvoker()
	defer inv.Stop()
	q := NewTransportQueue[int32](2, 1, inv)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	var out types.Buffer[int32]
	if err := q.PopWait(ctx, &out); err != context.DeadlineExceeded {
		t.Errorf("got %v, want context.DeadlineExceeded", err)
	}
}

func TestTransportQueue_ThenFiresContinuationOnNextPush(t *testing.T) {
	defer goleak.VerifyNone(t)

	inv := NewInvoker()
	defer inv.Stop()
	q := NewTransportQueue[int32](2, 1, inv)

	fired := make(chan struct{})
	q.Then(func() { close(fired) })

	in := types.NewBuffer[int32](1)
	in.Payload[0] = 1
	q.PushOverwrite(in)

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("continuation did not fire")
	}
}
