package ffi

import (
	"context"
	"testing"
	"time"
)

func TestBatchEnqueueAndStatus(t *testing.T) {
	ch, rc := ClientNew(ClientConfig{ServerAddr: "127.0.0.1:19002"})
	if rc != ResultOK {
		t.Fatalf("ClientNew: %v", rc)
	}
	defer ClientFree(ch)

	bh, rc := BatchNew(t.TempDir(), ch)
	if rc != ResultOK {
		t.Fatalf("BatchNew: %v", rc)
	}
	defer BatchFree(bh)

	id, rc := BatchEnqueue(bh, "MYLISTADD", map[string]string{"size": "123"})
	if rc != ResultOK {
		t.Fatalf("BatchEnqueue: %v", rc)
	}
	if id == "" {
		t.Fatalf("expected non-empty job id")
	}

	status, rc := BatchJobStatus(bh, id)
	if rc != ResultOK {
		t.Fatalf("BatchJobStatus: %v", rc)
	}
	if status.State != "pending" {
		t.Fatalf("State = %q, want pending", status.State)
	}
}

func TestBatchJobStatusUnknownID(t *testing.T) {
	ch, rc := ClientNew(ClientConfig{ServerAddr: "127.0.0.1:19003"})
	if rc != ResultOK {
		t.Fatalf("ClientNew: %v", rc)
	}
	defer ClientFree(ch)

	bh, rc := BatchNew(t.TempDir(), ch)
	if rc != ResultOK {
		t.Fatalf("BatchNew: %v", rc)
	}
	defer BatchFree(bh)

	if _, rc := BatchJobStatus(bh, "does-not-exist"); rc != ResultNotFound {
		t.Fatalf("BatchJobStatus(unknown id) = %v, want ResultNotFound", rc)
	}
}

func TestBatchNewUnknownClientHandle(t *testing.T) {
	if _, rc := BatchNew(t.TempDir(), Handle(987654)); rc != ResultInvalidHandle {
		t.Fatalf("BatchNew(unknown client) = %v, want ResultInvalidHandle", rc)
	}
}

func TestBatchDrainRespectsCancellation(t *testing.T) {
	ch, rc := ClientNew(ClientConfig{ServerAddr: "127.0.0.1:19004"})
	if rc != ResultOK {
		t.Fatalf("ClientNew: %v", rc)
	}
	defer ClientFree(ch)

	bh, rc := BatchNew(t.TempDir(), ch)
	if rc != ResultOK {
		t.Fatalf("BatchNew: %v", rc)
	}
	defer BatchFree(bh)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	rc = BatchDrain(ctx, bh)
	if rc != ResultTimeout {
		t.Fatalf("BatchDrain(empty queue, timeout) = %v, want ResultTimeout", rc)
	}
}
