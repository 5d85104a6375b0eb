package realtime

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/feralops/tnr-backend/internal/platform/logger"
)

func mustTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(log.Sync)
	return log
}

func recvMessage(t *testing.T, ch <-chan SSEMessage, timeout time.Duration) SSEMessage {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(timeout):
		t.Fatalf("timed out waiting for SSE message")
	}
	return SSEMessage{}
}

func TestSSEHubResilienceReconnectAndOrdering(t *testing.T) {
	hub := NewSSEHub(mustTestLogger(t))
	channel := "ingest:" + uuid.New().String()

	clientA := hub.NewSSEClient()
	hub.AddChannel(clientA, channel)

	first := SSEMessage{Channel: channel, Event: SSEEventIngestProgress, Data: map[string]any{"index": 1}}
	second := SSEMessage{Channel: channel, Event: SSEEventIngestProgress, Data: map[string]any{"index": 2}}
	hub.Broadcast(first)
	hub.Broadcast(second)

	gotFirst := recvMessage(t, clientA.Outbound, time.Second)
	gotSecond := recvMessage(t, clientA.Outbound, time.Second)
	firstData, ok := gotFirst.Data.(map[string]any)
	if !ok || firstData["index"] != 1 {
		t.Fatalf("first message out of order: %+v", gotFirst)
	}
	secondData, ok := gotSecond.Data.(map[string]any)
	if !ok || secondData["index"] != 2 {
		t.Fatalf("second message out of order: %+v", gotSecond)
	}

	hub.CloseClient(clientA)
	select {
	case _, ok := <-clientA.Outbound:
		if ok {
			t.Fatalf("clientA outbound should be closed after disconnect")
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("timed out waiting for clientA channel close")
	}

	clientB := hub.NewSSEClient()
	hub.AddChannel(clientB, channel)
	reconnect := SSEMessage{Channel: channel, Event: SSEEventIngestComplete, Data: map[string]any{"index": 3}}
	hub.Broadcast(reconnect)
	gotReconnect := recvMessage(t, clientB.Outbound, time.Second)
	if gotReconnect.Event != SSEEventIngestComplete {
		t.Fatalf("reconnect event: want=%s got=%s", SSEEventIngestComplete, gotReconnect.Event)
	}
}

func TestSSEHubRepeatedProgressIsDelivered(t *testing.T) {
	hub := NewSSEHub(mustTestLogger(t))
	channel := "ingest:" + uuid.New().String()
	client := hub.NewSSEClient()
	hub.AddChannel(client, channel)

	dup := SSEMessage{Channel: channel, Event: SSEEventIngestProgress, Data: map[string]any{"index": 50}}
	hub.Broadcast(dup)
	hub.Broadcast(dup)

	gotOne := recvMessage(t, client.Outbound, time.Second)
	gotTwo := recvMessage(t, client.Outbound, time.Second)
	if gotOne.Event != SSEEventIngestProgress || gotTwo.Event != SSEEventIngestProgress {
		t.Fatalf("expected repeated progress events to be delivered, got=%s and %s", gotOne.Event, gotTwo.Event)
	}
}

func TestSSEHubSlowClientDropsInsteadOfBlocking(t *testing.T) {
	hub := NewSSEHub(mustTestLogger(t))
	channel := "ingest:" + uuid.New().String()
	client := hub.NewSSEClient()
	hub.AddChannel(client, channel)

	// Nobody drains the client. Once its outbound buffer fills, further
	// broadcasts must drop rather than stall the sender.
	capacity := cap(client.Outbound)
	for i := 0; i < capacity+2; i++ {
		hub.Broadcast(SSEMessage{Channel: channel, Event: SSEEventIngestProgress, Data: map[string]any{"index": i}})
	}

	for i := 0; i < capacity; i++ {
		got := recvMessage(t, client.Outbound, time.Second)
		data, ok := got.Data.(map[string]any)
		if !ok || data["index"] != i {
			t.Fatalf("message %d out of order or missing: %+v", i, got)
		}
	}
	select {
	case msg := <-client.Outbound:
		t.Fatalf("overflow message should have been dropped, got %+v", msg)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSSEHubChannelIsolation(t *testing.T) {
	hub := NewSSEHub(mustTestLogger(t))

	runA := "ingest:" + uuid.New().String()
	runB := "ingest:" + uuid.New().String()

	clientA := hub.NewSSEClient()
	hub.AddChannel(clientA, runA)
	clientB := hub.NewSSEClient()
	hub.AddChannel(clientB, runB)

	hub.Broadcast(SSEMessage{Channel: runA, Event: SSEEventIngestProgress})

	got := recvMessage(t, clientA.Outbound, time.Second)
	if got.Channel != runA {
		t.Fatalf("clientA channel: want=%s got=%s", runA, got.Channel)
	}
	select {
	case msg := <-clientB.Outbound:
		t.Fatalf("clientB should not receive runA traffic, got %+v", msg)
	case <-time.After(100 * time.Millisecond):
	}
}
