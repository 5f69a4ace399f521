package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"kafka-relay/src/broker"
	"kafka-relay/src/contracts"
	"kafka-relay/src/gateway"
	"kafka-relay/src/logger"
	"kafka-relay/src/publish"
	"kafka-relay/src/store"
)

func newTestServer(t *testing.T, outcomes store.Store) (*Server, *broker.InMemoryBroker) {
	t.Helper()
	brk := broker.NewInMemoryBroker(2, 10*time.Millisecond)
	t.Cleanup(func() { brk.Close() })

	pub := publish.NewPublisher(brk, contracts.MirrorTopics(), logger.NewSilentLogger())
	return NewServer(gateway.NewService(pub, logger.NewSilentLogger()), outcomes), brk
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) != 1 {
		t.Fatalf("Expected one content item, got %d", len(res.Content))
	}
	text, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("Expected text content, got %T", res.Content[0])
	}
	return text.Text
}

func TestHandlePutData(t *testing.T) {
	srv, brk := newTestServer(t, nil)

	res, err := srv.handlePutData(context.Background(), callRequest(map[string]any{"payload": `{"name":"a"}`}))
	if err != nil {
		t.Fatalf("handlePutData() error: %v", err)
	}
	if res.IsError {
		t.Fatalf("handlePutData() returned tool error: %s", resultText(t, res))
	}

	text := resultText(t, res)
	if !strings.HasPrefix(text, "Data sent successfully with api_tran_id: ") {
		t.Errorf("Unexpected result: %q", text)
	}

	total := 0
	for p := 0; p < 2; p++ {
		total += len(brk.Records(contracts.TopicRecord, p))
	}
	if total != 1 {
		t.Errorf("Expected 1 record on %s, got %d", contracts.TopicRecord, total)
	}
}

func TestHandlePutDataWithKey(t *testing.T) {
	srv, brk := newTestServer(t, nil)

	res, err := srv.handlePutDataWithKey(context.Background(), callRequest(map[string]any{"payload": `{"key":"u1"}`}))
	if err != nil {
		t.Fatalf("handlePutDataWithKey() error: %v", err)
	}
	if !strings.HasPrefix(resultText(t, res), "Data sent successfully with key: u1 and api_tran_id: ") {
		t.Errorf("Unexpected result: %q", resultText(t, res))
	}

	partition := broker.HashPartition([]byte("u1"), 2)
	if got := len(brk.Records(contracts.TopicBatch, partition)); got != 1 {
		t.Errorf("Expected the keyed record on partition %d, found %d", partition, got)
	}
}

func TestHandlePutData_Errors(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	tests := []struct {
		name    string
		keyed   bool
		payload any
		want    string
	}{
		{"missing payload", false, nil, "JSON data is required"},
		{"empty object", false, `{}`, "JSON data is required"},
		{"malformed", false, `{"a":`, "Invalid JSON format: "},
		{"missing key", true, `{"a":1}`, "Missing required 'key' field in JSON data"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := map[string]any{}
			if tt.payload != nil {
				args["payload"] = tt.payload
			}

			handler := srv.handlePutData
			if tt.keyed {
				handler = srv.handlePutDataWithKey
			}

			res, err := handler(context.Background(), callRequest(args))
			if err != nil {
				t.Fatalf("handler error: %v", err)
			}
			if !res.IsError {
				t.Fatal("Expected a tool error")
			}
			if text := resultText(t, res); !strings.HasPrefix(text, tt.want) {
				t.Errorf("Expected %q, got %q", tt.want, text)
			}
		})
	}
}

func TestHandleGetOutcomes(t *testing.T) {
	outcomes := store.NewMemoryStore()
	srv, _ := newTestServer(t, outcomes)

	ctx := context.Background()
	_ = outcomes.SaveOutcome(ctx, store.OutcomeRecord{
		TranID:      "tran-1",
		Topic:       contracts.TopicBatch,
		Offset:      7,
		Outcome:     "logged",
		ProcessedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	})

	res, err := srv.handleGetOutcomes(ctx, callRequest(map[string]any{"api_tran_id": "tran-1"}))
	if err != nil {
		t.Fatalf("handleGetOutcomes() error: %v", err)
	}
	if res.IsError {
		t.Fatalf("Unexpected tool error: %s", resultText(t, res))
	}

	var views []outcomeView
	if err := json.Unmarshal([]byte(resultText(t, res)), &views); err != nil {
		t.Fatalf("Result is not JSON: %v", err)
	}
	if len(views) != 1 || views[0].Offset != 7 || views[0].Outcome != "logged" {
		t.Errorf("Unexpected outcomes: %+v", views)
	}

	res, _ = srv.handleGetOutcomes(ctx, callRequest(map[string]any{"api_tran_id": "unknown"}))
	if !res.IsError {
		t.Error("Expected a tool error for an unknown api_tran_id")
	}
}
