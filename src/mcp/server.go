// Package mcp exposes the ingestion gateway as MCP tools over stdio.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"kafka-relay/src/gateway"
	"kafka-relay/src/store"
)

// Server is the MCP server for the relay.
type Server struct {
	mcpServer *server.MCPServer
	gateway   *gateway.Service
	outcomes  store.Store
}

// NewServer creates a new MCP server. get_outcomes is only registered when
// outcomes is non-nil.
func NewServer(svc *gateway.Service, outcomes store.Store) *Server {
	s := server.NewMCPServer(
		"kafka-relay",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	srv := &Server{
		mcpServer: s,
		gateway:   svc,
		outcomes:  outcomes,
	}
	srv.registerTools()

	return srv
}

func (s *Server) registerTools() {
	putTool := mcp.NewTool("put_data",
		mcp.WithDescription("Publish a JSON object to every delivery topic. The object is stamped with a fresh api_tran_id, which is returned."),
		mcp.WithString("payload",
			mcp.Required(),
			mcp.Description("JSON object to publish, as text"),
		),
	)

	putKeyedTool := mcp.NewTool("put_data_with_key",
		mcp.WithDescription("Publish a JSON object keyed by its 'key' field, so objects with the same key keep their order on one partition."),
		mcp.WithString("payload",
			mcp.Required(),
			mcp.Description("JSON object with a non-null 'key' field, as text"),
		),
	)

	s.mcpServer.AddTool(putTool, s.handlePutData)
	s.mcpServer.AddTool(putKeyedTool, s.handlePutDataWithKey)

	if s.outcomes != nil {
		outcomesTool := mcp.NewTool("get_outcomes",
			mcp.WithDescription("List the processing attempts recorded by the consumers for a transaction id."),
			mcp.WithString("api_tran_id",
				mcp.Required(),
				mcp.Description("Transaction id returned by put_data or put_data_with_key"),
			),
		)
		s.mcpServer.AddTool(outcomesTool, s.handleGetOutcomes)
	}
}

// Run starts the MCP server on stdio.
func (s *Server) Run() error {
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) handlePutData(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	payload, errResult := s.payload(request)
	if errResult != nil {
		return errResult, nil
	}

	receipt, err := s.gateway.Ingest(ctx, payload)
	if err != nil {
		return toolError(err), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Data sent successfully with api_tran_id: %s", receipt.TranID)), nil
}

func (s *Server) handlePutDataWithKey(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	payload, errResult := s.payload(request)
	if errResult != nil {
		return errResult, nil
	}

	receipt, err := s.gateway.IngestWithKey(ctx, payload)
	if err != nil {
		return toolError(err), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Data sent successfully with key: %s and api_tran_id: %s", receipt.Key, receipt.TranID)), nil
}

// outcomeView is the JSON shape returned by get_outcomes.
type outcomeView struct {
	Topic       string `json:"topic"`
	Partition   int32  `json:"partition"`
	Offset      int64  `json:"offset"`
	Outcome     string `json:"outcome"`
	Error       string `json:"error,omitempty"`
	ProcessedAt string `json:"processed_at"`
}

func (s *Server) handleGetOutcomes(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tranID := request.GetString("api_tran_id", "")
	if tranID == "" {
		return mcp.NewToolResultError("api_tran_id parameter is required"), nil
	}

	recs, err := s.outcomes.GetOutcomes(ctx, tranID)
	var notFound store.ErrNotFound
	if errors.As(err, &notFound) {
		return mcp.NewToolResultError(notFound.Error()), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to read outcomes: %v", err)), nil
	}

	views := make([]outcomeView, 0, len(recs))
	for _, rec := range recs {
		views = append(views, outcomeView{
			Topic:       rec.Topic,
			Partition:   rec.Partition,
			Offset:      rec.Offset,
			Outcome:     rec.Outcome,
			Error:       rec.Error,
			ProcessedAt: rec.ProcessedAt.UTC().Format(time.RFC3339Nano),
		})
	}

	jsonBytes, err := json.Marshal(views)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal outcomes: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

// payload decodes the payload argument. A non-nil result is the error to return.
func (s *Server) payload(request mcp.CallToolRequest) (map[string]interface{}, *mcp.CallToolResult) {
	raw := request.GetString("payload", "")
	payload, err := s.gateway.DecodePayload([]byte(raw))
	if err != nil {
		return nil, toolError(err)
	}
	return payload, nil
}

func toolError(err error) *mcp.CallToolResult {
	_, msg := gateway.StatusFor(err)
	return mcp.NewToolResultError(msg)
}
