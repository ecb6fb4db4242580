package mcp

import (
	"context"
	"encoding/json"
	"errors"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// ToolDefinition describes a callable tool.
type ToolDefinition struct {
	Name        string
	Description string
	InputSchema map[string]any
}

func integerProp(description string) map[string]any {
	return map[string]any{"type": "integer", "description": description}
}

// buildToolCatalog returns all available MCP tools
func buildToolCatalog() []ToolDefinition {
	return []ToolDefinition{
		{
			Name:        "register_daily",
			Description: "Register the latest closed daily of a group: create the tracking record and log time for each participant",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"group_id":     integerProp("Chat group id"),
					"requester_id": integerProp("Chat id of the user whose API key creates the record"),
					"handles": map[string]any{
						"type":        "array",
						"description": "Participant chat handles, with or without a leading @",
						"items":       map[string]any{"type": "string"},
					},
				},
				"required": []string{"group_id", "requester_id", "handles"},
			},
		},
		{
			Name:        "start_daily",
			Description: "Open a daily for a group now",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"group_id": integerProp("Chat group id"),
				},
				"required": []string{"group_id"},
			},
		},
		{
			Name:        "end_daily",
			Description: "Close the open daily of a group now",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"group_id": integerProp("Chat group id"),
				},
				"required": []string{"group_id"},
			},
		},
		{
			Name:        "bind_team",
			Description: "Bind a group to a Redmine project, replacing any existing binding",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"group_id":     integerProp("Chat group id"),
					"requester_id": integerProp("Chat id of the user creating the binding"),
					"project_id":   integerProp("Redmine project id"),
					"name": map[string]any{
						"type":        "string",
						"description": "Team display name",
					},
				},
				"required": []string{"group_id", "requester_id", "project_id", "name"},
			},
		},
		{
			Name:        "list_dailies",
			Description: "List the most recent dailies of a group, newest first",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"group_id": integerProp("Chat group id"),
					"limit":    integerProp("Maximum number of dailies (default 20)"),
				},
				"required": []string{"group_id"},
			},
		},
		{
			Name:        "recent_activity",
			Description: "Get recent lifecycle activity, optionally filtered by group, daily or type",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"group_id": integerProp("Chat group id"),
					"daily_id": map[string]any{
						"type":        "string",
						"description": "Daily id",
					},
					"type": map[string]any{
						"type":        "string",
						"description": "Activity type",
						"enum": []string{
							"daily_started", "daily_closed", "daily_registered",
							"team_bound", "team_unbound", "credential_saved",
						},
					},
					"limit":  integerProp("Maximum number of entries (default 50)"),
					"offset": integerProp("Offset for pagination"),
				},
			},
		},
	}
}

func registerTools(server *sdkmcp.Server, h *Handler) {
	for _, def := range buildToolCatalog() {
		server.AddTool(&sdkmcp.Tool{
			Name:        def.Name,
			Description: def.Description,
			InputSchema: def.InputSchema,
		}, toolHandler(h, def.Name))
	}
}

func toolHandler(h *Handler, name string) sdkmcp.ToolHandler {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest) (*sdkmcp.CallToolResult, error) {
		var args json.RawMessage
		if req.Params != nil {
			args = req.Params.Arguments
		}

		out, err := h.Handle(ctx, name, args)
		if err != nil {
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				apiErr = MapError(err)
			}
			if apiErr == nil {
				h.logger.Error("tool failed", "tool", name, "caller", getCaller(ctx), "error", err)
				return nil, err
			}
			return jsonResult(apiErr, true)
		}
		return jsonResult(out, false)
	}
}

func jsonResult(v any, isError bool) (*sdkmcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return &sdkmcp.CallToolResult{
		Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: string(data)}},
		IsError: isError,
	}, nil
}
