package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/ganot/dailylog/internal/domain/activity"
	"github.com/ganot/dailylog/internal/domain/daily"
	"github.com/ganot/dailylog/internal/domain/registration"
	"github.com/ganot/dailylog/internal/domain/team"
)

// Handler dispatches MCP tool calls to domain services.
type Handler struct {
	services Services
	logger   *slog.Logger
}

// NewHandler creates a new MCP handler.
func NewHandler(services Services, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Handler{services: services, logger: logger}
}

// Handle runs one tool.
func (h *Handler) Handle(ctx context.Context, method string, params json.RawMessage) (any, error) {
	switch method {
	case "register_daily":
		var req RegisterDailyParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		if req.GroupID == 0 || req.RequesterID == 0 {
			return nil, invalidParams("group_id and requester_id are required")
		}
		handles := registration.NormalizeHandles(req.Handles)
		if len(handles) == 0 {
			return nil, invalidParams("at least one handle is required")
		}
		report, err := h.services.Registrar.Register(ctx, registration.Request{
			RequesterID: req.RequesterID,
			GroupID:     req.GroupID,
			Handles:     handles,
		})
		if err != nil {
			return nil, err
		}
		h.services.Metrics.ObserveReport(report)
		h.logger.Info("daily registration requested", "caller", getCaller(ctx), "group_id", req.GroupID, "outcome", report.Outcome)
		return registerResponse(report), nil

	case "start_daily", "end_daily":
		var req GroupParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		if req.GroupID == 0 {
			return nil, invalidParams("group_id is required")
		}
		run, kind := h.services.Lifecycle.Open, "start"
		if method == "end_daily" {
			run, kind = h.services.Lifecycle.Close, "end"
		}
		notice, err := run(ctx, req.GroupID)
		if err != nil {
			return nil, err
		}
		h.services.Metrics.ObserveNotice(kind, notice)
		return noticeResponse(notice), nil

	case "bind_team":
		var req BindTeamParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		if req.GroupID == 0 || req.RequesterID == 0 || req.ProjectID <= 0 {
			return nil, invalidParams("group_id, requester_id and a positive project_id are required")
		}
		res, err := h.services.Teams.Bind(ctx, team.BindRequest{
			GroupID:     req.GroupID,
			RequesterID: req.RequesterID,
			ProjectID:   req.ProjectID,
			Name:        strings.TrimSpace(req.Name),
		})
		if err != nil {
			return nil, mapError(err)
		}
		return BindTeamResponse{Team: *toTeamResponse(res.Team), Replaced: toTeamResponse(res.Previous)}, nil

	case "list_dailies":
		var req ListDailiesParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		if req.GroupID == 0 {
			return nil, invalidParams("group_id is required")
		}
		dailies, err := h.services.Lifecycle.History(ctx, req.GroupID, req.Limit)
		if err != nil {
			return nil, mapError(err)
		}
		resp := ListDailiesResponse{Dailies: make([]DailyResponse, 0, len(dailies))}
		for i := range dailies {
			resp.Dailies = append(resp.Dailies, *toDailyResponse(&dailies[i]))
		}
		return resp, nil

	case "recent_activity":
		var req RecentActivityParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		opts := activity.ListActivityOptions{
			GroupID: req.GroupID,
			Limit:   req.Limit,
			Offset:  req.Offset,
		}
		if req.DailyID != "" {
			opts.DailyID = &req.DailyID
		}
		if req.Type != "" {
			opts.ActivityType = &req.Type
		}
		entries, err := h.services.Activity.GetRecentActivity(ctx, opts)
		if err != nil {
			return nil, err
		}
		if entries == nil {
			entries = []activity.ActivityEntry{}
		}
		return RecentActivityResponse{Entries: entries}, nil

	default:
		return nil, fmt.Errorf("unknown tool: %s", method)
	}
}

func registerResponse(r *registration.Report) RegisterDailyResponse {
	resp := RegisterDailyResponse{
		Outcome:      r.Outcome,
		Team:         toTeamResponse(r.Team),
		DailyID:      r.DailyID,
		RecordID:     r.RecordID,
		RecordURL:    r.RecordURL,
		Hours:        r.Hours,
		NotFound:     nonNil(r.NotFound()),
		NoCredential: nonNil(r.NoCredential()),
		Logged:       nonNil(r.Logged()),
		Failed:       nonNil(r.Failed()),
		Error:        MapError(r.Err()),
	}
	if r.Duration > 0 {
		resp.Duration = daily.FormatDuration(r.Duration)
	}
	return resp
}

func noticeResponse(n *daily.Notice) NoticeResponse {
	resp := NoticeResponse{
		Kind:   n.Kind,
		Reason: n.Reason,
		Team:   toTeamResponse(n.Team),
		Daily:  toDailyResponse(n.Daily),
	}
	if n.Kind == daily.NoticeEnded {
		resp.Duration = daily.FormatDuration(n.Duration)
	}
	return resp
}

func decodeParams(params json.RawMessage, out any) error {
	if len(params) == 0 {
		return nil
	}
	if err := json.Unmarshal(params, out); err != nil {
		return fmt.Errorf("%w: %v", errInvalidParams, err)
	}
	return nil
}

func invalidParams(msg string) error {
	return fmt.Errorf("%w: %s", errInvalidParams, msg)
}
