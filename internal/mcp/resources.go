package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
)

var resActiveSession = mcp.NewResource(
	"splitlog://active_session",
	"Active Session",
	mcp.WithResourceDescription("The workout currently in progress with its exercises and sets, or null"),
	mcp.WithMIMEType("application/json"),
)

var resSplits = mcp.NewResource(
	"splitlog://splits",
	"Splits",
	mcp.WithResourceDescription("Workout templates with their weekday schedule and exercise order"),
	mcp.WithMIMEType("application/json"),
)

func (h *handlers) activeSessionResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uid := UserIDFromContext(ctx)

	var payload any
	id, ok, err := h.ctl.ActiveSessionID(ctx, uid)
	if err != nil {
		return nil, err
	}
	if ok {
		snap, err := h.ctl.Open(ctx, id)
		if err != nil {
			return nil, err
		}
		payload = snap
	}
	return jsonContents(req.Params.URI, payload)
}

func (h *handlers) splitsResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	splits, err := h.store.ListSplits(ctx, UserIDFromContext(ctx))
	if err != nil {
		return nil, err
	}
	return jsonContents(req.Params.URI, splits)
}

func jsonContents(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
