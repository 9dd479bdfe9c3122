// Package mcp exposes the workout controller as MCP tools so an assistant can
// run a live session or read history on the user's behalf.
package mcp

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/claude/splitlog/internal/storage"
	"github.com/claude/splitlog/internal/workout"
	"github.com/mark3labs/mcp-go/server"
)

type contextKey int

const userIDKey contextKey = iota

// UserIDFromContext extracts the user ID injected by the transport layer.
func UserIDFromContext(ctx context.Context) int {
	if id, ok := ctx.Value(userIDKey).(int); ok {
		return id
	}
	return 1
}

// WithUserID returns a context with the given user ID.
func WithUserID(ctx context.Context, userID int) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// New creates an MCP server with all tools and resources registered.
func New(ctl *workout.Controller, store storage.Store, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("splitlog", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("splitlog workout logger. Start or resume a session, add exercises, log sets, then finalize or discard it. "+
			"Only one session per user can be active. History and summaries cover finalized sessions. All data is scoped to the calling user."),
	)

	h := &handlers{ctl: ctl, store: store, log: log}

	s.AddTools(
		server.ServerTool{Tool: toolGetActiveSession, Handler: h.getActiveSession},
		server.ServerTool{Tool: toolStartWorkout, Handler: h.startWorkout},
		server.ServerTool{Tool: toolGetSession, Handler: h.getSession},
		server.ServerTool{Tool: toolAddExercise, Handler: h.addExercise},
		server.ServerTool{Tool: toolRemoveExercise, Handler: h.removeExercise},
		server.ServerTool{Tool: toolLogSet, Handler: h.logSet},
		server.ServerTool{Tool: toolUpdateSet, Handler: h.updateSet},
		server.ServerTool{Tool: toolDeleteSet, Handler: h.deleteSet},
		server.ServerTool{Tool: toolFinalizeWorkout, Handler: h.finalizeWorkout},
		server.ServerTool{Tool: toolDiscardWorkout, Handler: h.discardWorkout},
		server.ServerTool{Tool: toolListWorkouts, Handler: h.listWorkouts},
		server.ServerTool{Tool: toolListSplits, Handler: h.listSplits},
		server.ServerTool{Tool: toolGetTrainingSummary, Handler: h.getTrainingSummary},
	)

	s.AddResources(
		server.ServerResource{Resource: resActiveSession, Handler: h.activeSessionResource},
		server.ServerResource{Resource: resSplits, Handler: h.splitsResource},
	)

	return s
}

// Handler serves s over streamable HTTP. The X-User-ID header selects the
// user the same way it does for the REST API.
func Handler(s *server.MCPServer) http.Handler {
	return server.NewStreamableHTTPServer(s,
		server.WithHTTPContextFunc(func(ctx context.Context, r *http.Request) context.Context {
			if uid, err := strconv.Atoi(r.Header.Get("X-User-ID")); err == nil && uid > 0 {
				return WithUserID(ctx, uid)
			}
			return ctx
		}),
	)
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	ctl   *workout.Controller
	store storage.Store
	log   *slog.Logger
}
