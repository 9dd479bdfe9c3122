package mcp

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/claude/splitlog/internal/models"
	"github.com/claude/splitlog/internal/workout"
	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
)

// defaultTimeRange returns start/end, defaulting to fallback before now.
func defaultTimeRange(startStr, endStr string, fallback time.Duration) (time.Time, time.Time, error) {
	var start, end time.Time
	var err error

	if endStr != "" {
		end, err = parseFlexTime(endStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	} else {
		end = time.Now()
	}

	if startStr != "" {
		start, err = parseFlexTime(startStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	} else {
		start = end.Add(-fallback)
	}

	return start, end, nil
}

func parseFlexTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err == nil {
		return t, nil
	}
	t, err = time.Parse("2006-01-02", s)
	if err == nil {
		return t, nil
	}
	return time.Time{}, err
}

// --- Tool definitions ---

var toolGetActiveSession = mcp.NewTool("get_active_session",
	mcp.WithDescription("Return the workout currently in progress, including exercises and logged sets. Returns {\"active\": false} when there is none."),
)

var toolStartWorkout = mcp.NewTool("start_workout",
	mcp.WithDescription("Start a workout or resume the one in progress. Exercises come from exercise_ids, else from the split."),
	mcp.WithString("split_id", mcp.Description("Split to seed exercises from")),
	mcp.WithArray("exercise_ids", mcp.Description("Exercise catalog ids in order; duplicates are dropped"), mcp.WithStringItems()),
	mcp.WithString("policy", mcp.Description("What to do if a workout is already active. Defaults to resume_if_active."),
		mcp.Enum(string(workout.ResumeIfActive), string(workout.EndExistingThenStart))),
	mcp.WithString("started_at", mcp.Description("Backdate the start (ISO 8601)")),
)

var toolGetSession = mcp.NewTool("get_session",
	mcp.WithDescription("Return one workout with its exercises and sets."),
	mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id")),
)

var toolAddExercise = mcp.NewTool("add_exercise",
	mcp.WithDescription("Append an exercise to an active workout."),
	mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id")),
	mcp.WithString("exercise_id", mcp.Required(), mcp.Description("Exercise catalog id (e.g. bench-press-barbell)")),
)

var toolRemoveExercise = mcp.NewTool("remove_exercise",
	mcp.WithDescription("Remove an exercise and its sets from an active workout."),
	mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id")),
	mcp.WithString("session_exercise_id", mcp.Required(), mcp.Description("Id of the exercise entry within the session")),
)

var toolLogSet = mcp.NewTool("log_set",
	mcp.WithDescription("Log a set for an exercise of an active workout. Weight accepts decimal commas; unparseable values are stored as 0."),
	mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id")),
	mcp.WithString("session_exercise_id", mcp.Required(), mcp.Description("Id of the exercise entry within the session")),
	mcp.WithString("weight", mcp.Description("Weight as entered, e.g. \"102,5\"")),
	mcp.WithString("unit", mcp.Description("Weight unit. Defaults to kg."), mcp.Enum(string(models.UnitKg), string(models.UnitLb))),
	mcp.WithString("reps", mcp.Description("Repetitions as entered")),
	mcp.WithNumber("rest_sec", mcp.Description("Rest before the set in seconds")),
	mcp.WithBoolean("is_warmup", mcp.Description("Warm-up set")),
	mcp.WithBoolean("is_completed", mcp.Description("Set was performed. Defaults to true.")),
)

var toolUpdateSet = mcp.NewTool("update_set",
	mcp.WithDescription("Change fields of a logged set. Omitted fields are left as they are."),
	mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id")),
	mcp.WithString("set_id", mcp.Required(), mcp.Description("Set id")),
	mcp.WithString("weight", mcp.Description("New weight as entered")),
	mcp.WithString("unit", mcp.Description("Unit of the new weight"), mcp.Enum(string(models.UnitKg), string(models.UnitLb))),
	mcp.WithString("reps", mcp.Description("New repetitions as entered")),
	mcp.WithBoolean("is_warmup", mcp.Description("Warm-up set")),
	mcp.WithBoolean("is_completed", mcp.Description("Set was performed")),
)

var toolDeleteSet = mcp.NewTool("delete_set",
	mcp.WithDescription("Delete a logged set. Deleting a set that is already gone succeeds."),
	mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id")),
	mcp.WithString("set_id", mcp.Required(), mcp.Description("Set id")),
)

var toolFinalizeWorkout = mcp.NewTool("finalize_workout",
	mcp.WithDescription("Finish a workout and compute its totals (duration, volume, set count). Calling it again returns the stored result."),
	mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id")),
	mcp.WithString("status", mcp.Description("Final state. Defaults to completed."),
		mcp.Enum(string(models.StateCompleted), string(models.StateCancelled))),
	mcp.WithString("note", mcp.Description("Free-form note")),
	mcp.WithString("session_name", mcp.Description("Display name")),
	mcp.WithNumber("duration_min", mcp.Description("Override the measured duration in minutes")),
	mcp.WithString("started_at", mcp.Description("Override the start time (ISO 8601)")),
	mcp.WithString("finished_at", mcp.Description("Override the finish time (ISO 8601)")),
)

var toolDiscardWorkout = mcp.NewTool("discard_workout",
	mcp.WithDescription("Delete a workout in progress and everything logged in it."),
	mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id")),
)

var toolListWorkouts = mcp.NewTool("list_workouts",
	mcp.WithDescription("List workouts started in a time range with their totals."),
	mcp.WithString("start", mcp.Description("Start date (ISO 8601 or YYYY-MM-DD). Defaults to 30 days ago.")),
	mcp.WithString("end", mcp.Description("End date (ISO 8601 or YYYY-MM-DD). Defaults to now.")),
)

var toolListSplits = mcp.NewTool("list_splits",
	mcp.WithDescription("List workout splits with their weekday schedule."),
)

var toolGetTrainingSummary = mcp.NewTool("get_training_summary",
	mcp.WithDescription("Weekly or monthly totals of completed workouts: session count, sets, volume in kg and minutes."),
	mcp.WithString("start", mcp.Description("Start date. Defaults to 6 months ago.")),
	mcp.WithString("end", mcp.Description("End date. Defaults to now.")),
	mcp.WithString("bucket", mcp.Description("Aggregation period. Defaults to month."), mcp.Enum("week", "month")),
)

// --- Helpers ---

func jsonResult(v any) (*mcp.CallToolResult, error) {
	result, err := mcp.NewToolResultJSON(v)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

// failure turns a controller error into a tool error. Errors the caller can
// act on are passed through; anything else is logged.
func (h *handlers) failure(tool string, err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, workout.ErrSessionNotFound),
		errors.Is(err, workout.ErrSessionNotActive),
		errors.Is(err, workout.ErrExerciseNotFound),
		errors.Is(err, workout.ErrExerciseRequired),
		errors.Is(err, workout.ErrInvalidPolicy),
		errors.Is(err, workout.ErrInvalidStatus),
		errors.Is(err, workout.ErrInvalidUnit),
		errors.Is(err, workout.ErrInvalidOverride):
	default:
		h.log.Error("mcp "+tool, "error", err)
	}
	return mcp.NewToolResultError(err.Error())
}

func uuidArg(req mcp.CallToolRequest, name string) (uuid.UUID, error) {
	raw, err := req.RequireString(name)
	if err != nil {
		return uuid.Nil, err
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, errors.New(name + " is not a valid id")
	}
	return id, nil
}

func timeArg(req mcp.CallToolRequest, name string) (*time.Time, error) {
	raw := req.GetString(name, "")
	if raw == "" {
		return nil, nil
	}
	t, err := parseFlexTime(raw)
	if err != nil {
		return nil, errors.New(name + ": invalid date format")
	}
	return &t, nil
}

// textArg reads a numeric form field that may arrive as a string or a number.
func textArg(args map[string]any, name string) (string, bool) {
	switch v := args[name].(type) {
	case string:
		return v, true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case int:
		return strconv.Itoa(v), true
	default:
		return "", false
	}
}

// openOwned loads the session named by session_id if it belongs to the caller.
func (h *handlers) openOwned(ctx context.Context, req mcp.CallToolRequest) (workout.Snapshot, *mcp.CallToolResult) {
	id, err := uuidArg(req, "session_id")
	if err != nil {
		return workout.Snapshot{}, mcp.NewToolResultError(err.Error())
	}
	snap, err := h.ctl.Open(ctx, id)
	if err != nil {
		return workout.Snapshot{}, h.failure("open", err)
	}
	if snap.Session().UserID != UserIDFromContext(ctx) {
		return workout.Snapshot{}, mcp.NewToolResultError(workout.ErrSessionNotFound.Error())
	}
	return snap, nil
}

// --- Tool handlers ---

func (h *handlers) getActiveSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, ok, err := h.ctl.ActiveSessionID(ctx, UserIDFromContext(ctx))
	if err != nil {
		return h.failure("get_active_session", err), nil
	}
	if !ok {
		return jsonResult(map[string]bool{"active": false})
	}
	snap, err := h.ctl.Open(ctx, id)
	if err != nil {
		return h.failure("get_active_session", err), nil
	}
	return jsonResult(map[string]any{"active": true, "session": snap})
}

func (h *handlers) startWorkout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var splitID *uuid.UUID
	if raw := req.GetString("split_id", ""); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return mcp.NewToolResultError("split_id is not a valid id"), nil
		}
		splitID = &id
	}
	startedAt, err := timeArg(req, "started_at")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	res, err := h.ctl.Start(ctx, UserIDFromContext(ctx), splitID, workout.StartOptions{
		Policy:            workout.StartPolicy(req.GetString("policy", "")),
		FromExerciseIDs:   req.GetStringSlice("exercise_ids", nil),
		StartedAtOverride: startedAt,
	})
	if err != nil {
		return h.failure("start_workout", err), nil
	}
	return jsonResult(res)
}

func (h *handlers) getSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	snap, fail := h.openOwned(ctx, req)
	if fail != nil {
		return fail, nil
	}
	return jsonResult(snap)
}

func (h *handlers) addExercise(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	snap, fail := h.openOwned(ctx, req)
	if fail != nil {
		return fail, nil
	}
	exerciseID, err := req.RequireString("exercise_id")
	if err != nil {
		return mcp.NewToolResultError("exercise_id parameter is required"), nil
	}
	_, se, err := h.ctl.AddExercise(ctx, snap, exerciseID)
	if err != nil {
		return h.failure("add_exercise", err), nil
	}
	return jsonResult(se)
}

func (h *handlers) removeExercise(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	snap, fail := h.openOwned(ctx, req)
	if fail != nil {
		return fail, nil
	}
	seID, err := uuidArg(req, "session_exercise_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	_, removed, err := h.ctl.RemoveExercise(ctx, snap, seID)
	if err != nil {
		return h.failure("remove_exercise", err), nil
	}
	return jsonResult(map[string]bool{"removed": removed})
}

func (h *handlers) logSet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	snap, fail := h.openOwned(ctx, req)
	if fail != nil {
		return fail, nil
	}
	seID, err := uuidArg(req, "session_exercise_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	args := req.GetArguments()
	weight, _ := textArg(args, "weight")
	reps, _ := textArg(args, "reps")
	fields := models.SetFields{
		Weight:      models.ParseWeight(weight),
		Unit:        models.WeightUnit(req.GetString("unit", "")),
		Reps:        models.ParseReps(reps),
		IsWarmup:    req.GetBool("is_warmup", false),
		IsCompleted: req.GetBool("is_completed", true),
	}
	if _, ok := args["rest_sec"]; ok {
		rest := req.GetInt("rest_sec", 0)
		fields.RestSec = &rest
	}

	_, set, err := h.ctl.AddSet(ctx, snap, seID, fields)
	if err != nil {
		return h.failure("log_set", err), nil
	}
	return jsonResult(set)
}

func (h *handlers) updateSet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	snap, fail := h.openOwned(ctx, req)
	if fail != nil {
		return fail, nil
	}
	setID, err := uuidArg(req, "set_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	args := req.GetArguments()
	patch := models.SetPatch{Unit: models.WeightUnit(req.GetString("unit", ""))}
	if v, ok := textArg(args, "weight"); ok {
		w := models.ParseWeight(v)
		patch.Weight = &w
	}
	if v, ok := textArg(args, "reps"); ok {
		n := models.ParseReps(v)
		patch.Reps = &n
	}
	if _, ok := args["is_warmup"]; ok {
		b := req.GetBool("is_warmup", false)
		patch.IsWarmup = &b
	}
	if _, ok := args["is_completed"]; ok {
		b := req.GetBool("is_completed", false)
		patch.IsCompleted = &b
	}

	next, found, err := h.ctl.UpdateSet(ctx, snap, setID, patch)
	if err != nil {
		return h.failure("update_set", err), nil
	}
	if !found {
		return mcp.NewToolResultError("set not found"), nil
	}
	set, _ := next.Set(setID)
	return jsonResult(set)
}

func (h *handlers) deleteSet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	snap, fail := h.openOwned(ctx, req)
	if fail != nil {
		return fail, nil
	}
	setID, err := uuidArg(req, "set_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if _, err := h.ctl.DeleteSet(ctx, snap, setID); err != nil {
		return h.failure("delete_set", err), nil
	}
	return jsonResult(map[string]bool{"deleted": true})
}

func (h *handlers) finalizeWorkout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	snap, fail := h.openOwned(ctx, req)
	if fail != nil {
		return fail, nil
	}

	opts := workout.FinalizeOptions{Status: models.SessionState(req.GetString("status", ""))}
	var err error
	if opts.StartedAtOverride, err = timeArg(req, "started_at"); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if opts.FinishedAtOverride, err = timeArg(req, "finished_at"); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	args := req.GetArguments()
	if _, ok := args["duration_min"]; ok {
		d := req.GetInt("duration_min", 0)
		opts.DurationMinOverride = &d
	}
	if note := req.GetString("note", ""); note != "" {
		opts.Note = &note
	}
	if name := req.GetString("session_name", ""); name != "" {
		opts.SessionName = &name
	}

	res, err := h.ctl.Finalize(ctx, snap.ID(), opts)
	if err != nil {
		return h.failure("finalize_workout", err), nil
	}
	return jsonResult(res)
}

func (h *handlers) discardWorkout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	snap, fail := h.openOwned(ctx, req)
	if fail != nil {
		return fail, nil
	}
	deleted, err := h.ctl.Discard(ctx, snap.ID())
	if err != nil {
		return h.failure("discard_workout", err), nil
	}
	return jsonResult(map[string]bool{"deleted": deleted})
}

func (h *handlers) listWorkouts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start, end, err := defaultTimeRange(req.GetString("start", ""), req.GetString("end", ""), 30*24*time.Hour)
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}
	sessions, err := h.store.ListSessions(ctx, UserIDFromContext(ctx), start, end)
	if err != nil {
		h.log.Error("mcp list_workouts", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	if sessions == nil {
		sessions = []models.WorkoutSession{}
	}
	return jsonResult(sessions)
}

func (h *handlers) listSplits(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	splits, err := h.store.ListSplits(ctx, UserIDFromContext(ctx))
	if err != nil {
		h.log.Error("mcp list_splits", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	if splits == nil {
		splits = []models.Split{}
	}
	return jsonResult(splits)
}

func (h *handlers) getTrainingSummary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start, end, err := defaultTimeRange(req.GetString("start", ""), req.GetString("end", ""), 183*24*time.Hour)
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}
	bucket := req.GetString("bucket", "month")
	if !workout.ValidBucket(bucket) {
		return mcp.NewToolResultError("bucket must be week or month"), nil
	}

	sessions, err := h.store.ListSessions(ctx, UserIDFromContext(ctx), start, end)
	if err != nil {
		h.log.Error("mcp get_training_summary", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	periods, err := workout.Summarize(sessions, bucket)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if periods == nil {
		periods = []workout.PeriodSummary{}
	}
	return jsonResult(periods)
}
