package workout

import (
	"encoding/json"
	"slices"
	"time"

	"github.com/claude/splitlog/internal/models"
	"github.com/google/uuid"
)

// Snapshot is an immutable view of one session: its row, its ordered
// exercises and the sets of each exercise. Every mutation produces a new
// Snapshot; slices of the previous one are never written to.
type Snapshot struct {
	session   models.WorkoutSession
	exercises []models.SessionExercise
	sets      map[uuid.UUID][]models.Set
}

// NewSnapshot builds a snapshot from rows loaded from the store.
// Sets whose exercise is not listed are dropped.
func NewSnapshot(session models.WorkoutSession, exercises []models.SessionExercise, sets []models.Set) Snapshot {
	snap := Snapshot{
		session:   session,
		exercises: slices.Clone(exercises),
		sets:      make(map[uuid.UUID][]models.Set, len(exercises)),
	}
	slices.SortStableFunc(snap.exercises, func(a, b models.SessionExercise) int { return a.Position - b.Position })
	for _, se := range snap.exercises {
		snap.sets[se.ID] = nil
	}
	for _, s := range sets {
		if _, ok := snap.sets[s.SessionExerciseID]; ok {
			snap.sets[s.SessionExerciseID] = append(snap.sets[s.SessionExerciseID], s)
		}
	}
	for id, list := range snap.sets {
		slices.SortStableFunc(list, func(a, b models.Set) int { return a.Position - b.Position })
		snap.sets[id] = list
	}
	return snap
}

// Session returns the session row.
func (s Snapshot) Session() models.WorkoutSession { return s.session }

// ID returns the session id.
func (s Snapshot) ID() uuid.UUID { return s.session.ID }

// Exercises returns a copy of the ordered exercise list.
func (s Snapshot) Exercises() []models.SessionExercise { return slices.Clone(s.exercises) }

// HasExercise reports whether the session exercise belongs to this session.
func (s Snapshot) HasExercise(sessionExerciseID uuid.UUID) bool {
	_, ok := s.sets[sessionExerciseID]
	return ok
}

// SetsFor returns a copy of the sets of one session exercise.
func (s Snapshot) SetsFor(sessionExerciseID uuid.UUID) []models.Set {
	return slices.Clone(s.sets[sessionExerciseID])
}

// AllSets returns every set in exercise order.
func (s Snapshot) AllSets() []models.Set {
	var all []models.Set
	for _, se := range s.exercises {
		all = append(all, s.sets[se.ID]...)
	}
	return all
}

// Set looks up a set by id.
func (s Snapshot) Set(setID uuid.UUID) (models.Set, bool) {
	seID, idx := s.locateSet(setID)
	if idx < 0 {
		return models.Set{}, false
	}
	return s.sets[seID][idx], true
}

// Elapsed is the display timer value: time since the session started.
// It is derived on every call and never stored.
func (s Snapshot) Elapsed(now time.Time) time.Duration {
	if s.session.FinishedAt != nil {
		now = *s.session.FinishedAt
	}
	if d := now.Sub(s.session.StartedAt); d > 0 {
		return d
	}
	return 0
}

func (s Snapshot) locateSet(setID uuid.UUID) (uuid.UUID, int) {
	for seID, list := range s.sets {
		for i, set := range list {
			if set.ID == setID {
				return seID, i
			}
		}
	}
	return uuid.Nil, -1
}

// cloneSets copies the map only; the per-exercise slices are shared until replaced.
func (s Snapshot) cloneSets() map[uuid.UUID][]models.Set {
	m := make(map[uuid.UUID][]models.Set, len(s.sets))
	for k, v := range s.sets {
		m[k] = v
	}
	return m
}

func (s Snapshot) withSession(session models.WorkoutSession) Snapshot {
	s.session = session
	return s
}

func (s Snapshot) withSet(set models.Set) Snapshot {
	sets := s.cloneSets()
	list := slices.Clone(sets[set.SessionExerciseID])
	sets[set.SessionExerciseID] = append(list, set)
	s.sets = sets
	return s
}

func (s Snapshot) withUpdatedSet(setID uuid.UUID, patch models.SetPatch) Snapshot {
	seID, idx := s.locateSet(setID)
	if idx < 0 {
		return s
	}
	sets := s.cloneSets()
	list := slices.Clone(sets[seID])
	list[idx] = patch.Apply(list[idx])
	sets[seID] = list
	s.sets = sets
	return s
}

func (s Snapshot) withoutSet(setID uuid.UUID) Snapshot {
	seID, idx := s.locateSet(setID)
	if idx < 0 {
		return s
	}
	sets := s.cloneSets()
	sets[seID] = slices.Delete(slices.Clone(sets[seID]), idx, idx+1)
	s.sets = sets
	return s
}

func (s Snapshot) withExercise(se models.SessionExercise) Snapshot {
	s.exercises = append(slices.Clone(s.exercises), se)
	sets := s.cloneSets()
	sets[se.ID] = nil
	s.sets = sets
	return s
}

func (s Snapshot) withoutExercise(sessionExerciseID uuid.UUID) Snapshot {
	s.exercises = slices.DeleteFunc(slices.Clone(s.exercises), func(se models.SessionExercise) bool {
		return se.ID == sessionExerciseID
	})
	sets := s.cloneSets()
	delete(sets, sessionExerciseID)
	s.sets = sets
	return s
}

func (s Snapshot) reordered(ordered []uuid.UUID) Snapshot {
	byID := make(map[uuid.UUID]models.SessionExercise, len(s.exercises))
	for _, se := range s.exercises {
		byID[se.ID] = se
	}
	exercises := make([]models.SessionExercise, 0, len(ordered))
	for i, id := range ordered {
		se := byID[id]
		se.Position = i
		exercises = append(exercises, se)
	}
	s.exercises = exercises
	return s
}

// isPermutation reports whether ordered lists every exercise of the snapshot exactly once.
func (s Snapshot) isPermutation(ordered []uuid.UUID) bool {
	if len(ordered) != len(s.exercises) {
		return false
	}
	seen := make(map[uuid.UUID]bool, len(ordered))
	for _, id := range ordered {
		if seen[id] || !s.HasExercise(id) {
			return false
		}
		seen[id] = true
	}
	return true
}

type exerciseView struct {
	models.SessionExercise
	Sets []models.Set `json:"sets"`
}

// MarshalJSON renders the session with exercises nested in order and their sets inline.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	exercises := make([]exerciseView, 0, len(s.exercises))
	for _, se := range s.exercises {
		sets := s.sets[se.ID]
		if sets == nil {
			sets = []models.Set{}
		}
		exercises = append(exercises, exerciseView{SessionExercise: se, Sets: sets})
	}
	return json.Marshal(struct {
		Session   models.WorkoutSession `json:"session"`
		Exercises []exerciseView        `json:"exercises"`
	}{s.session, exercises})
}
