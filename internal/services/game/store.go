// Package game holds the authoritative in-process state of a local game.
package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/mcoot/dutchscore/internal/dependencies/clock"
	"github.com/mcoot/dutchscore/internal/dependencies/uuid"
	"github.com/mcoot/dutchscore/internal/model"
	"github.com/mcoot/dutchscore/internal/notify"
	"github.com/mcoot/dutchscore/internal/services/integrity"
	"github.com/mcoot/dutchscore/internal/services/scoring"
	"github.com/mcoot/dutchscore/internal/services/stats"
	"github.com/mcoot/dutchscore/internal/services/validation"
)

// Persister is the subset of the persistence adapter the store relies on
type Persister interface {
	Save(ctx context.Context, state model.GameState) bool
	Load(ctx context.Context) *model.GameState
	Clear(ctx context.Context)
}

// Listener is called with a copy of the state after every change
type Listener func(state model.GameState)

// StateUpdate is a partial state; only non-nil fields are applied
type StateUpdate struct {
	Players            []model.Player
	RoundHistory       []model.RoundHistoryEntry
	ScoreLimit         *int
	GameStartTime      *time.Time
	IsGameOver         *bool
	GameID             *model.GameID
	LastIntegrityCheck *time.Time
}

// Store owns the GameState of a local game. All mutations go through it.
type Store struct {
	mu        sync.Mutex
	state     model.GameState
	version   uint64
	listeners map[int]Listener
	nextID    int

	// saveMu orders writes to the persister; savedVersion is the newest
	// snapshot written so far.
	saveMu       sync.Mutex
	savedVersion uint64

	scoring   *scoring.Service
	persister Persister
	notifier  notify.Notifier
	clock     clock.Clock
	uuid      uuid.Generator
	logger    *slog.Logger
}

// NewStore creates a Store holding the initial empty state
func NewStore(
	scoringService *scoring.Service,
	persister Persister,
	notifier notify.Notifier,
	clock clock.Clock,
	uuid uuid.Generator,
	logger *slog.Logger,
) *Store {
	return &Store{
		state:     model.NewGameState(),
		listeners: make(map[int]Listener),
		scoring:   scoringService,
		persister: persister,
		notifier:  notifier,
		clock:     clock,
		uuid:      uuid,
		logger:    logger.With(slog.String("component", "game_store")),
	}
}

// GetState returns a deep copy of the current state
func (s *Store) GetState() model.GameState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// SetState shallow-merges the update into the state and notifies subscribers
func (s *Store) SetState(update StateUpdate) {
	s.mu.Lock()
	if update.Players != nil {
		s.state.Players = model.ClonePlayers(update.Players)
	}
	if update.RoundHistory != nil {
		s.state.RoundHistory = cloneHistory(update.RoundHistory)
	}
	if update.ScoreLimit != nil {
		s.state.ScoreLimit = *update.ScoreLimit
	}
	if update.GameStartTime != nil {
		t := *update.GameStartTime
		s.state.GameStartTime = &t
	}
	if update.IsGameOver != nil {
		s.state.IsGameOver = *update.IsGameOver
	}
	if update.GameID != nil {
		id := *update.GameID
		s.state.GameID = &id
	}
	if update.LastIntegrityCheck != nil {
		t := *update.LastIntegrityCheck
		s.state.LastIntegrityCheck = &t
	}
	snapshot := s.state.Clone()
	s.mu.Unlock()

	s.publish(snapshot)
}

// Subscribe registers a listener and returns a function that removes it
func (s *Store) Subscribe(listener Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.listeners[id] = listener

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.listeners, id)
		})
	}
}

// CreateGame starts a new game with the given player names, replacing any
// game in progress. The current score limit is kept.
func (s *Store) CreateGame(ctx context.Context, names []string) bool {
	cleaned, err := validation.ValidatePlayerNames(names)
	if err != nil {
		return s.fail("create_game", err)
	}
	if len(cleaned) < 2 {
		return s.fail("create_game", model.ErrNotEnoughPlayers)
	}

	now := s.clock.Now()
	gameID := model.GameID(s.uuid.NewString())

	players := make([]model.Player, len(cleaned))
	for i, name := range cleaned {
		color, emoji := model.AvatarFor(i)
		players[i] = model.Player{
			ID:          model.PlayerID(s.uuid.NewString()),
			Name:        name,
			Rounds:      []model.Round{},
			AvatarColor: color,
			Emoji:       emoji,
		}
	}

	s.mu.Lock()
	state := model.NewGameState()
	state.ScoreLimit = s.state.ScoreLimit
	state.Players = stats.Apply(players)
	state.GameID = &gameID
	state.GameStartTime = &now
	state.LastIntegrityCheck = &now
	s.state = state
	snapshot, version := s.snapshotLocked()
	s.mu.Unlock()

	s.logger.Info("game created",
		slog.String("game_id", string(gameID)),
		slog.Int("players", len(players)),
	)

	s.persist(ctx, version, snapshot)
	s.publish(snapshot)
	notify.Success(s.notifier, fmt.Sprintf("Game started with %d players", len(players)))
	return true
}

// AddRound records one round. scores are aligned with the player list and
// dutchPlayerID may be empty. State is unchanged when false is returned.
func (s *Store) AddRound(ctx context.Context, scores []float64, dutchPlayerID model.PlayerID) bool {
	s.mu.Lock()
	if s.state.IsGameOver {
		s.mu.Unlock()
		return s.fail("add_round", model.ErrGameOver)
	}

	result, err := s.scoring.AddRoundToPlayers(s.state.Players, scores, dutchPlayerID)
	if err != nil {
		s.mu.Unlock()
		return s.fail("add_round", err)
	}

	now := s.clock.Now()
	entry := model.RoundHistoryEntry{
		Scores:        append([]float64(nil), scores...),
		DutchPlayerID: dutchPlayerID,
		Timestamp:     now,
	}

	s.state.Players = stats.Apply(result.Players)
	s.state.RoundHistory = append(s.state.RoundHistory, entry)
	s.state.IsGameOver = s.state.LimitReached()
	s.state.LastIntegrityCheck = &now
	snapshot, version := s.snapshotLocked()
	s.mu.Unlock()

	s.reportCorrections("add_round", result.Corrections)
	s.logger.Info("round added",
		slog.Int("round", snapshot.RoundCount()),
		slog.String("dutch_player_id", string(dutchPlayerID)),
		slog.Bool("game_over", snapshot.IsGameOver),
	)

	s.persist(ctx, version, snapshot)
	s.publish(snapshot)

	if snapshot.IsGameOver {
		if leader := snapshot.Leader(); leader != nil {
			notify.Success(s.notifier, fmt.Sprintf("Game over! %s wins with %g points", leader.Name, leader.TotalScore))
		}
	} else {
		notify.Success(s.notifier, fmt.Sprintf("Round %d added", snapshot.RoundCount()))
	}
	return true
}

// UndoLastRound removes the most recent round. A finished game resumes.
func (s *Store) UndoLastRound(ctx context.Context) bool {
	s.mu.Lock()
	result, err := s.scoring.RemoveLastRoundFromPlayers(s.state.Players)
	if err != nil {
		s.mu.Unlock()
		return s.fail("undo_round", err)
	}

	now := s.clock.Now()
	s.state.Players = stats.Apply(result.Players)
	if n := len(s.state.RoundHistory); n > 0 {
		s.state.RoundHistory = s.state.RoundHistory[:n-1]
	}
	s.state.IsGameOver = false
	s.state.LastIntegrityCheck = &now
	snapshot, version := s.snapshotLocked()
	s.mu.Unlock()

	s.reportCorrections("undo_round", result.Corrections)
	s.logger.Info("round undone", slog.Int("rounds", snapshot.RoundCount()))

	s.persist(ctx, version, snapshot)
	s.publish(snapshot)
	notify.Success(s.notifier, "Last round undone")
	return true
}

// Reset returns to the initial empty state and clears persisted data
func (s *Store) Reset(ctx context.Context) {
	s.mu.Lock()
	s.state = model.NewGameState()
	snapshot, version := s.snapshotLocked()
	s.mu.Unlock()

	s.write(version, func() { s.persister.Clear(ctx) })
	s.logger.Info("game reset")
	s.publish(snapshot)
}

// Restore loads the saved game, healing drifted totals and realigning the
// round history. It reports whether a game was restored.
func (s *Store) Restore(ctx context.Context) bool {
	loaded := s.persister.Load(ctx)
	if loaded == nil {
		return false
	}

	state := *loaded
	fixed := integrity.ValidateAndFixPlayers(state.Players)
	state.Players = fixed.Players

	repaired, historyChanged := integrity.RepairRoundHistory(state)
	if historyChanged {
		s.logger.Warn("round history rebuilt from player rounds",
			slog.Int("rounds", repaired.RoundCount()),
		)
		notify.Warning(s.notifier, "Round history was out of sync and has been rebuilt")
	}
	state = repaired

	now := s.clock.Now()
	state.Players = stats.Apply(state.Players)
	state.IsGameOver = state.LimitReached()
	state.LastIntegrityCheck = &now

	s.mu.Lock()
	s.state = state
	snapshot, version := s.snapshotLocked()
	s.mu.Unlock()

	s.reportCorrections("restore", fixed.Corrections)
	if len(fixed.Corrections) > 0 || historyChanged {
		s.persist(ctx, version, snapshot)
	}
	s.publish(snapshot)
	return true
}

// SetScoreLimit changes the total at which the game ends
func (s *Store) SetScoreLimit(ctx context.Context, limit int) error {
	if limit <= 0 {
		return model.ErrInvalidScoreLimit
	}

	s.mu.Lock()
	s.state.ScoreLimit = limit
	s.state.IsGameOver = s.state.LimitReached()
	snapshot, version := s.snapshotLocked()
	s.mu.Unlock()

	if len(snapshot.Players) > 0 {
		s.persist(ctx, version, snapshot)
	}
	s.publish(snapshot)
	return nil
}

// Audit reports integrity problems in the current state without changing it
func (s *Store) Audit() integrity.Audit {
	state := s.GetState()
	audit := integrity.AuditScoreIntegrity(state.Players)
	if err := integrity.CheckRoundHistory(state); err != nil {
		audit.IsValid = false
		audit.Errors = append(audit.Errors, err.Error())
	}
	return audit
}

// snapshotLocked copies the state and stamps it with a new version.
// The caller holds s.mu.
func (s *Store) snapshotLocked() (model.GameState, uint64) {
	s.version++
	return s.state.Clone(), s.version
}

func (s *Store) persist(ctx context.Context, version uint64, state model.GameState) {
	s.write(version, func() {
		if !s.persister.Save(ctx, state) {
			notify.Error(s.notifier, "Could not save the game. Changes will be lost when you quit.")
		}
	})
}

// write runs one persister call for the snapshot at version. Calls are
// serialised, and a snapshot older than one already written is skipped so
// the saved game never goes back in time.
func (s *Store) write(version uint64, fn func()) {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	if version <= s.savedVersion {
		s.logger.Debug("skipping stale save", slog.Uint64("version", version), slog.Uint64("saved", s.savedVersion))
		return
	}
	s.savedVersion = version
	fn()
}

func (s *Store) fail(op string, err error) bool {
	s.logger.Warn("operation rejected",
		slog.String("op", op),
		slog.String("error", err.Error()),
	)
	notify.Error(s.notifier, userMessage(err))
	return false
}

func (s *Store) reportCorrections(op string, corrections []integrity.Correction) {
	for _, c := range corrections {
		s.logger.Warn("corrected total",
			slog.String("op", op),
			slog.String("player_id", string(c.PlayerID)),
			slog.Float64("from", c.From),
			slog.Float64("to", c.To),
		)
	}
	if len(corrections) > 0 {
		notify.Warning(s.notifier, fmt.Sprintf("Corrected %d score total(s) that were out of sync", len(corrections)))
	}
}

func (s *Store) publish(state model.GameState) {
	s.mu.Lock()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	for _, l := range listeners {
		s.callListener(l, state.Clone())
	}
}

func (s *Store) callListener(l Listener, state model.GameState) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("state listener panicked",
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)
		}
	}()
	l(state)
}

// userMessage turns a rejection into text for the notification sink
func userMessage(err error) string {
	switch {
	case errors.Is(err, model.ErrGameOver):
		return "The game is over. Undo the last round or start a new game."
	case errors.Is(err, model.ErrNothingToUndo):
		return "There is no round to undo."
	case errors.Is(err, model.ErrInvalidRound):
		return "Invalid round: scores must be between 0 and 500 and the Dutch player must have the lowest score."
	case errors.Is(err, model.ErrMutationFailed), errors.Is(err, model.ErrScoreConsistency):
		return "Something went wrong recording the round. Nothing was changed."
	default:
		return capitalize(err.Error())
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	if s[0] >= 'a' && s[0] <= 'z' {
		return string(s[0]-'a'+'A') + s[1:]
	}
	return s
}

func cloneHistory(history []model.RoundHistoryEntry) []model.RoundHistoryEntry {
	result := make([]model.RoundHistoryEntry, len(history))
	for i, entry := range history {
		result[i] = entry.Clone()
	}
	return result
}
