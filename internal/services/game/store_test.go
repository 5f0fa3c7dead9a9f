package game

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/dutchscore/internal/dependencies/mocks"
	"github.com/mcoot/dutchscore/internal/model"
	"github.com/mcoot/dutchscore/internal/notify"
	"github.com/mcoot/dutchscore/internal/services/persistence"
	"github.com/mcoot/dutchscore/internal/services/scoring"
	"github.com/mcoot/dutchscore/internal/storage/memory"
	"github.com/mcoot/dutchscore/internal/testutil"
)

// failingPersister accepts nothing, to check in-memory state survives save failures
type failingPersister struct {
	saves int
}

func (p *failingPersister) Save(context.Context, model.GameState) bool {
	p.saves++
	return false
}
func (p *failingPersister) Load(context.Context) *model.GameState { return nil }
func (p *failingPersister) Clear(context.Context)                 {}

// recordingPersister keeps every snapshot it is asked to save
type recordingPersister struct {
	mu    sync.Mutex
	saves []model.GameState
}

func (p *recordingPersister) Save(_ context.Context, state model.GameState) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.saves = append(p.saves, state)
	return true
}
func (p *recordingPersister) Load(context.Context) *model.GameState { return nil }
func (p *recordingPersister) Clear(context.Context)                 {}

func (p *recordingPersister) last() model.GameState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.saves[len(p.saves)-1]
}

type StoreSuite struct {
	suite.Suite
	storage  *memory.Storage
	adapter  *persistence.Adapter
	notifier *notify.Recorder
	clock    *mocks.MockClock
	uuid     *mocks.MockUUID
	store    *Store
	ctx      context.Context
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}

func (s *StoreSuite) SetupTest() {
	s.storage = memory.New()
	s.uuid = mocks.NewMockUUID()
	s.adapter = persistence.New(s.storage, s.uuid, testutil.NopLogger())
	s.notifier = notify.NewRecorder()
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.store = s.newStore(s.adapter)
	s.ctx = context.Background()
}

func (s *StoreSuite) newStore(p Persister) *Store {
	return NewStore(scoring.New(testutil.NopLogger()), p, s.notifier, s.clock, s.uuid, testutil.NopLogger())
}

func (s *StoreSuite) startGame(names ...string) model.GameState {
	s.uuid.Queue("game-1", "p1", "p2", "p3", "p4")
	s.Require().True(s.store.CreateGame(s.ctx, names))
	s.notifier.Reset()
	return s.store.GetState()
}

// phase returns the lifecycle stage of the store's current state
func (s *StoreSuite) phase() model.Phase {
	state := s.store.GetState()
	return state.Phase()
}

func (s *StoreSuite) saved() *model.GameState {
	data, err := s.storage.Get(s.ctx, persistence.StateKey)
	if err != nil {
		return nil
	}
	var state model.GameState
	s.Require().NoError(json.Unmarshal(data, &state))
	return &state
}

// CreateGame tests

func (s *StoreSuite) TestInitialState() {
	state := s.store.GetState()
	s.Equal(model.PhaseSetup, state.Phase())
	s.Empty(state.Players)
	s.Empty(state.RoundHistory)
	s.Equal(model.DefaultScoreLimit, state.ScoreLimit)
}

func (s *StoreSuite) TestCreateGameSucceeds() {
	s.uuid.Queue("game-1", "p1", "p2")

	s.True(s.store.CreateGame(s.ctx, []string{" Alice ", "Bob"}))

	state := s.store.GetState()
	s.Equal(model.PhasePlaying, state.Phase())
	s.Require().Len(state.Players, 2)
	s.Equal(model.PlayerID("p1"), state.Players[0].ID)
	s.Equal("Alice", state.Players[0].Name)
	s.Equal(model.AvatarColors[0], state.Players[0].AvatarColor)
	s.Equal(model.PlayerEmojis[1], state.Players[1].Emoji)
	s.Equal(0.0, state.Players[0].TotalScore)
	s.NotNil(state.Players[0].Stats)
	s.Require().NotNil(state.GameID)
	s.Equal(model.GameID("game-1"), *state.GameID)
	s.Equal(s.clock.Now(), *state.GameStartTime)
	s.Empty(state.RoundHistory)

	s.Require().NotNil(s.saved())
	s.Equal(1, s.notifier.Count(notify.LevelSuccess))
}

func (s *StoreSuite) TestCreateGameRejectsSinglePlayer() {
	s.False(s.store.CreateGame(s.ctx, []string{"Alice"}))

	s.Equal(model.PhaseSetup, s.phase())
	s.Nil(s.saved())
	s.Equal(1, s.notifier.Count(notify.LevelError))
}

func (s *StoreSuite) TestCreateGameRejectsBlankNames() {
	s.False(s.store.CreateGame(s.ctx, []string{"Alice", "  "}))
	s.Empty(s.store.GetState().Players)
}

func (s *StoreSuite) TestCreateGameAllowsRepeatedNames() {
	s.uuid.Queue("game-1", "p1", "p2")
	s.Require().True(s.store.CreateGame(s.ctx, []string{"Alice", "alice"}))

	state := s.store.GetState()
	s.Require().Len(state.Players, 2)
	s.Equal("Alice", state.Players[0].Name)
	s.Equal("alice", state.Players[1].Name)
	s.NotEqual(state.Players[0].ID, state.Players[1].ID)

	s.True(s.store.AddRound(s.ctx, []float64{10, 5}, state.Players[1].ID))
	s.True(s.store.GetState().Players[1].Rounds[0].IsDutch)
}

func (s *StoreSuite) TestCreateGameReplacesPreviousGame() {
	s.startGame("Alice", "Bob")
	s.Require().True(s.store.AddRound(s.ctx, []float64{5, 10}, ""))

	s.uuid.Queue("game-2", "q1", "q2", "q3")
	s.True(s.store.CreateGame(s.ctx, []string{"Carol", "Dave", "Erin"}))

	state := s.store.GetState()
	s.Len(state.Players, 3)
	s.Empty(state.RoundHistory)
	s.Equal(model.GameID("game-2"), *state.GameID)
}

func (s *StoreSuite) TestCreateGameKeepsScoreLimit() {
	s.Require().NoError(s.store.SetScoreLimit(s.ctx, 50))
	s.startGame("Alice", "Bob")

	s.Equal(50, s.store.GetState().ScoreLimit)
}

// AddRound tests

func (s *StoreSuite) TestAddRound() {
	s.startGame("Alice", "Bob")

	s.True(s.store.AddRound(s.ctx, []float64{3, 12}, "p1"))

	state := s.store.GetState()
	s.Require().Len(state.RoundHistory, 1)
	s.Equal([]float64{3, 12}, state.RoundHistory[0].Scores)
	s.Equal(model.PlayerID("p1"), state.RoundHistory[0].DutchPlayerID)
	s.Equal(s.clock.Now(), state.RoundHistory[0].Timestamp)

	s.Equal(3.0, state.Players[0].TotalScore)
	s.True(state.Players[0].Rounds[0].IsDutch)
	s.Equal(12.0, state.Players[1].TotalScore)
	s.Equal(1, state.Players[0].Stats.DutchCount)
	s.False(state.IsGameOver)

	saved := s.saved()
	s.Require().NotNil(saved)
	s.Len(saved.RoundHistory, 1)
}

func (s *StoreSuite) TestAddRoundRejectsInvalidScores() {
	s.startGame("Alice", "Bob")
	before := s.store.GetState()

	s.False(s.store.AddRound(s.ctx, []float64{5}, ""))
	s.False(s.store.AddRound(s.ctx, []float64{-1, 5}, ""))
	s.False(s.store.AddRound(s.ctx, []float64{501, 5}, ""))
	s.False(s.store.AddRound(s.ctx, []float64{10, 5}, "p1"), "Dutch player must have the lowest score")
	s.False(s.store.AddRound(s.ctx, []float64{1, 5}, "nobody"))

	s.Equal(before, s.store.GetState())
	s.Equal(5, s.notifier.Count(notify.LevelError))
}

func (s *StoreSuite) TestAddRoundWithoutGame() {
	s.False(s.store.AddRound(s.ctx, []float64{}, ""))
	s.Equal(model.PhaseSetup, s.phase())
}

func (s *StoreSuite) TestGameOverAtLimit() {
	s.startGame("Alice", "Bob")

	s.True(s.store.AddRound(s.ctx, []float64{50, 60}, ""))
	s.False(s.store.GetState().IsGameOver)

	s.True(s.store.AddRound(s.ctx, []float64{50, 10}, ""))

	state := s.store.GetState()
	s.True(state.IsGameOver, "a total equal to the limit ends the game")
	s.Equal(model.PhaseFinished, state.Phase())
	s.Equal(100.0, state.Players[0].TotalScore)
	s.Equal(model.PlayerID("p2"), state.Leader().ID)

	last, ok := s.notifier.Last()
	s.Require().True(ok)
	s.Contains(last.Message, "Bob wins")
}

func (s *StoreSuite) TestAddRoundAfterGameOverRejected() {
	s.startGame("Alice", "Bob")
	s.Require().True(s.store.AddRound(s.ctx, []float64{120, 0}, ""))

	s.False(s.store.AddRound(s.ctx, []float64{1, 1}, ""))
	s.Len(s.store.GetState().RoundHistory, 1)
}

// UndoLastRound tests

func (s *StoreSuite) TestUndoRestoresPreviousState() {
	s.startGame("Alice", "Bob")
	s.Require().True(s.store.AddRound(s.ctx, []float64{5, 10}, ""))
	afterFirst := s.store.GetState()

	s.Require().True(s.store.AddRound(s.ctx, []float64{0, 20}, "p1"))
	s.True(s.store.UndoLastRound(s.ctx))

	state := s.store.GetState()
	s.Equal(afterFirst.Players, state.Players)
	s.Equal(afterFirst.RoundHistory, state.RoundHistory)
}

func (s *StoreSuite) TestUndoWithNoRounds() {
	s.startGame("Alice", "Bob")

	s.False(s.store.UndoLastRound(s.ctx))
	last, ok := s.notifier.Last()
	s.Require().True(ok)
	s.Equal(notify.LevelError, last.Level)
}

func (s *StoreSuite) TestUndoFromFinishedResumesGame() {
	s.startGame("Alice", "Bob")
	s.Require().True(s.store.AddRound(s.ctx, []float64{100, 0}, "p2"))
	s.Require().Equal(model.PhaseFinished, s.phase())

	s.True(s.store.UndoLastRound(s.ctx))

	state := s.store.GetState()
	s.False(state.IsGameOver)
	s.Equal(model.PhasePlaying, state.Phase())
	s.True(s.store.AddRound(s.ctx, []float64{1, 2}, ""), "rounds can be added again")
}

// Reset tests

func (s *StoreSuite) TestResetClearsStateAndStorage() {
	s.startGame("Alice", "Bob")
	s.Require().True(s.store.AddRound(s.ctx, []float64{5, 10}, ""))

	s.store.Reset(s.ctx)

	s.Equal(model.PhaseSetup, s.phase())
	s.Nil(s.saved())
	s.Empty(s.storage.Keys())
}

// Subscribe tests

func (s *StoreSuite) TestSubscribersReceiveCopies() {
	var received []model.GameState
	unsubscribe := s.store.Subscribe(func(state model.GameState) {
		received = append(received, state)
		state.Players = nil
	})

	s.startGame("Alice", "Bob")
	s.Require().True(s.store.AddRound(s.ctx, []float64{5, 10}, ""))

	s.Len(received, 2)
	s.Len(s.store.GetState().Players, 2, "listener changes do not leak into the store")

	unsubscribe()
	unsubscribe()
	s.Require().True(s.store.AddRound(s.ctx, []float64{5, 10}, ""))
	s.Len(received, 2)
}

func (s *StoreSuite) TestPanickingSubscriberDoesNotBreakOthers() {
	logger, logs := testutil.BufferLogger()
	s.store = NewStore(scoring.New(logger), s.adapter, s.notifier, s.clock, s.uuid, logger)

	calls := 0
	s.store.Subscribe(func(model.GameState) { panic("bad observer") })
	s.store.Subscribe(func(model.GameState) { calls++ })

	s.NotPanics(func() { s.startGame("Alice", "Bob") })
	s.Equal(1, calls)
	s.Contains(logs.String(), "state listener panicked")
}

func (s *StoreSuite) TestSetStateMergesNonNilFields() {
	s.startGame("Alice", "Bob")
	var notified int
	s.store.Subscribe(func(model.GameState) { notified++ })

	limit := 250
	over := true
	s.store.SetState(StateUpdate{ScoreLimit: &limit, IsGameOver: &over})

	state := s.store.GetState()
	s.Equal(250, state.ScoreLimit)
	s.True(state.IsGameOver)
	s.Len(state.Players, 2, "unset fields are kept")
	s.Equal(1, notified)
}

func (s *StoreSuite) TestGetStateIsDefensiveCopy() {
	s.startGame("Alice", "Bob")

	state := s.store.GetState()
	state.Players[0].Name = "Mallory"
	state.Players[0].Rounds = append(state.Players[0].Rounds, model.Round{Score: 99})

	fresh := s.store.GetState()
	s.Equal("Alice", fresh.Players[0].Name)
	s.Empty(fresh.Players[0].Rounds)
}

// Persistence tests

func (s *StoreSuite) TestSaveFailureKeepsMemoryState() {
	persister := &failingPersister{}
	s.store = s.newStore(persister)
	s.uuid.Queue("game-1", "p1", "p2")

	s.True(s.store.CreateGame(s.ctx, []string{"Alice", "Bob"}))
	s.True(s.store.AddRound(s.ctx, []float64{5, 10}, ""))

	s.Equal(2, persister.saves)
	s.Len(s.store.GetState().RoundHistory, 1)
	s.Equal(2, s.notifier.Count(notify.LevelError))
}

func (s *StoreSuite) TestRestoreRoundTrip() {
	s.startGame("Alice", "Bob")
	s.Require().True(s.store.AddRound(s.ctx, []float64{5, 10}, ""))
	want := s.store.GetState()

	restored := s.newStore(s.adapter)
	s.True(restored.Restore(s.ctx))

	got := restored.GetState()
	s.Equal(want.Players, got.Players)
	s.Equal(want.RoundHistory, got.RoundHistory)
	s.Equal(*want.GameID, *got.GameID)
}

func (s *StoreSuite) TestRestoreWithNothingSaved() {
	s.False(s.store.Restore(s.ctx))
	s.Equal(model.PhaseSetup, s.phase())
}

func (s *StoreSuite) TestRestoreHealsDriftedTotals() {
	state := model.NewGameState()
	state.Players = []model.Player{
		{ID: "p1", Name: "Alice", TotalScore: 99, Rounds: []model.Round{{Score: 5}, {Score: 10}}},
		{ID: "p2", Name: "Bob", TotalScore: 20, Rounds: []model.Round{{Score: 15}, {Score: 5}}},
	}
	state.RoundHistory = []model.RoundHistoryEntry{{Scores: []float64{5, 15}}, {Scores: []float64{10, 5}}}
	s.Require().True(s.adapter.Save(s.ctx, state))

	s.True(s.store.Restore(s.ctx))

	restored := s.store.GetState()
	s.Equal(15.0, restored.Players[0].TotalScore)
	s.True(s.store.Audit().IsValid)
	s.Equal(1, s.notifier.Count(notify.LevelWarning))
	s.Equal(15.0, s.saved().Players[0].TotalScore, "healed state is written back")
}

func (s *StoreSuite) TestRestoreRebuildsMissingHistory() {
	state := model.NewGameState()
	state.Players = []model.Player{
		{ID: "p1", Name: "Alice", TotalScore: 5, Rounds: []model.Round{{Score: 5}}},
		{ID: "p2", Name: "Bob", TotalScore: 0, Rounds: []model.Round{}},
	}
	s.Require().True(s.adapter.Save(s.ctx, state))

	s.True(s.store.Restore(s.ctx))

	restored := s.store.GetState()
	s.Require().Len(restored.RoundHistory, 1)
	s.Equal([]float64{5, 0}, restored.RoundHistory[0].Scores)
	s.Len(restored.Players[1].Rounds, 1)
	s.True(s.store.Audit().IsValid)
}

func (s *StoreSuite) TestRestoreRecomputesGameOver() {
	state := model.NewGameState()
	state.Players = []model.Player{
		{ID: "p1", Name: "Alice", TotalScore: 110, Rounds: []model.Round{{Score: 110}}},
		{ID: "p2", Name: "Bob", TotalScore: 0, Rounds: []model.Round{{Score: 0}}},
	}
	state.RoundHistory = []model.RoundHistoryEntry{{Scores: []float64{110, 0}}}
	s.Require().True(s.adapter.Save(s.ctx, state))

	s.True(s.store.Restore(s.ctx))
	s.True(s.store.GetState().IsGameOver)
}

// Score limit and audit tests

func (s *StoreSuite) TestSetScoreLimit() {
	s.startGame("Alice", "Bob")
	s.Require().True(s.store.AddRound(s.ctx, []float64{40, 10}, ""))

	s.ErrorIs(s.store.SetScoreLimit(s.ctx, 0), model.ErrInvalidScoreLimit)

	s.Require().NoError(s.store.SetScoreLimit(s.ctx, 40))
	s.True(s.store.GetState().IsGameOver, "lowering the limit below a total ends the game")

	s.Require().NoError(s.store.SetScoreLimit(s.ctx, 200))
	s.False(s.store.GetState().IsGameOver)
	s.Equal(200, s.saved().ScoreLimit)
}

func (s *StoreSuite) TestAuditReportsDrift() {
	s.startGame("Alice", "Bob")
	s.Require().True(s.store.AddRound(s.ctx, []float64{5, 10}, ""))
	s.True(s.store.Audit().IsValid)

	state := s.store.GetState()
	state.Players[0].TotalScore = 42
	s.store.SetState(StateUpdate{Players: state.Players})

	audit := s.store.Audit()
	s.False(audit.IsValid)
	s.Require().Len(audit.Corrections, 1)
	s.Equal(42.0, audit.Corrections[0].From)
	s.Equal(5.0, audit.Corrections[0].To)
}

func (s *StoreSuite) TestAddRoundHealsDriftAndWarns() {
	s.startGame("Alice", "Bob")
	s.Require().True(s.store.AddRound(s.ctx, []float64{5, 10}, ""))

	state := s.store.GetState()
	state.Players[1].TotalScore = 0
	s.store.SetState(StateUpdate{Players: state.Players})
	s.notifier.Reset()

	s.True(s.store.AddRound(s.ctx, []float64{1, 2}, ""))

	s.Equal(12.0, s.store.GetState().Players[1].TotalScore)
	s.Equal(1, s.notifier.Count(notify.LevelWarning))
	s.True(s.store.Audit().IsValid)
}

// Invariant: after any sequence of operations every total matches its rounds
// and history stays aligned.
func (s *StoreSuite) TestTotalsInvariantAcrossSequence() {
	s.startGame("Alice", "Bob", "Carol")
	ops := []func() bool{
		func() bool { return s.store.AddRound(s.ctx, []float64{5, 10, 0}, "p3") },
		func() bool { return s.store.AddRound(s.ctx, []float64{7.5, 2.5, 30}, "") },
		func() bool { return s.store.UndoLastRound(s.ctx) },
		func() bool { return s.store.AddRound(s.ctx, []float64{500, 0, 1}, "p2") },
		func() bool { return s.store.AddRound(s.ctx, []float64{1, 1, 1}, "") },
		func() bool { return s.store.UndoLastRound(s.ctx) },
		func() bool { return s.store.UndoLastRound(s.ctx) },
	}
	for _, op := range ops {
		op()
		s.True(s.store.Audit().IsValid)
	}
	s.Empty(s.store.GetState().RoundHistory)
}

func (s *StoreSuite) TestStaleSnapshotIsNotSaved() {
	rec := &recordingPersister{}
	store := s.newStore(rec)

	older := model.NewGameState()
	older.ScoreLimit = 50
	newer := model.NewGameState()
	newer.ScoreLimit = 75

	store.persist(s.ctx, 2, newer)
	store.persist(s.ctx, 1, older)

	s.Len(rec.saves, 1)
	s.Equal(75, rec.last().ScoreLimit)
}

func (s *StoreSuite) TestConcurrentRoundsSaveLatestState() {
	rec := &recordingPersister{}
	store := s.newStore(rec)
	s.uuid.Queue("game-1", "p1", "p2")
	s.Require().True(store.CreateGame(s.ctx, []string{"Alice", "Bob"}))
	s.Require().NoError(store.SetScoreLimit(s.ctx, 10000))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			store.AddRound(s.ctx, []float64{1, 2}, "")
		}()
	}
	wg.Wait()

	state := store.GetState()
	s.Equal(20, state.RoundCount())
	s.Equal(state, rec.last())
}
