package scoring

import (
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/mcoot/dutchscore/internal/model"
	"github.com/mcoot/dutchscore/internal/services/integrity"
	"github.com/mcoot/dutchscore/internal/services/validation"
)

// MutationResult is the outcome of a round mutation.
// On error Players holds the untouched input.
type MutationResult struct {
	Players []model.Player

	// Corrections lists totals healed before the mutation was applied
	Corrections []integrity.Correction
}

// Healed reports whether pre-existing drift was corrected
func (r *MutationResult) Healed() bool {
	return len(r.Corrections) > 0
}

// Service applies round mutations to player lists.
// It is the only code path that appends to or removes from Player.Rounds.
type Service struct {
	logger *slog.Logger
}

// New creates a new scoring Service
func New(logger *slog.Logger) *Service {
	return &Service{
		logger: logger.With(slog.String("component", "scoring")),
	}
}

// AddRoundToPlayers appends one round to every player, positionally.
// Totals are recomputed from the full round list, never incremented.
func (s *Service) AddRoundToPlayers(players []model.Player, scores []float64, dutchPlayerID model.PlayerID) (result *MutationResult, err error) {
	result = &MutationResult{Players: players}
	defer s.recoverMutation("add_round", players, &result, &err)

	if len(players) == 0 {
		return result, model.ErrNoPlayers
	}
	if len(scores) != len(players) {
		return result, fmt.Errorf("%w: got %d scores for %d players", model.ErrScoreCount, len(scores), len(players))
	}
	if !validation.AllFinite(scores) {
		return result, model.ErrInvalidScores
	}
	if !validation.ValidateRoundData(scores, dutchPlayerID, model.IDs(players)) {
		return result, model.ErrInvalidRound
	}

	healed := s.heal(players)

	updated := healed.Players
	for i := range updated {
		updated[i].Rounds = append(updated[i].Rounds, model.Round{
			Score:   scores[i],
			IsDutch: dutchPlayerID != "" && updated[i].ID == dutchPlayerID,
		})
		updated[i].TotalScore = integrity.RecalculatePlayerTotalScore(updated[i])
	}

	if err := s.verify(updated); err != nil {
		return result, err
	}

	return &MutationResult{Players: updated, Corrections: healed.Corrections}, nil
}

// RemoveLastRoundFromPlayers drops the most recent round from every player
// that has one. Players without rounds are left unchanged.
func (s *Service) RemoveLastRoundFromPlayers(players []model.Player) (result *MutationResult, err error) {
	result = &MutationResult{Players: players}
	defer s.recoverMutation("undo_round", players, &result, &err)

	hasRounds := false
	for _, p := range players {
		if len(p.Rounds) > 0 {
			hasRounds = true
			break
		}
	}
	if !hasRounds {
		return result, model.ErrNothingToUndo
	}

	healed := s.heal(players)

	updated := healed.Players
	for i := range updated {
		if len(updated[i].Rounds) == 0 {
			continue
		}
		updated[i].Rounds = updated[i].Rounds[:len(updated[i].Rounds)-1]
		updated[i].TotalScore = integrity.RecalculatePlayerTotalScore(updated[i])
	}

	if err := s.verify(updated); err != nil {
		return result, err
	}

	return &MutationResult{Players: updated, Corrections: healed.Corrections}, nil
}

// heal deep-copies players and repairs any drifted totals.
// A nil round list is normalised to an empty one so that the output of
// every mutation has a single representation for "no rounds".
func (s *Service) heal(players []model.Player) integrity.FixResult {
	healed := integrity.ValidateAndFixPlayers(players)
	for i := range healed.Players {
		if healed.Players[i].Rounds == nil {
			healed.Players[i].Rounds = []model.Round{}
		}
	}
	for _, c := range healed.Corrections {
		s.logger.Warn("score drift corrected",
			slog.String("player_id", string(c.PlayerID)),
			slog.Float64("from", c.From),
			slog.Float64("to", c.To),
		)
	}
	return healed
}

// verify re-runs the integrity audit on the mutated players
func (s *Service) verify(players []model.Player) error {
	audit := integrity.AuditScoreIntegrity(players)
	if audit.IsValid {
		return nil
	}
	s.logger.Error("integrity check failed after mutation", slog.Any("errors", audit.Errors))
	return model.ErrScoreConsistency
}

// recoverMutation converts a panic inside a mutation into ErrMutationFailed
// and restores the untouched input as the result.
func (s *Service) recoverMutation(op string, players []model.Player, result **MutationResult, err *error) {
	if r := recover(); r != nil {
		s.logger.Error("panic during round mutation",
			slog.String("op", op),
			slog.Any("panic", r),
			slog.String("stack", string(debug.Stack())),
		)
		*result = &MutationResult{Players: players}
		*err = model.ErrMutationFailed
	}
}
