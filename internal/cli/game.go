package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mcoot/dutchscore/internal/factory"
	"github.com/mcoot/dutchscore/internal/model"
	"github.com/mcoot/dutchscore/internal/notify"
	"github.com/mcoot/dutchscore/internal/services/validation"
)

// session is one invocation's view of the local game
type session struct {
	app      *factory.App
	recorder *notify.Recorder
	out      *Output
}

// openSession wires the local store. Success and warning notifications go to
// stderr; errors are returned from the command instead.
func openSession(cmd *cobra.Command) (*session, error) {
	recorder := notify.NewRecorder()
	notifier := notify.Multi{
		skipErrors{notify.NewWriterNotifier(cmd.ErrOrStderr())},
		recorder,
	}

	fc, err := cfg.FactoryConfig(cfg.Logger(cmd.ErrOrStderr()), notifier)
	if err != nil {
		return nil, err
	}
	app, err := factory.New(fc)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	return &session{app: app, recorder: recorder, out: newOutput(cmd)}, nil
}

func (s *session) Close() {
	_ = s.app.Close()
}

// restore loads the saved game, failing when there is none
func (s *session) restore(ctx context.Context) error {
	if !s.app.GameStore.Restore(ctx) {
		return fmt.Errorf("%w: start one with 'dutch new'", model.ErrNoGame)
	}
	return nil
}

// failure turns the store's last error notification into an error
func (s *session) failure(fallback string) error {
	if n, ok := s.recorder.Last(); ok && n.Level == notify.LevelError {
		return errors.New(n.Message)
	}
	return errors.New(fallback)
}

type skipErrors struct {
	notify.Notifier
}

func (s skipErrors) Notify(level notify.Level, message string) {
	if level != notify.LevelError {
		s.Notifier.Notify(level, message)
	}
}

// withSession opens a session, runs fn and closes the session
func withSession(cmd *cobra.Command, fn func(ctx context.Context, s *session) error) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(cmd.Context(), s)
}

func newNewCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "new <name> <name> [name...]",
		Short: "Start a new game, replacing any game in progress",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, s *session) error {
				store := s.app.GameStore
				// Carries the previous game's score limit over
				store.Restore(ctx)
				if cmd.Flags().Changed("limit") {
					if err := store.SetScoreLimit(ctx, limit); err != nil {
						return err
					}
				}
				if !store.CreateGame(ctx, args) {
					return s.failure("could not start game")
				}
				s.out.Print(store.GetState())
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", model.DefaultScoreLimit, "Score limit that ends the game")

	return cmd
}

func newRoundCmd() *cobra.Command {
	var dutch string

	cmd := &cobra.Command{
		Use:   "round <score>...",
		Short: "Record a round, one score per player in seating order",
		Long: `Record a round. Scores are given in the same order as the players.

Use --dutch with a player name or id to mark who called Dutch; that player
must have the lowest score of the round.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scores, err := validation.ParseScores(args)
			if err != nil {
				return err
			}

			return withSession(cmd, func(ctx context.Context, s *session) error {
				if err := s.restore(ctx); err != nil {
					return err
				}
				store := s.app.GameStore

				dutchID, err := resolvePlayer(store.GetState().Players, dutch)
				if err != nil {
					return err
				}
				if !store.AddRound(ctx, scores, dutchID) {
					return s.failure("round rejected")
				}
				s.out.Print(store.GetState())
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&dutch, "dutch", "", "Player (name or id) who called Dutch")

	return cmd
}

func newUndoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "undo",
		Short: "Remove the last round",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, s *session) error {
				if err := s.restore(ctx); err != nil {
					return err
				}
				if !s.app.GameStore.UndoLastRound(ctx) {
					return s.failure("undo failed")
				}
				s.out.Print(s.app.GameStore.GetState())
				return nil
			})
		},
	}
}

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the current game",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, s *session) error {
				if err := s.restore(ctx); err != nil {
					return err
				}
				s.out.Print(s.app.GameStore.GetState())
				return nil
			})
		},
	}
}

func newAuditCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "audit",
		Short: "Check stored totals against the recorded rounds",
		Long: `Check stored totals against the recorded rounds.

Loading a game already repairs drifted totals, so this normally reports a
clean game; any corrections made while loading are printed as warnings.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, s *session) error {
				if err := s.restore(ctx); err != nil {
					return err
				}
				s.out.Print(s.app.GameStore.Audit())
				return nil
			})
		},
	}
}

func newLimitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "limit <points>",
		Short: "Change the score limit of the current game",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid limit: %w", err)
			}

			return withSession(cmd, func(ctx context.Context, s *session) error {
				if err := s.restore(ctx); err != nil {
					return err
				}
				if err := s.app.GameStore.SetScoreLimit(ctx, limit); err != nil {
					return err
				}
				s.out.Print(s.app.GameStore.GetState())
				return nil
			})
		},
	}
}

func newResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Discard the current game",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, s *session) error {
				s.app.GameStore.Reset(ctx)
				s.out.PrintMessage("Game reset")
				return nil
			})
		},
	}
}

// resolvePlayer finds a player by id, or by case-insensitive name
func resolvePlayer(players []model.Player, ref string) (model.PlayerID, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", nil
	}
	for _, p := range players {
		if string(p.ID) == ref {
			return p.ID, nil
		}
	}
	var matches []model.PlayerID
	for _, p := range players {
		if strings.EqualFold(p.Name, ref) {
			matches = append(matches, p.ID)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("no player named %q", ref)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("%d players are named %q, use an id instead", len(matches), ref)
	}
}
