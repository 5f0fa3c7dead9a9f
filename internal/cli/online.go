package cli

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/mcoot/dutchscore/internal/api/response"
	"github.com/mcoot/dutchscore/internal/dependencies/uuid"
	"github.com/mcoot/dutchscore/internal/model"
	"github.com/mcoot/dutchscore/internal/services/validation"
)

func newOnlineCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "online",
		Short: "Shared games through a relay server",
		Long: `Shared games through a relay server.

Rooms live in the relay's memory only. Every command connects, does its work
and disconnects; use --watch or 'online watch' to follow a room live.
Pass the same --user id when joining again to return as the same player.`,
	}

	cmd.AddCommand(newOnlineCreateCmd())
	cmd.AddCommand(newOnlineJoinCmd())
	cmd.AddCommand(newOnlineWatchCmd())
	cmd.AddCommand(newOnlineRoundCmd())
	cmd.AddCommand(newOnlineUndoCmd())

	return cmd
}

func newOnlineCreateCmd() *cobra.Command {
	var (
		name    string
		user    string
		players []string
		limit   int
		watch   bool
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a room and print its code",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if user == "" {
				user = uuid.New().NewString()
			}

			msg := model.CreateGameMessage{
				Envelope:   model.NewEnvelope(model.MsgCreateGame, time.Now()),
				ScoreLimit: limit,
				UserID:     model.PlayerID(user),
				PlayerName: name,
			}
			if len(players) > 0 {
				msg.Players = append(msg.Players, model.PlayerSeed{ID: model.PlayerID(user), Name: name})
				for _, p := range players {
					msg.Players = append(msg.Players, model.PlayerSeed{Name: p})
				}
			}

			return withRelay(cmd, func(ctx context.Context, rc *RelayConn, out *Output) error {
				if err := rc.Send(msg); err != nil {
					return err
				}
				ev, err := rc.Await(model.MsgGameCreated)
				if err != nil {
					return err
				}
				out.Print(ev)
				if watch {
					return rc.Stream(ctx, func(ev relayEvent) { out.Print(ev) })
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Your display name (required)")
	cmd.Flags().StringVar(&user, "user", "", "Your player id (generated if empty)")
	cmd.Flags().StringArrayVar(&players, "player", nil, "Other player at the table (repeatable)")
	cmd.Flags().IntVar(&limit, "limit", model.DefaultScoreLimit, "Score limit that ends the game")
	cmd.Flags().BoolVar(&watch, "watch", false, "Keep streaming room events")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func newOnlineJoinCmd() *cobra.Command {
	return newOnlineJoinLikeCmd("join <code>", "Join a room, as a new player or returning with --user", false)
}

func newOnlineWatchCmd() *cobra.Command {
	return newOnlineJoinLikeCmd("watch <code>", "Join a room and stream its events (Ctrl+C to stop)", true)
}

func newOnlineJoinLikeCmd(use, short string, alwaysWatch bool) *cobra.Command {
	var (
		name  string
		user  string
		watch bool
	)

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRelay(cmd, func(ctx context.Context, rc *RelayConn, out *Output) error {
				ev, err := joinRoom(rc, args[0], user, name)
				if err != nil {
					return err
				}
				out.Print(ev)
				if watch || alwaysWatch {
					return rc.Stream(ctx, func(ev relayEvent) { out.Print(ev) })
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Your display name when joining for the first time")
	cmd.Flags().StringVar(&user, "user", "", "Your player id")
	if !alwaysWatch {
		cmd.Flags().BoolVar(&watch, "watch", false, "Keep streaming room events")
	}

	return cmd
}

func newOnlineRoundCmd() *cobra.Command {
	var dutch string

	cmd := &cobra.Command{
		Use:   "round <code> <score>...",
		Short: "Record a round in a room",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			code := model.RoomCode(args[0])
			scores, err := validation.ParseScores(args[1:])
			if err != nil {
				return err
			}

			var dutchID model.PlayerID
			if dutch != "" {
				var room response.Room
				if err := client.Get(cmd.Context(), "/api/v1/rooms/"+string(code), &room); err != nil {
					return err
				}
				if dutchID, err = resolvePlayer(room.GameState.Players, dutch); err != nil {
					return err
				}
			}

			msg := model.AddRoundMessage{
				Envelope:      model.NewEnvelope(model.MsgAddRound, time.Now()),
				GameID:        code,
				Scores:        make([]*float64, len(scores)),
				DutchPlayerID: dutchID,
			}
			for i := range scores {
				msg.Scores[i] = &scores[i]
			}

			return withRelay(cmd, func(ctx context.Context, rc *RelayConn, out *Output) error {
				if err := rc.Send(msg); err != nil {
					return err
				}
				ev, err := rc.Await(model.MsgRoundAdded)
				if err != nil {
					return err
				}
				out.Print(ev)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&dutch, "dutch", "", "Player (name or id) who called Dutch")

	return cmd
}

func newOnlineUndoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "undo <code>",
		Short: "Remove the last round in a room",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRelay(cmd, func(ctx context.Context, rc *RelayConn, out *Output) error {
				if err := rc.Send(model.UndoRoundMessage{
					Envelope: model.NewEnvelope(model.MsgUndoRound, time.Now()),
					GameID:   model.RoomCode(args[0]),
				}); err != nil {
					return err
				}

				ev, err := rc.Await(model.MsgRoundUndone)
				if err != nil {
					return err
				}
				out.Print(ev)
				return nil
			})
		},
	}
}

// withRelay dials the relay, runs fn and disconnects
func withRelay(cmd *cobra.Command, fn func(ctx context.Context, rc *RelayConn, out *Output) error) error {
	ctx := cmd.Context()
	rc, err := DialRelay(ctx, cfg.ServerURL)
	if err != nil {
		return err
	}
	defer func() { _ = rc.Close() }()
	return fn(ctx, rc, newOutput(cmd))
}

func joinRoom(rc *RelayConn, code, user, name string) (relayEvent, error) {
	if err := rc.Send(model.JoinGameMessage{
		Envelope:   model.NewEnvelope(model.MsgJoinGame, time.Now()),
		GameID:     model.RoomCode(code),
		UserID:     model.PlayerID(user),
		PlayerName: name,
	}); err != nil {
		return relayEvent{}, err
	}

	ev, err := rc.Await(model.MsgGameJoined)
	if err != nil {
		return ev, err
	}
	if ev.GameState == nil {
		return ev, errors.New("relay sent no game state")
	}
	return ev, nil
}
