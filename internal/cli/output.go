package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mcoot/dutchscore/internal/api/response"
	"github.com/mcoot/dutchscore/internal/model"
	"github.com/mcoot/dutchscore/internal/services/integrity"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	out    io.Writer
	errOut io.Writer
}

// NewOutput creates a new Output formatter
func NewOutput(format string, out, errOut io.Writer) *Output {
	return &Output{format: format, out: out, errOut: errOut}
}

func newOutput(cmd *cobra.Command) *Output {
	return NewOutput(cfg.Output, cmd.OutOrStdout(), cmd.ErrOrStderr())
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	if o.format == "json" {
		errData := map[string]any{
			"error": map[string]string{
				"message": err.Error(),
			},
		}
		data, _ := json.Marshal(errData)
		_, _ = fmt.Fprintln(o.errOut, string(data))
	} else {
		_, _ = fmt.Fprintf(o.errOut, "Error: %s\n", err)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		_, _ = fmt.Fprintln(o.out, string(data))
	} else {
		_, _ = fmt.Fprintln(o.out, msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.out)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case model.GameState:
		o.printGameState(v)
	case integrity.Audit:
		o.printAudit(v)
	case response.Room:
		o.printRoom(v)
	case response.Health:
		o.printHealth(v)
	case relayEvent:
		o.printEvent(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

func (o *Output) printGameState(g model.GameState) {
	if g.GameID != nil {
		_, _ = fmt.Fprintf(o.out, "Game: %s\n", *g.GameID)
	}
	_, _ = fmt.Fprintf(o.out, "State: %s\n", g.Phase())
	_, _ = fmt.Fprintf(o.out, "Score Limit: %d\n", g.ScoreLimit)
	_, _ = fmt.Fprintf(o.out, "Rounds: %d\n", g.RoundCount())

	if len(g.Players) == 0 {
		return
	}

	_, _ = fmt.Fprintln(o.out)
	tw := tabwriter.NewWriter(o.out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "PLAYER\tTOTAL\tROUNDS\tDUTCH")
	for _, p := range g.Players {
		dutchCount := 0
		if p.Stats != nil {
			dutchCount = p.Stats.DutchCount
		}
		_, _ = fmt.Fprintf(tw, "%s %s\t%g\t%s\t%d\n", p.Emoji, p.Name, p.TotalScore, formatRounds(p.Rounds), dutchCount)
	}
	_ = tw.Flush()

	if leader := g.Leader(); leader != nil && g.RoundCount() > 0 {
		label := "Leader"
		if g.IsGameOver {
			label = "Winner"
		}
		_, _ = fmt.Fprintf(o.out, "\n%s: %s (%g points)\n", label, leader.Name, leader.TotalScore)
	}
}

func formatRounds(rounds []model.Round) string {
	if len(rounds) == 0 {
		return "-"
	}
	parts := make([]string, len(rounds))
	for i, r := range rounds {
		parts[i] = fmt.Sprintf("%g", r.Score)
		if r.IsDutch {
			parts[i] += "*"
		}
	}
	return strings.Join(parts, " ")
}

func (o *Output) printAudit(a integrity.Audit) {
	if a.IsValid {
		_, _ = fmt.Fprintln(o.out, "All totals match their rounds")
		return
	}
	_, _ = fmt.Fprintf(o.out, "Found %d problem(s):\n", len(a.Errors))
	for _, e := range a.Errors {
		_, _ = fmt.Fprintf(o.out, "  - %s\n", e)
	}
	for _, c := range a.Corrections {
		_, _ = fmt.Fprintf(o.out, "  %s: %g should be %g\n", c.PlayerName, c.From, c.To)
	}
}

func (o *Output) printRoom(r response.Room) {
	_, _ = fmt.Fprintf(o.out, "Room: %s\n", r.Code)
	_, _ = fmt.Fprintf(o.out, "Status: %s\n", r.Status)
	if r.HostID != "" {
		_, _ = fmt.Fprintf(o.out, "Host: %s\n", r.HostID)
	}
	o.printGameState(r.GameState)
}

func (o *Output) printHealth(h response.Health) {
	_, _ = fmt.Fprintf(o.out, "Status: %s\n", h.Status)
	_, _ = fmt.Fprintf(o.out, "Rooms: %d\n", h.Rooms)
	_, _ = fmt.Fprintf(o.out, "Hubs: %d\n", h.Hubs)
	_, _ = fmt.Fprintf(o.out, "Clients: %d\n", h.Clients)
}

func (o *Output) printEvent(e relayEvent) {
	timestamp := e.Time.Format("2006-01-02 15:04:05")
	switch {
	case e.Type == model.MsgError:
		_, _ = fmt.Fprintf(o.out, "[%s] %s: %s\n", timestamp, e.Type, e.Message)
	case e.Player != nil:
		_, _ = fmt.Fprintf(o.out, "[%s] %s: %s\n", timestamp, e.Type, e.Player.Name)
	case e.RoomCode != "":
		_, _ = fmt.Fprintf(o.out, "[%s] %s: room %s\n", timestamp, e.Type, e.RoomCode)
	default:
		_, _ = fmt.Fprintf(o.out, "[%s] %s\n", timestamp, e.Type)
	}

	if e.GameState != nil {
		o.printGameState(*e.GameState)
	}
}
