package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/dutchscore/internal/api"
	"github.com/mcoot/dutchscore/internal/api/response"
	"github.com/mcoot/dutchscore/internal/factory"
	"github.com/mcoot/dutchscore/internal/model"
	"github.com/mcoot/dutchscore/internal/services/integrity"
	"github.com/mcoot/dutchscore/internal/testutil"
)

// run executes the CLI in-process and captures its output
func run(args ...string) (stdout, stderr string, err error) {
	var out, errOut bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err = cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

type LocalSuite struct {
	suite.Suite
	dbPath string
}

func TestLocalSuite(t *testing.T) {
	suite.Run(t, new(LocalSuite))
}

func (s *LocalSuite) SetupTest() {
	s.dbPath = filepath.Join(s.T().TempDir(), "data", "dutch.db")
}

func (s *LocalSuite) run(args ...string) (string, string, error) {
	return run(append([]string{"--storage", "sqlite", "--db", s.dbPath, "-o", "json"}, args...)...)
}

func (s *LocalSuite) state(args ...string) model.GameState {
	s.T().Helper()
	out, stderr, err := s.run(args...)
	s.Require().NoError(err, "stderr: %s", stderr)
	var state model.GameState
	s.Require().NoError(json.Unmarshal([]byte(out), &state), "output: %s", out)
	return state
}

func (s *LocalSuite) TestGameAcrossInvocations() {
	state := s.state("new", "Alice", "Bob", "--limit", "30")
	s.Require().Len(state.Players, 2)
	s.Equal(30, state.ScoreLimit)
	s.Require().NotNil(state.GameID)

	state = s.state("round", "10", "3", "--dutch", "bob")
	s.Equal(10.0, state.Players[0].TotalScore)
	s.Equal(3.0, state.Players[1].TotalScore)
	s.Equal(state.Players[1].ID, state.RoundHistory[0].DutchPlayerID)

	state = s.state("round", "25", "4")
	s.True(state.IsGameOver)

	_, _, err := s.run("round", "1", "1")
	s.Require().Error(err)
	s.Contains(err.Error(), "game is over")

	state = s.state("undo")
	s.False(state.IsGameOver)
	s.Len(state.RoundHistory, 1)

	state = s.state("show")
	s.Len(state.RoundHistory, 1)
	s.Equal(30, state.ScoreLimit)

	out, _, err := s.run("audit")
	s.Require().NoError(err)
	var audit integrity.Audit
	s.Require().NoError(json.Unmarshal([]byte(out), &audit))
	s.True(audit.IsValid)

	out, _, err = s.run("reset")
	s.Require().NoError(err)
	s.Contains(out, "Game reset")

	_, _, err = s.run("show")
	s.ErrorIs(err, model.ErrNoGame)
}

func (s *LocalSuite) TestNewKeepsPreviousLimit() {
	s.state("new", "Alice", "Bob", "--limit", "60")
	state := s.state("new", "Carol", "Dan")
	s.Equal(60, state.ScoreLimit)
	s.Equal("Carol", state.Players[0].Name)
	s.Empty(state.RoundHistory)
}

func (s *LocalSuite) TestRejectedRoundLeavesGameUnchanged() {
	s.state("new", "Alice", "Bob")

	_, _, err := s.run("round", "5", "9", "--dutch", "Bob")
	s.Require().Error(err)
	s.Contains(err.Error(), "lowest score")

	_, _, err = s.run("round", "5")
	s.Require().Error(err)
	s.Contains(err.Error(), "ncorrect score count")

	_, _, err = s.run("round", "five", "2")
	s.ErrorIs(err, model.ErrInvalidScores)

	_, _, err = s.run("round", "1", "2", "--dutch", "Zed")
	s.Require().Error(err)

	s.Empty(s.state("show").RoundHistory)
}

func (s *LocalSuite) TestCommandsNeedAGame() {
	for _, args := range [][]string{{"show"}, {"round", "1", "2"}, {"undo"}, {"audit"}, {"limit", "50"}} {
		_, _, err := s.run(args...)
		s.ErrorIs(err, model.ErrNoGame, "%v", args)
	}
}

func (s *LocalSuite) TestNewValidatesNames() {
	_, _, err := s.run("new", "Alice", "  ")
	s.Require().Error(err)

	_, _, err = s.run("new", "Alice")
	s.Error(err)
}

func (s *LocalSuite) TestRepeatedNamesNeedAnID() {
	_, _, err := s.run("new", "Sam", "sam")
	s.Require().NoError(err)

	_, _, err = s.run("round", "--dutch", "sam", "0", "6")
	s.Require().Error(err)
	s.Contains(err.Error(), "use an id")

	state := s.state("show")
	s.Empty(state.RoundHistory)

	_, _, err = s.run("round", "--dutch", string(state.Players[0].ID), "0", "6")
	s.Require().NoError(err)
	s.True(s.state("show").Players[0].Rounds[0].IsDutch)
}

func (s *LocalSuite) TestLimit() {
	s.state("new", "Alice", "Bob")
	s.state("round", "20", "5")

	state := s.state("limit", "20")
	s.True(state.IsGameOver)

	_, _, err := s.run("limit", "0")
	s.ErrorIs(err, model.ErrInvalidScoreLimit)
}

func (s *LocalSuite) TestTextOutput() {
	_, _, err := run("--db", s.dbPath, "new", "Alice", "Bob")
	s.Require().NoError(err)

	out, stderr, err := run("--db", s.dbPath, "round", "12", "0", "--dutch", "Bob")
	s.Require().NoError(err)
	s.Contains(stderr, "[ok] Round 1 added")
	s.Contains(out, "PLAYER")
	s.Contains(out, "0*")
	s.Contains(out, "Leader: Bob (0 points)")
}

func TestInvalidOutputFormat(t *testing.T) {
	_, _, err := run("-o", "yaml", "health")
	require.Error(t, err)
}

func TestResolvePlayer(t *testing.T) {
	players := []model.Player{
		{ID: "p1", Name: "Alice"},
		{ID: "p2", Name: "Bob"},
		{ID: "p3", Name: "Sam"},
		{ID: "p4", Name: "sam"},
	}

	tests := []struct {
		name    string
		ref     string
		want    model.PlayerID
		wantErr bool
	}{
		{name: "empty", ref: "", want: ""},
		{name: "by id", ref: "p2", want: "p2"},
		{name: "by name", ref: "alice", want: "p1"},
		{name: "trimmed", ref: "  Bob ", want: "p2"},
		{name: "unknown", ref: "Carol", wantErr: true},
		{name: "ambiguous name", ref: "SAM", wantErr: true},
		{name: "ambiguous name by id", ref: "p4", want: "p4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolvePlayer(players, tt.ref)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRelayURL(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "http://localhost:8080", want: "ws://localhost:8080/ws"},
		{in: "https://dutch.example.com/", want: "wss://dutch.example.com/ws"},
		{in: "http://host/base", want: "ws://host/base/ws"},
		{in: "ftp://host", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := relayURL(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

type OnlineSuite struct {
	suite.Suite
	app    *factory.TestApp
	server *httptest.Server
}

func TestOnlineSuite(t *testing.T) {
	suite.Run(t, new(OnlineSuite))
}

func (s *OnlineSuite) SetupTest() {
	s.app = factory.NewTestApp()
	s.server = httptest.NewServer(api.NewRouter(api.RouterConfig{
		Logger: testutil.NopLogger(),
		Relay:  s.app.Relay,
	}))
}

func (s *OnlineSuite) TearDownTest() {
	s.app.Relay.Close()
	s.server.Close()
}

func (s *OnlineSuite) run(args ...string) (string, error) {
	out, _, err := run(append([]string{"--server", s.server.URL, "-o", "json"}, args...)...)
	return out, err
}

func (s *OnlineSuite) event(args ...string) relayEvent {
	s.T().Helper()
	out, err := s.run(args...)
	s.Require().NoError(err)
	var ev relayEvent
	s.Require().NoError(json.Unmarshal([]byte(out), &ev), "output: %s", out)
	return ev
}

func (s *OnlineSuite) TestCreatePlayAndInspect() {
	s.app.MockRandom.QueueString("ROOM23")

	created := s.event("online", "create", "--name", "Alice", "--user", "u1", "--player", "Bob", "--limit", "40")
	s.Equal(model.MsgGameCreated, created.Type)
	s.Equal(model.RoomCode("ROOM23"), created.RoomCode)
	s.Require().NotNil(created.GameState)
	s.Len(created.GameState.Players, 2)
	s.Equal(40, created.GameState.ScoreLimit)

	added := s.event("online", "round", "ROOM23", "15", "2", "--dutch", "bob")
	s.Equal(model.MsgRoundAdded, added.Type)
	s.Require().NotNil(added.Round)
	s.Equal([]float64{15, 2}, added.Round.Scores)
	s.Equal(added.GameState.Players[1].ID, added.Round.DutchPlayerID)

	out, err := s.run("room", "room23")
	s.Require().NoError(err)
	var room response.Room
	s.Require().NoError(json.Unmarshal([]byte(out), &room))
	s.Equal("ROOM23", room.Code)
	s.Equal(1, room.Rounds)
	s.Require().NotNil(room.Leader)

	undone := s.event("online", "undo", "ROOM23")
	s.Equal(model.MsgRoundUndone, undone.Type)
	s.Empty(undone.GameState.RoundHistory)

	joined := s.event("online", "join", "ROOM23", "--name", "Carol", "--user", "u3")
	s.Equal(model.MsgGameJoined, joined.Type)
	s.Len(joined.GameState.Players, 3)

	rejoined := s.event("online", "join", "ROOM23", "--user", "u3")
	s.Len(rejoined.GameState.Players, 3)
}

func (s *OnlineSuite) TestRelayErrorsBecomeCommandErrors() {
	_, err := s.run("online", "undo", "NOPE99")
	s.Require().Error(err)
	s.Contains(err.Error(), "game not found")

	_, err = s.run("room", "NOPE99")
	s.Require().Error(err)
	s.Contains(err.Error(), "ROOM_NOT_FOUND")

	_, err = s.run("online", "round", "NOPE99", "1", "--dutch", "bob")
	s.Require().Error(err)
}

func (s *OnlineSuite) TestHealth() {
	out, err := s.run("health")
	s.Require().NoError(err)
	var health response.Health
	s.Require().NoError(json.Unmarshal([]byte(out), &health))
	s.Equal("ok", health.Status)
}
