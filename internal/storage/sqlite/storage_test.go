package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/dutchscore/internal/model"
)

type StorageSuite struct {
	suite.Suite
	path    string
	storage *Storage
	ctx     context.Context
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.path = filepath.Join(s.T().TempDir(), "dutch.db")
	st, err := Open(s.path)
	s.Require().NoError(err)
	s.storage = st
	s.ctx = context.Background()
}

func (s *StorageSuite) TearDownTest() {
	if s.storage != nil {
		_ = s.storage.Close()
	}
}

func (s *StorageSuite) TestSetAndGet() {
	s.Require().NoError(s.storage.Set(s.ctx, "dutch-game-state", []byte(`{"players":[]}`)))

	value, err := s.storage.Get(s.ctx, "dutch-game-state")
	s.Require().NoError(err)
	s.Equal(`{"players":[]}`, string(value))
}

func (s *StorageSuite) TestUpsert() {
	s.Require().NoError(s.storage.Set(s.ctx, "k", []byte("one")))
	s.Require().NoError(s.storage.Set(s.ctx, "k", []byte("two")))

	value, err := s.storage.Get(s.ctx, "k")
	s.Require().NoError(err)
	s.Equal("two", string(value))
}

func (s *StorageSuite) TestGetMissingKey() {
	_, err := s.storage.Get(s.ctx, "missing")
	s.ErrorIs(err, model.ErrKeyNotFound)
}

func (s *StorageSuite) TestDelete() {
	_ = s.storage.Set(s.ctx, "k", []byte("v"))

	s.Require().NoError(s.storage.Delete(s.ctx, "k"))
	s.Require().NoError(s.storage.Delete(s.ctx, "k"))

	_, err := s.storage.Get(s.ctx, "k")
	s.ErrorIs(err, model.ErrKeyNotFound)
}

func (s *StorageSuite) TestPersistsAcrossReopen() {
	_ = s.storage.Set(s.ctx, "k", []byte("kept"))
	s.Require().NoError(s.storage.Close())

	reopened, err := Open(s.path)
	s.Require().NoError(err)
	s.storage = reopened

	value, err := reopened.Get(s.ctx, "k")
	s.Require().NoError(err)
	s.Equal("kept", string(value))
}

func TestOpenInvalidPath(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing-dir", "nested", "dutch.db"))
	require.Error(t, err)
}
