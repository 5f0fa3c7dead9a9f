package storage

import "context"

//go:generate mockgen -package=mocks -destination=mocks/mock_storage.go github.com/mcoot/dutchscore/internal/storage Storage

// Storage is the key/value medium the persistence adapter writes game state
// into. Get returns model.ErrKeyNotFound for a missing key; Delete of a
// missing key is not an error.
type Storage interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}
