package cache

import (
	"context"

	"github.com/ZaguanLabs/chatlai"
)

// Backend is a second-level entry store, typically shared between processes.
// A missing key is reported as (Entry{}, false, nil).
type Backend interface {
	Get(ctx context.Context, key chatlai.Key) (chatlai.Entry, bool, error)
	Put(ctx context.Context, entry chatlai.Entry) error
	Delete(ctx context.Context, key chatlai.Key) error
}
