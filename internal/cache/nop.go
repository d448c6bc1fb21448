package cache

import (
	"context"
	"time"
)

// NopCache satisfies Cacher when no Redis instance is configured.
type NopCache struct{}

func NewNopCache() *NopCache { return &NopCache{} }

func (NopCache) Get(context.Context, string) (string, bool, error) {
	return "", false, nil
}

func (NopCache) Set(context.Context, string, string, time.Duration) error {
	return nil
}

func (NopCache) Delete(context.Context, string) error {
	return nil
}

func (NopCache) Ping(context.Context) error {
	return nil
}

func (NopCache) Close() error {
	return nil
}

func (NopCache) AddImageNameToTempList(context.Context, string) error {
	return nil
}

func (NopCache) RemoveImageNameFromTempList(context.Context, string) error {
	return nil
}
