package storage

import (
	"context"
	"errors"
)

var ErrStorageDisabled = errors.New("storage: no object store configured")

// NopStorage satisfies Storager when no object store is configured.
// Uploads fail loudly instead of silently dropping data.
type NopStorage struct{}

func NewNopStorage() *NopStorage { return &NopStorage{} }

func (NopStorage) SaveImage(context.Context, string, string, []byte) (string, error) {
	return "", ErrStorageDisabled
}

func (NopStorage) GetFile(context.Context, string, string) ([]byte, error) {
	return nil, ErrStorageDisabled
}

func (NopStorage) GetFileUrl(context.Context, string, string) (string, error) {
	return "", ErrStorageDisabled
}

func (NopStorage) DeleteFile(context.Context, string, string) error {
	return ErrStorageDisabled
}
