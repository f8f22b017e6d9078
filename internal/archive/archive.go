// Package archive keeps the raw plan payload a trip was created from, so a
// trip can be re-materialized or audited after the fact.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"

	"github.com/go-errors/errors"
	"github.com/klauspost/compress/zstd"
)

var ErrNotFound = errors.New("archived plan not found")

type Archive struct {
	backend Backend
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

func New(backend Backend) (*Archive, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, err
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		encoder.Close()
		return nil, err
	}
	return &Archive{
		backend: backend,
		encoder: encoder,
		decoder: decoder,
	}, nil
}

// KeyForTrip returns the archive key used for a trip's plan payload.
func KeyForTrip(tripID string) string {
	return path.Join("trips", tripID+".json.zst")
}

func (a *Archive) Put(ctx context.Context, key string, payload []byte) error {
	compressed := a.encoder.EncodeAll(payload, make([]byte, 0, len(payload)/2))
	err := a.backend.Write(ctx, key, bytes.NewReader(compressed))
	if err != nil {
		return fmt.Errorf("failed to write archive %s: %w", key, err)
	}
	return nil
}

func (a *Archive) Get(ctx context.Context, key string) ([]byte, error) {
	r, err := a.backend.Read(ctx, key)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	compressed, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read archive %s: %w", key, err)
	}
	payload, err := a.decoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress archive %s: %w", key, err)
	}
	return payload, nil
}

func (a *Archive) Delete(ctx context.Context, key string) error {
	return a.backend.Remove(ctx, key)
}

func (a *Archive) Close() error {
	a.encoder.Close()
	a.decoder.Close()
	return a.backend.Close()
}
