package storage

import (
	"context"
	"fmt"
	"io"
)

// maxImageBytes caps how much image data a single fetch will buffer.
const maxImageBytes = 32 << 20

// ImageFetcher reads artwork image bytes by their storage key. It is the
// bridge between the feature extractor, which wants bytes, and the object
// store, which speaks keys and streams.
type ImageFetcher struct {
	store ObjectStorage
}

func NewImageFetcher(store ObjectStorage) *ImageFetcher {
	return &ImageFetcher{store: store}
}

// Fetch downloads the object at ref and returns its bytes. Objects larger
// than the image cap are rejected rather than buffered.
func (f *ImageFetcher) Fetch(ctx context.Context, ref string) ([]byte, error) {
	body, err := f.store.Download(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("fetch image %s: %w", ref, err)
	}
	defer body.Close()

	data, err := io.ReadAll(io.LimitReader(body, maxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read image %s: %w", ref, err)
	}
	if len(data) > maxImageBytes {
		return nil, fmt.Errorf("image %s exceeds %d byte limit", ref, maxImageBytes)
	}
	return data, nil
}
