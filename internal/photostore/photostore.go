package photostore

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrNotFound is returned by PhotoStore Get and Delete for unknown keys.
var ErrNotFound = errors.New("photo not found")

// PhotoStore keeps uploaded image bytes under opaque storage keys.
type PhotoStore interface {
	Save(ctx context.Context, prefix, mimeType string, r io.Reader) (storageKey string, err error)
	Get(ctx context.Context, storageKey string) (io.ReadCloser, string, error)
	Delete(ctx context.Context, storageKey string) error
}

// Publisher turns an uploaded image into the URL recorded on a gallery item,
// and releases whatever backs that URL when the item goes away.
type Publisher interface {
	Publish(ctx context.Context, mimeType string, data []byte) (imageURL string, err error)
	Release(ctx context.Context, imageURL string) error
}

// InlinePublisher embeds the image in the URL itself as a base64 data URI.
type InlinePublisher struct{}

func (InlinePublisher) Publish(_ context.Context, mimeType string, data []byte) (string, error) {
	return DataURI(mimeType, data), nil
}

func (InlinePublisher) Release(context.Context, string) error { return nil }

// DataURI encodes data as data:<mime>;base64,<payload>.
func DataURI(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// StorePublisher saves images in a PhotoStore and serves them under
// URLPrefix followed by the storage key.
type StorePublisher struct {
	Store     PhotoStore
	URLPrefix string
}

func (p StorePublisher) Publish(ctx context.Context, mimeType string, data []byte) (string, error) {
	key, err := p.Store.Save(ctx, "gallery", mimeType, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to save image: %w", err)
	}
	return p.URLPrefix + key, nil
}

// Release deletes the stored file when imageURL points into this store.
// External URLs, data URIs and files already gone are left alone.
func (p StorePublisher) Release(ctx context.Context, imageURL string) error {
	key, ok := strings.CutPrefix(imageURL, p.URLPrefix)
	if !ok || key == "" {
		return nil
	}
	if err := p.Store.Delete(ctx, key); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	return nil
}
