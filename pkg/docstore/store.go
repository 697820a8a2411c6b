package docstore

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
)

var (
	ErrNotFound = errors.New("document not found")
	ErrClosed   = errors.New("store closed")
)

// Store keeps whole JSON documents by id. Subscribers receive the full
// document after every change, starting with the current one if it exists.
// Concurrent updates are last write wins per field.
type Store interface {
	Get(ctx context.Context, id string) (string, error)
	Subscribe(ctx context.Context, id string) (<-chan string, error)
	Update(ctx context.Context, id string, fields map[string]any) error
	Close() error
}

// Merge sets fields on the top level of the JSON object in body. An empty
// body is an empty object.
func Merge(body string, fields map[string]any) (string, error) {
	doc := map[string]any{}
	if body != "" {
		if err := json.Unmarshal([]byte(body), &doc); err != nil {
			return "", errors.Wrap(err, "decoding stored document")
		}
		if doc == nil {
			doc = map[string]any{}
		}
	}
	for k, v := range fields {
		doc[k] = v
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return "", errors.Wrap(err, "encoding merged document")
	}
	return string(data), nil
}

// follow relays in to a new channel, sending initial first when has is set.
// The returned channel closes when ctx or done ends, or in closes.
func follow(ctx context.Context, done <-chan struct{}, initial string, has bool, in <-chan string, cancel func()) <-chan string {
	out := make(chan string, 1)
	if has {
		out <- initial
	}
	go func() {
		defer close(out)
		defer cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case v, ok := <-in:
				if !ok {
					return
				}
				select {
				case out <- v:
				case <-ctx.Done():
					return
				case <-done:
					return
				}
			}
		}
	}()
	return out
}
