package docstore

import (
	"context"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Hub serves a Store to WebSocketStore clients.
type Hub struct {
	store    Store
	upgrader websocket.Upgrader
}

func NewHub(store Store) *Hub {
	return &Hub{
		store: store,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("doc hub upgrade failed")
		return
	}
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var writeMu sync.Mutex
	write := func(m Message) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return c.WriteJSON(m)
	}

	subscribed := map[string]bool{}
	for {
		var m Message
		if err := c.ReadJSON(&m); err != nil {
			log.Debug().Err(err).Msg("doc hub client gone")
			return
		}
		switch m.MessageType {
		case mtSubscribe:
			if subscribed[m.Doc] {
				continue
			}
			subscribed[m.Doc] = true
			if err := h.subscribe(ctx, m.Doc, write); err != nil {
				log.Error().Err(err).Str("doc", m.Doc).Msg("doc hub subscribe failed")
				return
			}
		case mtUpdate:
			if err := h.store.Update(ctx, m.Doc, m.Fields); err != nil {
				log.Error().Err(err).Str("doc", m.Doc).Msg("doc hub update failed")
			}
		default:
			log.Warn().Str("type", m.MessageType).Msg("doc hub unknown message")
		}
	}
}

func (h *Hub) subscribe(ctx context.Context, doc string, write func(Message) error) error {
	_, err := h.store.Get(ctx, doc)
	if errors.Is(err, ErrNotFound) {
		if err := write(Message{MessageType: mtMissing, Doc: doc}); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}
	ch, err := h.store.Subscribe(ctx, doc)
	if err != nil {
		return err
	}
	go func() {
		for body := range ch {
			if err := write(Message{MessageType: mtSnapshot, Doc: doc, Body: body}); err != nil {
				return
			}
		}
	}()
	return nil
}
