package webserver

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"lemansstrat/pkg/model"
	"lemansstrat/pkg/pubsub"
)

const writeWait = 10 * time.Second

// streamPlan pushes the session's plan, and every later one, to a websocket
// client until it disconnects.
func (m *Manager) streamPlan(w http.ResponseWriter, r *http.Request) {
	s, err := m.session(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	c, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("plan stream upgrade failed")
		return
	}
	defer c.Close()

	updates, cancel := m.races.PubSub().Subscribe(pubsub.PubSubPlanPreffix + s.ID())
	defer cancel()

	// reads only to notice the client going away
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	plan, err := s.Plan()
	first := model.PlanUpdate{SessionID: s.ID(), Plan: plan}
	if err != nil {
		first.Err = err.Error()
	}
	if err := send(c, first); err != nil {
		return
	}

	for {
		select {
		case <-gone:
			return
		case u, ok := <-updates:
			if !ok {
				return
			}
			if err := send(c, u); err != nil {
				log.Debug().Err(err).Str("session", s.ID()).Msg("plan stream closed")
				return
			}
		}
	}
}

func send(c *websocket.Conn, u model.PlanUpdate) error {
	_ = c.SetWriteDeadline(time.Now().Add(writeWait))
	return c.WriteJSON(u)
}
