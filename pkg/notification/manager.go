package notification

import (
	"context"
	"fmt"
	"strings"

	"github.com/nikoksr/notify"
	"github.com/nikoksr/notify/service/telegram"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"lemansstrat/pkg/config"
	"lemansstrat/pkg/model"
	"lemansstrat/pkg/pubsub"
)

const (
	boxCallSubject = "BOX BOX"
	updatesBuffer  = 16
)

// Sender delivers one message; *notify.Notify is one.
type Sender interface {
	Send(ctx context.Context, subject, message string) error
}

// NewTelegramSender builds a notifier posting to the configured chats.
func NewTelegramSender(cfg config.NotifyConfig) (Sender, error) {
	if cfg.TelegramToken == "" {
		return nil, errors.New("notify.telegramToken is required")
	}
	if len(cfg.ChatIDs) == 0 {
		return nil, errors.New("notify.chatIds is required")
	}
	tg, err := telegram.New(cfg.TelegramToken)
	if err != nil {
		return nil, errors.Wrap(err, "creating telegram service")
	}
	tg.AddReceivers(cfg.ChatIDs...)
	return notify.NewWithServices(tg), nil
}

// Manager calls the car in when a session's pit window is about to close.
type Manager struct {
	sender   Sender
	ps       *pubsub.PubSub[model.PlanUpdate]
	warnLaps float64

	// session id -> stint index already called
	called map[string]int
}

func NewManager(sender Sender, ps *pubsub.PubSub[model.PlanUpdate], warnLaps int) *Manager {
	return &Manager{
		sender:   sender,
		ps:       ps,
		warnLaps: float64(warnLaps),
		called:   make(map[string]int),
	}
}

// Start blocks until ctx ends, handling every published plan.
func (m *Manager) Start(ctx context.Context) {
	updates, cancel := m.ps.SubscribeBuffered(pubsub.PubSubAllPlans, updatesBuffer)
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case u, ok := <-updates:
			if !ok {
				return
			}
			m.handle(ctx, u)
		}
	}
}

// handle reports whether a box call went out for u.
func (m *Manager) handle(ctx context.Context, u model.PlanUpdate) bool {
	if u.Err != "" {
		return false
	}
	current, ok := u.Plan.CurrentStint()
	if !ok || current.IsFinal {
		return false
	}
	window := u.Plan.PitWindow
	if !window.Known || window.LapsLeftInTank > m.warnLaps {
		return false
	}
	if idx, done := m.called[u.SessionID]; done && idx == current.Index {
		return false
	}

	msg := BoxCallMessage(u.SessionID, u.Plan, current)
	if err := m.sender.Send(ctx, boxCallSubject, msg); err != nil {
		log.Error().Err(err).Str("session", u.SessionID).Int("stint", current.Index).Msg("box call not sent")
		return false
	}
	m.called[u.SessionID] = current.Index
	log.Info().Str("session", u.SessionID).Int("stint", current.Index).Msg("box call sent")
	return true
}

func BoxCallMessage(sessionID string, plan model.Plan, current model.Stint) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s, %.1f laps left in the tank, box by lap %d.",
		sessionID, current.Driver.Name, plan.PitWindow.LapsLeftInTank, plan.PitWindow.BoxLap)
	if next, ok := plan.NextStint(); ok {
		fmt.Fprintf(&b, "\nNext: %s, %s", next.Driver.Name, next.FuelPlan)
		if next.Note != "" {
			fmt.Fprintf(&b, " (%s)", next.Note)
		}
	}
	return b.String()
}
