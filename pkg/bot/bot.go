package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"lemansstrat/pkg/race"
	"lemansstrat/pkg/render"
)

const (
	cmdHelp     = "help"
	cmdStart    = "start"
	cmdSessions = "sessions"
	cmdPlan     = "plan"
	cmdPit      = "pit"
	cmdUndo     = "undo"

	helpText = `/sessions - running sessions
/plan <session> - stint plan
/pit <session> - confirm the pit stop
/undo <session> - undo the last pit stop`
)

// Messenger is the part of *tgbotapi.BotAPI the bot uses.
type Messenger interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Bot answers chat commands about the sessions of a race manager.
type Bot struct {
	api   Messenger
	races *race.Manager
}

func New(api Messenger, races *race.Manager) *Bot {
	return &Bot{api: api, races: races}
}

// Run handles updates until ctx ends or the channel closes.
func (b *Bot) Run(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.Message == nil || !update.Message.IsCommand() {
		return
	}
	text := b.reply(ctx, update.Message.Command(), strings.TrimSpace(update.Message.CommandArguments()))

	msg := tgbotapi.NewMessage(update.Message.Chat.ID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.api.Send(msg); err != nil {
		log.Error().Err(err).Int64("chat", update.Message.Chat.ID).Msg("bot reply failed")
	}
}

func (b *Bot) reply(ctx context.Context, command, args string) string {
	switch command {
	case cmdHelp, cmdStart:
		return helpText
	case cmdSessions:
		ids := b.races.IDs()
		if len(ids) == 0 {
			return "No sessions running"
		}
		return escape(strings.Join(ids, "\n"))
	case cmdPlan, cmdPit, cmdUndo:
		if args == "" {
			return fmt.Sprintf("Usage: /%s <session>", command)
		}
	default:
		return "Unknown command\n" + helpText
	}

	s, ok := b.races.Lookup(args)
	if !ok {
		return escape(fmt.Sprintf("Session %q is not running", args))
	}

	var err error
	switch command {
	case cmdPit:
		_, err = s.ConfirmPit(ctx)
	case cmdUndo:
		_, err = s.UndoPit(ctx)
	}
	if err != nil {
		return escape(fmt.Sprintf("%s: %s", args, err))
	}

	plan, err := s.Plan()
	if err != nil {
		return escape(fmt.Sprintf("%s: %s", args, err))
	}
	return fmt.Sprintf("*%s*\n```\n%s%s```", escape(args), render.Summary(plan, s.State()), render.CompactTable(plan))
}

// escape makes user supplied text safe for a Markdown reply.
func escape(text string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, text)
}
