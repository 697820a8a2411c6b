package main

import (
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"lemansstrat/pkg/bot"
	"lemansstrat/pkg/config"
	"lemansstrat/pkg/docstore"
	"lemansstrat/pkg/notification"
	"lemansstrat/pkg/race"
	"lemansstrat/pkg/strategy"
	"lemansstrat/pkg/webserver"
)

type serveOptions struct {
	sessions []string
}

func newServeCommand(_ *rootOptions) *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the planner API, the plan streams and the document hub",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}
	cmd.Flags().StringSliceVar(&opts.sessions, "session", nil, "session ids to open at startup")

	return cmd
}

func newEngine() *strategy.Engine {
	sc := config.GetStrategyConfig()
	return strategy.New(
		strategy.WithMaxStints(sc.MaxStints),
		strategy.WithSafetyMarginLaps(sc.SafetyMarginLaps),
	)
}

func runServe(cmd *cobra.Command, opts *serveOptions) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := docstore.NewFromConfig(config.GetStoreConfig())
	if err != nil {
		return err
	}
	defer store.Close()

	races := race.NewManager(store, newEngine(), config.GetRaceDefaults())
	defer races.Close()

	for _, id := range opts.sessions {
		if _, err := races.Open(ctx, id); err != nil {
			return err
		}
	}

	nc, err := config.GetNotifyConfig()
	if err != nil {
		return err
	}
	if nc.Enabled {
		sender, err := notification.NewTelegramSender(nc)
		if err != nil {
			return err
		}
		go notification.NewManager(sender, races.PubSub(), nc.BoxWarningLaps).Start(ctx)
		log.Info().Int("chats", len(nc.ChatIDs)).Msg("box calls enabled")
	}
	if nc.Commands {
		api, err := tgbotapi.NewBotAPI(nc.TelegramToken)
		if err != nil {
			return errors.Wrap(err, "connecting telegram bot")
		}
		u := tgbotapi.NewUpdate(0)
		u.Timeout = 60
		updates := api.GetUpdatesChan(u)
		defer api.StopReceivingUpdates()
		go bot.New(api, races).Run(ctx, updates)
		log.Info().Str("bot", api.Self.UserName).Msg("chat commands enabled")
	}

	web := webserver.NewManager(races, store)
	for _, route := range web.Routes() {
		log.Debug().Str("route", route).Msg("route registered")
	}
	return web.Serve(ctx, config.GetWebserverConfig().Address)
}
