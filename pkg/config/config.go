package config

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"lemansstrat/pkg/model"
)

const (
	ConfigFileName = "lemansstrat.cfg.json"
	EnvPrefix      = "STRAT"

	StoreMemory    = "memory"
	StoreSQLite    = "sqlite"
	StoreWebSocket = "websocket"
)

type StoreConfig struct {
	Type         string
	SQLitePath   string
	WebSocketURL string
}

type StrategyConfig struct {
	MaxStints        int
	SafetyMarginLaps float64
}

type NotifyConfig struct {
	Enabled        bool
	Commands       bool
	TelegramToken  string
	ChatIDs        []int64
	BoxWarningLaps int
}

type WebserverConfig struct {
	Address string
}

func setDefaults() {
	viper.SetDefault("logLevel", "info")

	viper.SetDefault("webserver.address", ":8080")

	viper.SetDefault("store.type", StoreSQLite)
	viper.SetDefault("store.sqlite.path", "./lemansstrat.db")
	viper.SetDefault("store.websocket.url", "ws://localhost:8080/ws/docs")

	viper.SetDefault("strategy.maxStints", 200)
	viper.SetDefault("strategy.safetyMarginLaps", 0.2)

	viper.SetDefault("notify.enabled", false)
	viper.SetDefault("notify.commands", false)
	viper.SetDefault("notify.telegramToken", "")
	viper.SetDefault("notify.chatIds", []string{})
	viper.SetDefault("notify.boxWarningLaps", 2)

	viper.SetDefault("race.fuelConsumptionPerLap", 3.5)
	viper.SetDefault("race.energyConsumptionPerLap", 9.0)
	viper.SetDefault("race.tankCapacity", 100.0)
	viper.SetDefault("race.usesVirtualEnergy", false)
	viper.SetDefault("race.durationSeconds", 86400.0)
	viper.SetDefault("race.defaultLapTimeSeconds", 210.0)
}

// Load sets defaults, binds STRAT_* environment variables and reads the
// optional config file from configDir.
func Load(configDir string) error {
	setDefaults()

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetConfigName(ConfigFileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return errors.Wrap(err, "error reading config file")
	}
	return nil
}

func GetString(key string) string {
	return viper.GetString(key)
}

func GetStoreConfig() StoreConfig {
	return StoreConfig{
		Type:         strings.ToLower(viper.GetString("store.type")),
		SQLitePath:   viper.GetString("store.sqlite.path"),
		WebSocketURL: viper.GetString("store.websocket.url"),
	}
}

func GetStrategyConfig() StrategyConfig {
	return StrategyConfig{
		MaxStints:        viper.GetInt("strategy.maxStints"),
		SafetyMarginLaps: viper.GetFloat64("strategy.safetyMarginLaps"),
	}
}

func GetNotifyConfig() (NotifyConfig, error) {
	cfg := NotifyConfig{
		Enabled:        viper.GetBool("notify.enabled"),
		Commands:       viper.GetBool("notify.commands"),
		TelegramToken:  viper.GetString("notify.telegramToken"),
		BoxWarningLaps: viper.GetInt("notify.boxWarningLaps"),
	}
	for _, item := range viper.GetStringSlice("notify.chatIds") {
		for _, raw := range strings.Split(item, ",") {
			raw = strings.TrimSpace(raw)
			if raw == "" {
				continue
			}
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return cfg, errors.Wrapf(err, "invalid chat id %q", raw)
			}
			cfg.ChatIDs = append(cfg.ChatIDs, id)
		}
	}
	return cfg, nil
}

func GetWebserverConfig() WebserverConfig {
	return WebserverConfig{
		Address: viper.GetString("webserver.address"),
	}
}

// GetRaceDefaults is the configuration new session documents start with.
func GetRaceDefaults() model.RaceConfiguration {
	return model.RaceConfiguration{
		FuelConsumptionPerLap:   viper.GetFloat64("race.fuelConsumptionPerLap"),
		EnergyConsumptionPerLap: viper.GetFloat64("race.energyConsumptionPerLap"),
		TankCapacity:            viper.GetFloat64("race.tankCapacity"),
		UsesVirtualEnergy:       viper.GetBool("race.usesVirtualEnergy"),
		RaceDurationSeconds:     viper.GetFloat64("race.durationSeconds"),
		DefaultLapTimeSeconds:   viper.GetFloat64("race.defaultLapTimeSeconds"),
	}
}
