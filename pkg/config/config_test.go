package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(body), 0644))
	return dir
}

func TestLoad_DefaultValues(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(writeConfig(t, `{}`)))

	assert.Equal(t, "info", GetString("logLevel"))
	assert.Equal(t, ":8080", GetWebserverConfig().Address)

	sc := GetStoreConfig()
	assert.Equal(t, StoreSQLite, sc.Type)
	assert.Equal(t, "./lemansstrat.db", sc.SQLitePath)

	st := GetStrategyConfig()
	assert.Equal(t, 200, st.MaxStints)
	assert.Equal(t, 0.2, st.SafetyMarginLaps)

	nc, err := GetNotifyConfig()
	require.NoError(t, err)
	assert.False(t, nc.Enabled)
	assert.False(t, nc.Commands)
	assert.Empty(t, nc.ChatIDs)
	assert.Equal(t, 2, nc.BoxWarningLaps)

	race := GetRaceDefaults()
	assert.Equal(t, 3.5, race.FuelConsumptionPerLap)
	assert.Equal(t, 100.0, race.TankCapacity)
	assert.Equal(t, 86400.0, race.RaceDurationSeconds)
	assert.Equal(t, 210.0, race.DefaultLapTimeSeconds)
}

func TestLoad_WithValidConfigFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := writeConfig(t, `{
		"logLevel": "debug",
		"store": { "type": "Memory" },
		"strategy": { "maxStints": 50, "safetyMarginLaps": 0.5 },
		"notify": { "enabled": true, "commands": true, "chatIds": [12345, 67890] },
		"race": { "usesVirtualEnergy": true, "tankCapacity": 90 }
	}`)
	require.NoError(t, Load(dir))

	assert.Equal(t, "debug", GetString("logLevel"))
	assert.Equal(t, StoreMemory, GetStoreConfig().Type)
	assert.Equal(t, StrategyConfig{MaxStints: 50, SafetyMarginLaps: 0.5}, GetStrategyConfig())

	nc, err := GetNotifyConfig()
	require.NoError(t, err)
	assert.True(t, nc.Enabled)
	assert.True(t, nc.Commands)
	assert.Equal(t, []int64{12345, 67890}, nc.ChatIDs)

	race := GetRaceDefaults()
	assert.True(t, race.UsesVirtualEnergy)
	assert.Equal(t, 90.0, race.TankCapacity)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(t.TempDir()))
	assert.Equal(t, StoreSQLite, GetStoreConfig().Type)
}

func TestLoad_InvalidFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	err := Load(writeConfig(t, `{"logLevel": `))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestLoad_EnvironmentOverride(t *testing.T) {
	t.Cleanup(viper.Reset)
	t.Setenv("STRAT_WEBSERVER_ADDRESS", ":9999")
	t.Setenv("STRAT_NOTIFY_CHATIDS", "1,2")

	require.NoError(t, Load(t.TempDir()))

	assert.Equal(t, ":9999", GetWebserverConfig().Address)
	nc, err := GetNotifyConfig()
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, nc.ChatIDs)
}

func TestGetNotifyConfig_InvalidChatID(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("notify.chatIds", []string{"abc"})

	_, err := GetNotifyConfig()
	require.Error(t, err)
}
