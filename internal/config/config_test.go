package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func emptyDir(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoadDefaults(t *testing.T) {
	emptyDir(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "windwatch", cfg.App.Name)
	assert.Equal(t, "127.0.0.1:3000", cfg.HTTP.Addr())
	assert.Equal(t, 60*time.Second, cfg.Scheduler.Interval)
	assert.Equal(t, 60*time.Second, cfg.Cache.TTL)
	assert.Equal(t, time.Hour, cfg.Alerting.Cooldown)
	assert.Equal(t, 34.0, cfg.Alerting.StormKt)
	assert.Equal(t, 48.0, cfg.Alerting.StrongStormKt)
	assert.Equal(t, 180, cfg.Window.SeriesLimit)
	assert.Equal(t, "TRABZON LİMANI ANA MENDİREK FENERİ", cfg.Station.Name)
	assert.False(t, cfg.Alerting.Telegram.Configured())
}

func TestLoadLegacyEnv(t *testing.T) {
	emptyDir(t)
	t.Setenv("CHECK_INTERVAL_MS", "30000")
	t.Setenv("ALERT_COOLDOWN_MS", "600000")
	t.Setenv("CACHE_MS", "15000")
	t.Setenv("STORM_KT", "30")
	t.Setenv("STRONG_STORM_KT", "40")
	t.Setenv("PORT", "8081")
	t.Setenv("TELEGRAM_BOT_TOKEN", "tok")
	t.Setenv("TELEGRAM_CHAT_ID", "42")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.Scheduler.Interval)
	assert.Equal(t, 10*time.Minute, cfg.Alerting.Cooldown)
	assert.Equal(t, 15*time.Second, cfg.Cache.TTL)
	assert.Equal(t, 30.0, cfg.Alerting.StormKt)
	assert.Equal(t, 40.0, cfg.Alerting.StrongStormKt)
	assert.Equal(t, 8081, cfg.HTTP.Port)
	assert.True(t, cfg.Alerting.Telegram.Configured())
}

func TestPrefixedEnvWinsOverLegacy(t *testing.T) {
	emptyDir(t)
	t.Setenv("STORM_KT", "30")
	t.Setenv("WINDWATCH_ALERTING_STORM_KT", "35")
	t.Setenv("WINDWATCH_SCHEDULER_INTERVAL", "2m")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 35.0, cfg.Alerting.StormKt)
	assert.Equal(t, 2*time.Minute, cfg.Scheduler.Interval)
}

func TestLoadFile(t *testing.T) {
	emptyDir(t)
	path := filepath.Join(t.TempDir(), "windwatch.yaml")
	content := `
station:
  name: RIZE LIMANI
  timezone: UTC
alerting:
  storm_kt: 20
  strong_storm_kt: 30
  cooldown: 15m
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "RIZE LIMANI", cfg.Station.Name)
	assert.Equal(t, 15*time.Minute, cfg.Alerting.Cooldown)

	loc, err := cfg.Station.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}

func TestLoadFileIntegerDurationsAreMilliseconds(t *testing.T) {
	emptyDir(t)
	path := filepath.Join(t.TempDir(), "windwatch.yaml")
	content := `
scheduler:
  interval: 60000
cache:
  ttl: 30000
alerting:
  cooldown: 3600000
  notify_timeout: "2s"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, time.Minute, cfg.Scheduler.Interval)
	assert.Equal(t, 30*time.Second, cfg.Cache.TTL)
	assert.Equal(t, time.Hour, cfg.Alerting.Cooldown)
	assert.Equal(t, 2*time.Second, cfg.Alerting.NotifyTimeout)
}

func TestMillisecondsHookLeavesDurationsAlone(t *testing.T) {
	hook := millisecondsHookFunc()
	durationType := reflect.TypeOf(time.Duration(0))

	out, err := hook(durationType, durationType, 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, out)

	out, err = hook(reflect.TypeOf(uint32(0)), durationType, uint32(250))
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, out)

	out, err = hook(reflect.TypeOf(""), durationType, "90s")
	require.NoError(t, err)
	assert.Equal(t, "90s", out, "non-integer strings fall through to the duration parser")
}

func TestValidateRejectsInvertedThresholds(t *testing.T) {
	emptyDir(t)
	t.Setenv("STORM_KT", "50")
	t.Setenv("STRONG_STORM_KT", "40")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "StrongStormKt")
}

func TestValidateRejectsZeroInterval(t *testing.T) {
	emptyDir(t)
	t.Setenv("WINDWATCH_SCHEDULER_INTERVAL", "0s")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Interval")
}

func TestValidateRejectsUnknownTimezone(t *testing.T) {
	emptyDir(t)
	t.Setenv("WINDWATCH_STATION_TIMEZONE", "Mars/Olympus")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "station.timezone")
}
