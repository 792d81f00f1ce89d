package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/m3rciful/facilitybot/core/bootstrap"
	coredatabase "github.com/m3rciful/facilitybot/core/database"
	coretelegram "github.com/m3rciful/facilitybot/core/telegram"
	"github.com/m3rciful/facilitybot/internal/domain"
	"github.com/m3rciful/facilitybot/internal/storage"
	"github.com/m3rciful/facilitybot/internal/storage/memstore"

	tele "gopkg.in/telebot.v4"
)

const sampleConfig = `
telegram:
  token: "123:abc"
  admin_ids: [100, 200]
  bot_username: "@facility_bot"
database:
  driver: memory
bot:
  appeals_limit: 5
  session_idle_ttl: 30m
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("BOT_QR_SIZE", "512")
	cfg, err := LoadConfig(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Telegram.Token != "123:abc" || len(cfg.Telegram.AdminIDs) != 2 {
		t.Fatalf("telegram section not decoded: %+v", cfg.Telegram)
	}
	if cfg.Telegram.BotUsername != "facility_bot" {
		t.Fatalf("bot username = %q", cfg.Telegram.BotUsername)
	}
	if cfg.Telegram.RunMode != "longpoll" {
		t.Fatalf("run mode = %q", cfg.Telegram.RunMode)
	}
	if cfg.Database.Driver != coredatabase.DriverMemory {
		t.Fatalf("driver = %q", cfg.Database.Driver)
	}
	if cfg.Bot.AppealsLimit != 5 || cfg.Bot.SessionIdleTTL != 30*time.Minute {
		t.Fatalf("bot section = %+v", cfg.Bot)
	}
	if cfg.Bot.QRSize != 512 || cfg.Bot.LinkHost != DefaultLinkHost {
		t.Fatalf("env overlay or defaults missing: %+v", cfg.Bot)
	}
	if cfg.CoreConfig() != &cfg.Config {
		t.Fatalf("CoreConfig must expose the embedded config")
	}
}

func TestLoadConfigFromEnvOnly(t *testing.T) {
	t.Setenv("BOT_TOKEN", "1:env")
	t.Setenv("DB_DRIVER", "sqlite")
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Telegram.Token != "1:env" || cfg.Database.Path != "facilitybot.db" {
		t.Fatalf("unexpected config: %+v %+v", cfg.Telegram, cfg.Database)
	}
}

func TestLoadConfigDefersEnvFileError(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, ".env"), 0o700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("BOT_TOKEN", "1:env")
	t.Setenv("DB_DRIVER", "memory")

	cfg, err := LoadConfig(filepath.Join(dir, "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.EnvFileError() == nil {
		t.Fatal("unreadable .env must be reported")
	}
	cfg.LogEnvFileError(context.Background())
}

func TestBotConfigTimeZone(t *testing.T) {
	b := BotConfig{TimeZone: " UTC "}
	if err := b.Normalize(); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if b.Location() != time.UTC {
		t.Fatalf("location = %v", b.Location())
	}
	if (&BotConfig{}).Location() != time.Local {
		t.Fatal("empty zone must fall back to local time")
	}
	bad := BotConfig{TimeZone: "Mars/Olympus"}
	if err := bad.Normalize(); err == nil {
		t.Fatal("expected error for unknown zone")
	}
}

func TestBotConfigNormalize(t *testing.T) {
	b := BotConfig{LinkHost: "https://t.me/"}
	if err := b.Normalize(); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if b.LinkHost != "t.me" || b.AppealsLimit != 10 || b.QRSize != DefaultQRSize {
		t.Fatalf("defaults = %+v", b)
	}
	for _, bad := range []BotConfig{{AppealsLimit: -1}, {SessionIdleTTL: -time.Second}, {QRSize: -5}} {
		if err := bad.Normalize(); err == nil {
			t.Fatalf("expected error for %+v", bad)
		}
	}
}

func TestSeeders(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	err := bootstrap.RunSeeders(ctx, storage.Store(store), RoleSeeder(), AdminSeeder([]int64{100}))
	if err != nil {
		t.Fatalf("RunSeeders: %v", err)
	}
	if ok, _ := store.HasRole(ctx, 100, domain.RoleAdmin); !ok {
		t.Fatalf("configured admin not granted")
	}
	if _, err := store.EnsureRole(ctx, domain.RoleEmployee); err != nil {
		t.Fatalf("employee role: %v", err)
	}
	// seeding twice is harmless
	if err := bootstrap.RunSeeders(ctx, storage.Store(store), RoleSeeder(), AdminSeeder([]int64{100})); err != nil {
		t.Fatalf("second run: %v", err)
	}
}

func newTestApp(t *testing.T, username string) *App {
	t.Helper()
	cfg := &Config{}
	cfg.Telegram.Token = "1:test"
	cfg.Telegram.BotUsername = username
	cfg.Database.Driver = coredatabase.DriverMemory
	if err := cfg.Normalize(); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	a, err := New(cfg, memstore.New())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a
}

func TestTelegramRunOptions(t *testing.T) {
	a := newTestApp(t, "facility_bot")
	opts, err := a.TelegramRunOptions()
	if err != nil {
		t.Fatalf("TelegramRunOptions: %v", err)
	}
	if opts.Registry == nil || len(opts.Registry.ListCallbacks()) == 0 {
		t.Fatalf("registry not populated")
	}
	if opts.Routes == nil || len(opts.Routes(opts.Registry)) == 0 {
		t.Fatalf("routes missing")
	}
	if len(opts.Middlewares) == 0 || opts.OnStart == nil {
		t.Fatalf("middlewares or hooks missing")
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestOnStartLearnsUsername(t *testing.T) {
	a := newTestApp(t, "")
	if err := a.onStart(context.Background(), coretelegram.Runtime{}); err == nil {
		t.Fatalf("expected error without a username")
	}
	rt := coretelegram.Runtime{Bot: &tele.Bot{Me: &tele.User{Username: "learned_bot"}}}
	if err := a.onStart(context.Background(), rt); err != nil {
		t.Fatalf("onStart: %v", err)
	}
	link, err := a.links.RoomLink(4)
	if err != nil || link != "https://t.me/learned_bot?start=room_4" {
		t.Fatalf("RoomLink = %q, %v", link, err)
	}
}

func TestSweepInterval(t *testing.T) {
	cases := map[time.Duration]time.Duration{
		time.Second:    time.Second,
		time.Minute:    30 * time.Second,
		24 * time.Hour: 10 * time.Minute,
	}
	for ttl, want := range cases {
		if got := sweepInterval(ttl); got != want {
			t.Fatalf("sweepInterval(%s) = %s, expected %s", ttl, got, want)
		}
	}
}
