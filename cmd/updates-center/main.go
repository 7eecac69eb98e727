package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/vitrix/updates-center/internal/action"
	"github.com/vitrix/updates-center/internal/aggregate"
	"github.com/vitrix/updates-center/internal/cache"
	"github.com/vitrix/updates-center/internal/center"
	"github.com/vitrix/updates-center/internal/credential"
	"github.com/vitrix/updates-center/internal/keys"
	"github.com/vitrix/updates-center/internal/model"
	"github.com/vitrix/updates-center/internal/remote"
	"github.com/vitrix/updates-center/internal/source"
	"github.com/vitrix/updates-center/internal/store"
	appsync "github.com/vitrix/updates-center/internal/sync"
	"github.com/vitrix/updates-center/internal/ui/updates"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "updates-center:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags := pflag.NewFlagSet("updates-center", pflag.ContinueOnError)
	configPath := flags.String("config", model.DefaultConfigPath(), "path to the YAML config file")
	jsonOut := flags.Bool("json", false, "aggregate once and print the feed as JSON")
	setToken := flags.Bool("set-token", false, "read the entity API token from stdin and store it in the keyring")
	writeConfig := flags.Bool("write-config", false, "write the effective configuration to --config and exit")
	flags.String("viewer", "", "viewer email (overrides viewer.email)")
	flags.String("store", "", "store driver: remote or sqlite (overrides store.driver)")
	if err := flags.Parse(args); err != nil {
		return err
	}

	if *setToken {
		return saveToken(os.Stdin)
	}

	v := viper.New()
	v.SetConfigFile(*configPath)
	v.SetConfigType("yaml")
	if err := v.BindPFlag("viewer.email", flags.Lookup("viewer")); err != nil {
		return fmt.Errorf("binding flags: %w", err)
	}
	if err := v.BindPFlag("store.driver", flags.Lookup("store")); err != nil {
		return fmt.Errorf("binding flags: %w", err)
	}

	cfg, err := model.ReadConfig(v)
	if err != nil {
		return err
	}
	if *writeConfig {
		return model.SaveConfig(*configPath, cfg)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Viewer.Email == "" {
		return errors.New("no viewer: set viewer.email or pass --viewer")
	}

	logger, closeLog, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer closeLog()
	watchConfig(v, logger)

	local, err := openLocal(cfg.Local.DBPath)
	if err != nil {
		return err
	}
	defer local.Close()

	entities, err := entityStore(cfg, local, logger)
	if err != nil {
		return err
	}

	ctr := newCenter(cfg, entities, local, logger)
	defer ctr.Close()

	logger.WithFields(logrus.Fields{
		"viewer": cfg.Viewer.Email,
		"store":  cfg.Store.Driver,
	}).Info("Starting updates center")

	if *jsonOut {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return dumpJSON(ctx, ctr, os.Stdout)
	}

	refresher := appsync.New(ctr, cfg.Feed.RefreshInterval(), logger)
	defer refresher.Stop()

	view := updates.New(ctr, refresher, keys.DefaultKeyMap(), cfg.Feed.CollapsedLines)
	if _, err := tea.NewProgram(view, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("running ui: %w", err)
	}
	return nil
}

// newCenter wires the sources, aggregator and action dispatcher of one
// viewer session.
func newCenter(
	cfg *model.AppConfig,
	entities store.Store,
	local *store.SQLiteStore,
	logger logrus.FieldLogger,
) *center.Center {
	agg := aggregate.New(
		source.Runners(entities, local),
		source.NewParticipations(entities),
		source.NewUsers(entities),
		cache.New(cfg.Feed.CacheTTL()),
		aggregate.WithFetchTimeout(cfg.Feed.FetchTimeout()),
		aggregate.WithReminderWindow(cfg.Feed.ReminderWindow()),
		aggregate.WithLogger(logger),
	)
	d := action.NewDispatcher(entities, local, agg, action.WithLogger(logger))
	return center.New(agg, d, cfg.Viewer.Email)
}

// entityStore returns the store the sources read from: the remote entity
// API, or the local database itself for the sqlite driver.
func entityStore(
	cfg *model.AppConfig,
	local *store.SQLiteStore,
	logger logrus.FieldLogger,
) (store.Store, error) {
	if cfg.Store.Driver == model.StoreDriverSQLite {
		return local, nil
	}

	token, err := credential.StoreToken()
	if err != nil {
		return nil, fmt.Errorf("loading entity API token (set %s or run with --set-token): %w", credential.TokenEnv, err)
	}

	return remote.NewClient(cfg.Store.BaseURL, cfg.Store.AppID, token,
		remote.WithTimeout(cfg.Store.Timeout()),
		remote.WithRetries(cfg.Store.MaxRetries, 0),
		remote.WithLogger(logger),
	), nil
}

func openLocal(path string) (*store.SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}
	return store.NewSQLiteStore(path)
}

// newLogger builds the application logger. The terminal belongs to the UI,
// so output goes to the configured file; without one it goes to stderr.
func newLogger(cfg model.LogConfig) (*logrus.Logger, func(), error) {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	setLevel(logger, cfg.Level)

	if cfg.File == "" {
		logger.SetOutput(os.Stderr)
		return logger, func() {}, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
		return nil, nil, fmt.Errorf("creating log directory: %w", err)
	}
	f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}
	logger.SetOutput(f)
	return logger, func() { f.Close() }, nil
}

func setLevel(logger *logrus.Logger, level string) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		logger.WithField("level", level).Warn("Unknown log level, using info")
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)
}

// watchConfig applies log level changes from the config file while running.
func watchConfig(v *viper.Viper, logger *logrus.Logger) {
	if _, err := os.Stat(v.ConfigFileUsed()); err != nil {
		return
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := model.DecodeConfig(v)
		if err != nil {
			logger.WithError(err).Warn("Ignoring invalid config change")
			return
		}
		setLevel(logger, cfg.Log.Level)
		logger.WithField("file", e.Name).Info("Config reloaded")
	})
	v.WatchConfig()
}

func saveToken(r io.Reader) error {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("reading token: %w", err)
	}
	token := strings.TrimSpace(line)
	if token == "" {
		return errors.New("empty token")
	}
	return credential.Set(credential.StoreTokenKey, token)
}
