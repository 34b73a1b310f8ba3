package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Veraticus/till/internal/api"
	"github.com/Veraticus/till/internal/catalog"
	"github.com/Veraticus/till/internal/common"
	"github.com/Veraticus/till/internal/config"
	"github.com/Veraticus/till/internal/intent"
	"github.com/Veraticus/till/internal/session"
	"github.com/Veraticus/till/internal/storage"
	"github.com/spf13/viper"
)

var errLoginRequired = common.NewUserError("Not logged in. Run `till login` first.", common.ErrNoSession)

// loadSettings reads the typed settings from the global viper instance.
func loadSettings() (*config.Settings, error) {
	settings, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	return settings, nil
}

// initSessionStore opens the session file configured in settings.
func initSessionStore(settings *config.Settings) (*session.Store, error) {
	return session.NewStore(settings.SessionPath)
}

// initClient builds an API client sending token, which may be empty.
func initClient(settings *config.Settings, token string) (*api.Client, error) {
	client, err := api.NewClient(settings.APIConfig(token))
	if err != nil {
		return nil, fmt.Errorf("failed to create API client: %w", err)
	}
	return client, nil
}

// initStorage opens the local snapshot cache and runs migrations.
func initStorage(ctx context.Context, settings *config.Settings) (*storage.SQLiteStorage, error) {
	store, err := storage.Open(ctx, settings.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open local cache: %w", err)
	}
	return store, nil
}

// environment is everything an authenticated command needs.
type environment struct {
	settings *config.Settings
	sessions *session.Store
	session  *session.Session
	client   *api.Client
	store    *storage.SQLiteStorage
	account  *intent.Account
	catalog  *catalog.Catalog
}

// openEnvironment loads the session and wires the client, cache and
// account. A cache that cannot be opened is logged and skipped.
func openEnvironment(ctx context.Context) (*environment, error) {
	settings, err := loadSettings()
	if err != nil {
		return nil, err
	}

	sessions, err := initSessionStore(settings)
	if err != nil {
		return nil, err
	}

	sess, err := sessions.Load()
	if errors.Is(err, common.ErrNoSession) {
		return nil, errLoginRequired
	}
	if err != nil {
		return nil, err
	}

	client, err := initClient(settings, sess.AccessToken)
	if err != nil {
		return nil, err
	}

	cat, err := config.LoadCatalog(viper.GetViper())
	if err != nil {
		return nil, err
	}

	env := &environment{
		settings: settings,
		sessions: sessions,
		session:  sess,
		client:   client,
		catalog:  cat,
	}

	var accountOpts []intent.AccountOption
	store, err := initStorage(ctx, settings)
	if err != nil {
		slog.Warn("Continuing without local cache", "error", err)
	} else {
		env.store = store
		accountOpts = append(accountOpts, intent.WithSnapshotStore(store, sess.UserID))
	}
	env.account = intent.NewAccount(client, accountOpts...)

	return env, nil
}

// Close releases the local cache.
func (e *environment) Close() {
	if e.store == nil {
		return
	}
	if err := e.store.Close(); err != nil {
		slog.Warn("Failed to close local cache", "error", err)
	}
}

// authError turns a 401 into a login prompt and drops the stale session.
// Other errors pass through.
func (e *environment) authError(err error) error {
	if !errors.Is(err, api.ErrUnauthorized) {
		return err
	}

	if clearErr := e.sessions.Clear(); clearErr != nil {
		slog.Warn("Failed to clear expired session", "error", clearErr)
	}
	if e.store != nil {
		if clearErr := e.store.ClearSnapshot(context.Background(), e.session.UserID); clearErr != nil {
			slog.Warn("Failed to clear cached snapshot", "error", clearErr)
		}
	}
	return common.NewUserError("Your session has expired. Run `till login` to sign in again.", err)
}

// refreshOrCached refreshes the account, falling back to the cached
// snapshot when the server cannot be reached.
func (e *environment) refreshOrCached(ctx context.Context) error {
	_, err := e.account.Refresh(ctx)
	if err == nil {
		return nil
	}
	if errors.Is(err, api.ErrUnauthorized) {
		return e.authError(err)
	}

	loaded, cacheErr := e.account.LoadCached(ctx)
	if cacheErr != nil {
		slog.Warn("Failed to read cached snapshot", "error", cacheErr)
	}
	if !loaded {
		return common.NewUserError(api.UserMessage(err), err)
	}

	slog.Warn("Showing cached account data", "error", err)
	return nil
}
