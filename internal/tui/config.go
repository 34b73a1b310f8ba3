package tui

import (
	"context"
	"time"

	"github.com/Veraticus/till/internal/catalog"
	"github.com/Veraticus/till/internal/intent"
	"github.com/Veraticus/till/internal/model"
	"github.com/Veraticus/till/internal/tui/themes"
)

// Account is the snapshot source the dashboard renders.
type Account interface {
	Snapshot() model.Snapshot
	Refresh(ctx context.Context) (model.Snapshot, error)
}

// Config holds TUI configuration.
type Config struct {
	Context        context.Context
	Theme          themes.Theme
	Pipeline       *intent.Pipeline
	Account        Account
	Catalog        *catalog.Catalog
	UserEmail      string
	DefaultCountry string
	Width          int
	Height         int
	RefreshTimeout time.Duration
	HistoryRows    int
}

// Option is a functional option for configuring the TUI.
type Option func(*Config)

// defaultConfig returns the default configuration.
func defaultConfig() Config {
	return Config{
		Context:        context.Background(),
		Theme:          themes.Default,
		Catalog:        catalog.Default(),
		DefaultCountry: "KE",
		Width:          80,
		Height:         24,
		RefreshTimeout: 30 * time.Second,
		HistoryRows:    15,
	}
}

// WithContext sets the context remote calls run under.
func WithContext(ctx context.Context) Option {
	return func(c *Config) {
		c.Context = ctx
	}
}

// WithPipeline sets the withdraw and deposit pipeline.
func WithPipeline(p *intent.Pipeline) Option {
	return func(c *Config) {
		c.Pipeline = p
	}
}

// WithAccount sets the account snapshot source.
func WithAccount(a Account) Option {
	return func(c *Config) {
		c.Account = a
	}
}

// WithCatalog sets the bank and country tables.
func WithCatalog(cat *catalog.Catalog) Option {
	return func(c *Config) {
		c.Catalog = cat
	}
}

// WithUser sets the email shown in the header.
func WithUser(email string) Option {
	return func(c *Config) {
		c.UserEmail = email
	}
}

// WithDefaultCountry preselects the mobile-money country by ISO code.
func WithDefaultCountry(iso string) Option {
	return func(c *Config) {
		c.DefaultCountry = iso
	}
}

// WithTheme sets the visual theme.
func WithTheme(theme themes.Theme) Option {
	return func(c *Config) {
		c.Theme = theme
	}
}

// WithSize sets the initial terminal size.
func WithSize(width, height int) Option {
	return func(c *Config) {
		c.Width = width
		c.Height = height
	}
}
