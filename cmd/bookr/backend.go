package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/christopherklint97/bookr/internal/calendar"
	"github.com/christopherklint97/bookr/internal/config"
	"github.com/christopherklint97/bookr/internal/dialogue"
	"github.com/christopherklint97/bookr/internal/msgraph"
	"github.com/christopherklint97/bookr/internal/store"
)

// services bundles what every command builds from the config.
type services struct {
	engine  *dialogue.Engine
	backend string
	db      *store.DB
}

func (r *services) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func newServices(cfg *config.Config, logger *slog.Logger) (*services, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	hours := calendar.NewWorkingHours(
		cfg.Calendar.WorkStart, cfg.Calendar.WorkEnd,
		cfg.Calendar.WorkDays, cfg.Calendar.SlotMinutes, loc,
	)

	backend, name, err := buildBackend(cfg, hours, logger)
	if err != nil {
		return nil, err
	}

	rt := &services{backend: name}
	if cfg.Calendar.History {
		db, err := store.Open()
		if err != nil {
			return nil, fmt.Errorf("opening database: %w", err)
		}
		rt.db = db
		backend = calendar.WithHistory(backend, db, name, logger)
	}

	rt.engine = dialogue.New(backend,
		dialogue.WithLocation(loc),
		dialogue.WithLogger(logger),
		dialogue.WithDefaultTitle(cfg.Assistant.DefaultTitle),
		dialogue.WithDefaultDuration(cfg.Assistant.DurationMinutes),
	)
	return rt, nil
}

// buildBackend picks the calendar named by calendar.source. Graph without a
// client id or cached login falls back to the mock calendar.
func buildBackend(cfg *config.Config, hours calendar.WorkingHours, logger *slog.Logger) (calendar.Backend, string, error) {
	source := strings.TrimSpace(cfg.Calendar.Source)

	switch strings.ToLower(source) {
	case "", "mock":
		return calendar.NewMock(hours, logger), "mock", nil
	case "graph", "msgraph", "outlook":
		auth, err := newGraphAuth(cfg, logger)
		if err != nil {
			return nil, "", err
		}
		if auth == nil || !auth.Authenticated() {
			logger.Warn("graph calendar not authenticated, using mock calendar",
				"hint", "run 'bookr calendar auth'")
			return calendar.NewMock(hours, logger), "mock", nil
		}
		client := msgraph.NewClient(auth, "", logger)
		return msgraph.NewCalendar(client, hours), "graph", nil
	}

	if !strings.HasPrefix(source, "http://") && !strings.HasPrefix(source, "https://") {
		expanded, err := expandHome(source)
		if err != nil {
			return nil, "", err
		}
		source = expanded
	}
	return calendar.NewICS(source, hours, logger), "ics", nil
}

// newGraphAuth returns nil when no client id is configured.
func newGraphAuth(cfg *config.Config, logger *slog.Logger) (*msgraph.Auth, error) {
	if cfg.Calendar.Graph.ClientID == "" {
		return nil, nil
	}
	path, err := msgraph.DefaultTokenPath()
	if err != nil {
		return nil, err
	}
	return msgraph.NewAuth(cfg.Calendar.Graph.ClientID, cfg.Calendar.Graph.TenantID,
		msgraph.NewTokenStore(path), logger), nil
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
