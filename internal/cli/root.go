package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/habitreward/internal/backup"
	"github.com/julianstephens/habitreward/internal/clock"
	"github.com/julianstephens/habitreward/internal/engine"
	"github.com/julianstephens/habitreward/internal/logger"
	"github.com/julianstephens/habitreward/internal/migration"
	"github.com/julianstephens/habitreward/internal/models"
	"github.com/julianstephens/habitreward/internal/selector"
	"github.com/julianstephens/habitreward/internal/storage"
	"github.com/julianstephens/habitreward/internal/storage/sqlite"
)

// ErrNotSQLite is returned by file-level operations on non-SQLite stores.
var ErrNotSQLite = errors.New("this command only supports SQLite storage")

// Migrator is implemented by stores with an embedded schema.
type Migrator interface {
	Migrate(ctx context.Context, logFn func(string)) (int, error)
	SchemaStatus(ctx context.Context) (migration.Status, error)
}

// Picker asks the operator to choose one of options and returns its value.
type Picker func(title string, options []huh.Option[string]) (string, error)

type Context struct {
	Store storage.Provider
	// Clock defaults to the system clock in the configured timezone.
	Clock clock.Clock
	// Seed feeds the reward draw.
	Seed uint64
	Out  io.Writer
	In   io.Reader
	Pick Picker

	base   context.Context
	engine *engine.Engine
}

// WithContext sets the context commands run under.
func (c *Context) WithContext(ctx context.Context) *Context {
	c.base = ctx
	return c
}

func (c *Context) Context() context.Context {
	if c.base == nil {
		return context.Background()
	}
	return c.base
}

func (c *Context) Printf(format string, args ...any) {
	fmt.Fprintf(c.out(), format, args...)
}

func (c *Context) Println(args ...any) {
	fmt.Fprintln(c.out(), args...)
}

func (c *Context) out() io.Writer {
	if c.Out == nil {
		return os.Stdout
	}
	return c.Out
}

func (c *Context) Input() io.Reader {
	if c.In == nil {
		return os.Stdin
	}
	return c.In
}

func (c *Context) Now() time.Time {
	if c.Clock == nil {
		return time.Now()
	}
	return c.Clock.Now()
}

// Engine builds the completion engine from the stored settings on first use.
func (c *Context) Engine() (*engine.Engine, error) {
	if c.engine != nil {
		return c.engine, nil
	}
	settings, err := c.Store.GetSettings(c.Context())
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	cfg, err := engine.ConfigFromSettings(settings)
	if err != nil {
		return nil, err
	}
	sel := selector.NewSeeded(c.Seed, cfg.SelectorConfig())
	c.engine = engine.New(c.Store, sel, c.Clock, cfg)
	return c.engine, nil
}

// ResetEngine drops the cached engine so the next call rereads settings.
func (c *Context) ResetEngine() {
	c.engine = nil
}

// BackupManager returns a backup manager for file-backed SQLite stores.
func (c *Context) BackupManager() (*backup.Manager, error) {
	s, ok := c.Store.(*sqlite.Store)
	if !ok || s.GetConfigPath() == sqlite.MemoryPath {
		return nil, ErrNotSQLite
	}
	return backup.NewManager(s.GetConfigPath()), nil
}

// PerformAutomaticBackup snapshots SQLite databases and only logs failures.
func (c *Context) PerformAutomaticBackup() {
	mgr, err := c.BackupManager()
	if err != nil {
		return
	}
	if _, err := mgr.Create(); err != nil {
		logger.Warn("Automatic backup failed", "error", err)
	}
}

// PickHabit asks the operator to choose an active habit.
func (c *Context) PickHabit(habits []models.Habit) (string, error) {
	if len(habits) == 0 {
		return "", errors.New("no active habits. Add one with 'habitreward habit add'")
	}
	options := make([]huh.Option[string], 0, len(habits))
	for _, h := range habits {
		options = append(options, huh.NewOption(h.Name, h.ID))
	}
	pick := c.Pick
	if pick == nil {
		pick = huhPicker
	}
	return pick("Which habit did you complete?", options)
}

func huhPicker(title string, options []huh.Option[string]) (string, error) {
	var choice string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title(title).
				Options(options...).
				Value(&choice),
		),
	)
	if err := form.Run(); err != nil {
		return "", fmt.Errorf("interactive form error: %w", err)
	}
	return choice, nil
}
