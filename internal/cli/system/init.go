package system

import (
	"fmt"
	"os"

	"github.com/julianstephens/habitreward/internal/catalog"
	"github.com/julianstephens/habitreward/internal/cli"
	"github.com/julianstephens/habitreward/internal/storage/sqlite"
)

type InitCmd struct {
	Force   bool   `help:"Force reset by deleting existing database before initialization."`
	Catalog string `help:"Seed habits and rewards from a YAML catalog file." type:"existingfile"`
}

func (c *InitCmd) Run(ctx *cli.Context) error {
	if c.Force {
		if err := c.reset(ctx); err != nil {
			return err
		}
	}

	if err := ctx.Store.Init(ctx.Context()); err != nil {
		return err
	}
	ctx.Printf("Initialized habitreward storage at: %s\n", ctx.Store.GetConfigPath())

	if c.Catalog != "" {
		f, err := catalog.LoadFile(c.Catalog)
		if err != nil {
			return err
		}
		sum, err := catalog.Apply(ctx.Context(), ctx.Store, f, ctx.Now())
		if err != nil {
			return fmt.Errorf("failed to seed catalog: %w", err)
		}
		ctx.Printf("Seeded %d habit(s) and %d reward(s)\n", sum.HabitsAdded, sum.RewardsAdded)
	}
	return nil
}

func (c *InitCmd) reset(ctx *cli.Context) error {
	s, ok := ctx.Store.(*sqlite.Store)
	if !ok {
		return fmt.Errorf("--force %w", cli.ErrNotSQLite)
	}
	dbPath := s.GetConfigPath()
	if dbPath == sqlite.MemoryPath {
		return nil
	}

	if _, err := os.Stat(dbPath); err == nil {
		if err := s.Close(); err != nil {
			return fmt.Errorf("failed to close existing database: %w", err)
		}
		if err := os.Remove(dbPath); err != nil {
			return fmt.Errorf("failed to delete existing database: %w", err)
		}
		ctx.Printf("Deleted existing database at: %s\n", dbPath)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to access existing database: %w", err)
	}
	return nil
}
