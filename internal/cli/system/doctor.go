package system

import (
	"errors"
	"fmt"
	"strings"

	"github.com/julianstephens/habitreward/internal/cli"
	"github.com/julianstephens/habitreward/internal/engine"
	"github.com/julianstephens/habitreward/internal/storage/sqlite"
	"github.com/julianstephens/habitreward/internal/streak"
)

type DoctorCmd struct{}

type check struct {
	name string
	run  func(ctx *cli.Context) error
	// warnOnly checks never fail the run.
	warnOnly bool
	// needsDB checks are skipped when the database is unreachable.
	needsDB bool
}

func (cmd *DoctorCmd) Run(ctx *cli.Context) error {
	ctx.Println("Running diagnostics...")
	ctx.Println()

	checks := []check{
		{name: "Schema version", run: checkSchemaVersion, needsDB: true},
		{name: "Engine settings", run: checkSettings, needsDB: true},
		{name: "Reward catalog", run: checkCatalog, needsDB: true},
		{name: "Weights", run: checkWeights, needsDB: true},
		{name: "Streak chains", run: checkStreakChains, needsDB: true},
		{name: "Backups present", run: checkBackupsPresent, warnOnly: true},
	}

	hasError := false
	dbReachable := true
	if err := checkDBReachable(ctx); err != nil {
		ctx.Printf("❌ Database reachable: FAIL\n")
		ctx.Printf("   Error: %v\n", err)
		hasError = true
		dbReachable = false
	} else {
		ctx.Printf("✓ Database reachable: OK\n")
	}

	for _, c := range checks {
		if c.needsDB && !dbReachable {
			ctx.Printf("⊘ %s: SKIPPED (database not reachable)\n", c.name)
			continue
		}
		err := c.run(ctx)
		switch {
		case err == nil:
			ctx.Printf("✓ %s: OK\n", c.name)
		case c.warnOnly:
			ctx.Printf("⚠ %s: WARNING\n", c.name)
			ctx.Printf("   %v\n", err)
		default:
			ctx.Printf("❌ %s: FAIL\n", c.name)
			ctx.Printf("   Error: %v\n", err)
			hasError = true
		}
	}

	ctx.Println()
	if hasError {
		ctx.Println("Diagnostics completed with errors.")
		return fmt.Errorf("one or more health checks failed")
	}
	ctx.Println("All diagnostics passed!")
	return nil
}

func checkDBReachable(ctx *cli.Context) error {
	if err := ctx.Store.Load(ctx.Context()); err != nil {
		return fmt.Errorf("failed to load database: %w", err)
	}
	if s, ok := ctx.Store.(*sqlite.Store); ok {
		db := s.GetDB()
		if db == nil {
			return fmt.Errorf("database connection is nil")
		}
		var result int
		if err := db.QueryRowContext(ctx.Context(), "SELECT 1").Scan(&result); err != nil {
			return fmt.Errorf("failed to query database: %w", err)
		}
	}
	return nil
}

func checkSchemaVersion(ctx *cli.Context) error {
	m, ok := ctx.Store.(cli.Migrator)
	if !ok {
		return nil
	}
	st, err := m.SchemaStatus(ctx.Context())
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if st.Current > st.Latest {
		return fmt.Errorf("database schema version %d is newer than supported version %d", st.Current, st.Latest)
	}
	if n := st.Pending(); n > 0 {
		return fmt.Errorf("%d pending migration(s), run 'habitreward migrate'", n)
	}
	return nil
}

func checkSettings(ctx *cli.Context) error {
	settings, err := ctx.Store.GetSettings(ctx.Context())
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	_, err = engine.ConfigFromSettings(settings)
	return err
}

func checkCatalog(ctx *cli.Context) error {
	rewards, err := ctx.Store.GetActiveRewards(ctx.Context())
	if err != nil {
		return fmt.Errorf("failed to load rewards: %w", err)
	}
	for _, r := range rewards {
		if r.IsNone() {
			return nil
		}
	}
	if len(rewards) == 0 {
		return errors.New("no active rewards; import a catalog with 'habitreward catalog import'")
	}
	return errors.New("active catalog has no none reward")
}

func checkWeights(ctx *cli.Context) error {
	var problems []string

	habits, err := ctx.Store.GetAllHabits(ctx.Context(), false)
	if err != nil {
		return fmt.Errorf("failed to load habits: %w", err)
	}
	for _, h := range habits {
		if h.Weight <= 0 {
			problems = append(problems, fmt.Sprintf("habit %q has weight %g", h.Name, h.Weight))
		}
	}

	rewards, err := ctx.Store.GetActiveRewards(ctx.Context())
	if err != nil {
		return fmt.Errorf("failed to load rewards: %w", err)
	}
	for _, r := range rewards {
		if r.Weight <= 0 {
			problems = append(problems, fmt.Sprintf("reward %q has weight %g", r.Name, r.Weight))
		}
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

func checkStreakChains(ctx *cli.Context) error {
	users, err := ctx.Store.GetAllUsers(ctx.Context())
	if err != nil {
		return fmt.Errorf("failed to load users: %w", err)
	}
	habits, err := ctx.Store.GetAllHabits(ctx.Context(), true)
	if err != nil {
		return fmt.Errorf("failed to load habits: %w", err)
	}

	var problems []string
	for _, u := range users {
		for _, h := range habits {
			chain, err := ctx.Store.GetHabitLogs(ctx.Context(), u.ID, h.ID)
			if err != nil {
				return fmt.Errorf("failed to load logs for %s/%s: %w", u.ExternalID, h.Name, err)
			}
			bad, err := streak.Check(chain)
			if err != nil {
				return err
			}
			if bad != nil {
				problems = append(problems, fmt.Sprintf("%s/%s: log %s has streak %d, expected %d",
					u.ExternalID, h.Name, bad.LogID, bad.Old, bad.New))
			}
		}
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

func checkBackupsPresent(ctx *cli.Context) error {
	mgr, err := ctx.BackupManager()
	if err != nil {
		return nil
	}
	backups, err := mgr.List()
	if err != nil {
		return fmt.Errorf("failed to list backups: %w", err)
	}
	if len(backups) == 0 {
		return fmt.Errorf("no backups found in %s", mgr.Dir())
	}
	return nil
}
