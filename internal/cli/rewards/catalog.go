package rewards

import (
	"fmt"

	"github.com/julianstephens/habitreward/internal/catalog"
	"github.com/julianstephens/habitreward/internal/cli"
	"github.com/julianstephens/habitreward/internal/selector"
)

type CatalogCmd struct {
	Import CatalogImportCmd `cmd:"" help:"Upsert habits and rewards from a YAML file."`
	Show   CatalogShowCmd   `cmd:"" help:"Show the active reward catalog and draw odds." default:"1"`
	Export CatalogExportCmd `cmd:"" help:"Print the stored catalog as YAML."`
}

type CatalogImportCmd struct {
	File string `arg:"" help:"Catalog YAML file." type:"existingfile"`
}

func (c *CatalogImportCmd) Run(ctx *cli.Context) error {
	f, err := catalog.LoadFile(c.File)
	if err != nil {
		return err
	}

	ctx.PerformAutomaticBackup()

	sum, err := catalog.Apply(ctx.Context(), ctx.Store, f, ctx.Now())
	if err != nil {
		return fmt.Errorf("catalog import failed: %w", err)
	}
	ctx.Printf("Habits: %d added, %d updated\n", sum.HabitsAdded, sum.HabitsUpdated)
	ctx.Printf("Rewards: %d added, %d updated\n", sum.RewardsAdded, sum.RewardsUpdated)
	return nil
}

type CatalogShowCmd struct {
	Effort float64 `help:"Effort score to compute odds for." default:"0"`
}

func (c *CatalogShowCmd) Run(ctx *cli.Context) error {
	eng, err := ctx.Engine()
	if err != nil {
		return err
	}
	rewards, err := ctx.Store.GetActiveRewards(ctx.Context())
	if err != nil {
		return err
	}
	if len(rewards) == 0 {
		ctx.Println("No active rewards. Import a catalog with 'habitreward catalog import'.")
		return nil
	}

	// Odds only; this selector never draws.
	sel := selector.New(nil, eng.Config().SelectorConfig())
	candidates := sel.Candidates(rewards, c.Effort, nil)
	total := 0.0
	for _, cand := range candidates {
		total += cand.Weight
	}

	ctx.Println(cli.TitleStyle.Render(fmt.Sprintf("Active catalog at effort %.1f", c.Effort)))
	ctx.Printf("%-24s %-8s %8s %7s  %s\n", "REWARD", "KIND", "WEIGHT", "ODDS", "PIECES")
	for _, cand := range candidates {
		r := cand.Reward
		pieces := "-"
		if r.IsCumulative {
			pieces = fmt.Sprintf("%d", r.PiecesRequired)
		}
		odds := 0.0
		if total > 0 {
			odds = cand.Weight / total * 100
		}
		ctx.Printf("%-24s %-8s %8.2f %6.1f%%  %s\n", r.Name, r.Kind, cand.Weight, odds, pieces)
	}
	return nil
}

type CatalogExportCmd struct{}

func (c *CatalogExportCmd) Run(ctx *cli.Context) error {
	habits, err := ctx.Store.GetAllHabits(ctx.Context(), true)
	if err != nil {
		return err
	}
	rewards, err := ctx.Store.GetAllRewards(ctx.Context(), true)
	if err != nil {
		return err
	}
	out, err := catalog.Marshal(catalog.Export(habits, rewards))
	if err != nil {
		return err
	}
	ctx.Printf("%s", out)
	return nil
}
