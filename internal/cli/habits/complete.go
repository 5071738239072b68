package habits

import (
	"fmt"

	"github.com/julianstephens/habitreward/internal/cli"
	"github.com/julianstephens/habitreward/internal/engine"
)

type CompleteCmd struct {
	User  string `arg:"" help:"User id or external id."`
	Habit string `arg:"" optional:"" help:"Habit id, name or slug. Prompts when omitted."`
	Date  string `help:"Day to credit in YYYY-MM-DD format (default: today)." default:""`
	Fuzzy bool   `help:"Match free text against habit names."`
}

func (c *CompleteCmd) Run(ctx *cli.Context) error {
	eng, err := ctx.Engine()
	if err != nil {
		return err
	}

	habit := c.Habit
	if habit == "" {
		active, err := ctx.Store.GetAllHabits(ctx.Context(), false)
		if err != nil {
			return err
		}
		if habit, err = ctx.PickHabit(active); err != nil {
			return err
		}
	}

	res, err := eng.CompleteHabit(ctx.Context(), engine.CompleteRequest{
		UserID:     c.User,
		Habit:      habit,
		TargetDate: c.Date,
		Fuzzy:      c.Fuzzy,
	})
	if err != nil {
		return fmt.Errorf("completion rejected: %w", err)
	}

	ctx.Println(cli.RenderCompletion(res))
	return nil
}
