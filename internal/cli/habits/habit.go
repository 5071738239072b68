package habits

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/gosimple/slug"

	"github.com/julianstephens/habitreward/internal/cli"
	apperrors "github.com/julianstephens/habitreward/internal/errors"
	"github.com/julianstephens/habitreward/internal/models"
)

type HabitCmd struct {
	Add        HabitAddCmd        `cmd:"" help:"Add a new habit."`
	List       HabitListCmd       `cmd:"" help:"List habits."`
	Deactivate HabitDeactivateCmd `cmd:"" help:"Deactivate a habit. Its history is kept."`
	Activate   HabitActivateCmd   `cmd:"" help:"Reactivate a habit."`
}

type HabitAddCmd struct {
	Name   string  `arg:"" help:"Habit name."`
	Weight float64 `help:"Effort weight fed into the reward draw." default:"1"`
	Slug   string  `help:"Identifier slug (default: derived from the name)."`
}

func (c *HabitAddCmd) Run(ctx *cli.Context) error {
	bg := ctx.Context()
	if _, err := ctx.Store.GetHabitByName(bg, c.Name); err == nil {
		return fmt.Errorf("habit with name %q already exists", c.Name)
	} else if !apperrors.IsNotFound(err) {
		return err
	}

	s := c.Slug
	if s == "" {
		s = c.Name
	}
	habit := models.Habit{
		ID:        uuid.New().String(),
		Name:      c.Name,
		Slug:      slug.Make(s),
		Weight:    c.Weight,
		Active:    true,
		CreatedAt: ctx.Now(),
	}
	if _, err := ctx.Store.GetHabitBySlug(bg, habit.Slug); err == nil {
		return fmt.Errorf("habit with slug %q already exists", habit.Slug)
	}
	if err := habit.Validate(); err != nil {
		return err
	}
	if err := ctx.Store.AddHabit(bg, habit); err != nil {
		return err
	}

	ctx.Printf("Added habit: %s (%s, weight %g)\n", habit.Name, habit.Slug, habit.Weight)
	return nil
}

type HabitListCmd struct {
	All bool `help:"Include inactive habits."`
}

func (c *HabitListCmd) Run(ctx *cli.Context) error {
	habits, err := ctx.Store.GetAllHabits(ctx.Context(), c.All)
	if err != nil {
		return err
	}
	if len(habits) == 0 {
		ctx.Println("No habits found.")
		return nil
	}
	for _, h := range habits {
		status := ""
		if !h.Active {
			status = " [INACTIVE]"
		}
		ctx.Printf("%-24s %-20s weight %-6g%s\n", h.Name, cli.MutedStyle.Render(h.Slug), h.Weight, status)
	}
	return nil
}

type HabitDeactivateCmd struct {
	Habit string `arg:"" help:"Habit id, name or slug."`
}

func (c *HabitDeactivateCmd) Run(ctx *cli.Context) error {
	return setActive(ctx, c.Habit, false)
}

type HabitActivateCmd struct {
	Habit string `arg:"" help:"Habit id, name or slug."`
}

func (c *HabitActivateCmd) Run(ctx *cli.Context) error {
	return setActive(ctx, c.Habit, true)
}

func setActive(ctx *cli.Context, identifier string, active bool) error {
	eng, err := ctx.Engine()
	if err != nil {
		return err
	}
	habit, err := eng.ResolveHabit(ctx.Context(), identifier, false)
	if err != nil {
		return err
	}
	habit.Active = active
	if err := ctx.Store.UpdateHabit(ctx.Context(), habit); err != nil {
		return err
	}
	if active {
		ctx.Printf("Activated habit: %s\n", habit.Name)
	} else {
		ctx.Printf("Deactivated habit: %s\n", habit.Name)
	}
	return nil
}
