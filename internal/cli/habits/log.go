package habits

import (
	"github.com/julianstephens/habitreward/internal/cli"
)

type LogCmd struct {
	User  string `arg:"" help:"User id or external id."`
	Habit string `arg:"" help:"Habit id, name or slug."`
}

func (c *LogCmd) Run(ctx *cli.Context) error {
	eng, err := ctx.Engine()
	if err != nil {
		return err
	}
	user, err := eng.ResolveUser(ctx.Context(), c.User)
	if err != nil {
		return err
	}
	habit, err := eng.ResolveHabit(ctx.Context(), c.Habit, false)
	if err != nil {
		return err
	}

	logs, err := ctx.Store.GetHabitLogs(ctx.Context(), user.ID, habit.ID)
	if err != nil {
		return err
	}
	if len(logs) == 0 {
		ctx.Printf("No completions of %s for %s.\n", habit.Name, user.ExternalID)
		return nil
	}

	rewards, err := ctx.Store.GetAllRewards(ctx.Context(), true)
	if err != nil {
		return err
	}
	names := make(map[string]string, len(rewards))
	for _, r := range rewards {
		names[r.ID] = r.Name
	}

	ctx.Println(cli.TitleStyle.Render(habit.Name + " / " + user.ExternalID))
	ctx.Printf("%-10s  %-10s  %6s  %7s  %s\n", "DATE", "LOGGED", "STREAK", "EFFORT", "REWARD")
	for _, l := range logs {
		reward := cli.MutedStyle.Render("-")
		if l.GotReward {
			reward = names[l.RewardID]
		}
		ctx.Printf("%-10s  %-10s  %6d  %7.1f  %s\n",
			l.CompletionDate, l.LoggedOn, l.StreakCount, l.TotalWeightApplied, reward)
	}
	return nil
}
