package rewards

import (
	"github.com/julianstephens/habitreward/internal/cli"
)

type ProgressCmd struct {
	User string `arg:"" help:"User id or external id."`
}

func (c *ProgressCmd) Run(ctx *cli.Context) error {
	eng, err := ctx.Engine()
	if err != nil {
		return err
	}
	user, err := eng.ResolveUser(ctx.Context(), c.User)
	if err != nil {
		return err
	}

	rows, err := ctx.Store.GetAllProgress(ctx.Context(), user.ID)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		ctx.Printf("No reward progress for %s yet.\n", user.ExternalID)
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

	ctx.Println(cli.TitleStyle.Render("Progress for " + user.ExternalID))
	for _, p := range rows {
		name := names[p.RewardID]
		if name == "" {
			name = p.RewardID
		}
		ctx.Printf("  %-24s %s\n", name, cli.ProgressBar(p))
	}
	return nil
}
