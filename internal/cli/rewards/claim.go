package rewards

import (
	"github.com/julianstephens/habitreward/internal/cli"
)

type ClaimCmd struct {
	User   string `arg:"" help:"User id or external id."`
	Reward string `arg:"" help:"Reward id, name or slug."`
}

func (c *ClaimCmd) Run(ctx *cli.Context) error {
	eng, err := ctx.Engine()
	if err != nil {
		return err
	}
	res, err := eng.ClaimReward(ctx.Context(), c.User, c.Reward)
	if err != nil {
		return err
	}
	ctx.Println(cli.BoxStyle.Render(cli.RewardStyle.Render("★ Claimed "+res.Reward.Name) + "\n" + cli.ProgressBar(res.Progress)))
	return nil
}
