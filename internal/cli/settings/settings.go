package settings

import (
	"fmt"
	"sort"

	"github.com/julianstephens/habitreward/internal/cli"
	"github.com/julianstephens/habitreward/internal/engine"
	"github.com/julianstephens/habitreward/internal/storage"
)

type SettingsCmd struct {
	Show SettingsShowCmd `cmd:"" help:"Show engine settings." default:"1"`
	Set  SettingsSetCmd  `cmd:"" help:"Change one engine setting."`
}

type SettingsShowCmd struct{}

func (c *SettingsShowCmd) Run(ctx *cli.Context) error {
	settings, err := ctx.Store.GetSettings(ctx.Context())
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	rows := storage.EncodeSettings(settings)
	keys := make([]string, 0, len(rows))
	for k := range rows {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ctx.Println(cli.TitleStyle.Render("Engine Settings:"))
	for _, k := range keys {
		ctx.Printf("  %-18s %s\n", k, rows[k])
	}
	return nil
}

type SettingsSetCmd struct {
	Key   string `arg:"" help:"Setting name (see 'settings show')."`
	Value string `arg:"" help:"New value."`
}

func (c *SettingsSetCmd) Run(ctx *cli.Context) error {
	settings, err := ctx.Store.GetSettings(ctx.Context())
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	if err := storage.SetSetting(&settings, c.Key, c.Value); err != nil {
		return err
	}
	if _, err := engine.ConfigFromSettings(settings); err != nil {
		return err
	}
	if err := ctx.Store.SaveSettings(ctx.Context(), settings); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	ctx.ResetEngine()

	ctx.Printf("Set %s = %s\n", c.Key, c.Value)
	return nil
}
