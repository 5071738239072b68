package users

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/julianstephens/habitreward/internal/cli"
	apperrors "github.com/julianstephens/habitreward/internal/errors"
	"github.com/julianstephens/habitreward/internal/models"
)

type UserCmd struct {
	Add        UserAddCmd        `cmd:"" help:"Register a user."`
	List       UserListCmd       `cmd:"" help:"List users."`
	Deactivate UserDeactivateCmd `cmd:"" help:"Deactivate a user. Completions are rejected until reactivated."`
	Activate   UserActivateCmd   `cmd:"" help:"Reactivate a user."`
}

type UserAddCmd struct {
	ExternalID string `arg:"" help:"External identifier (e.g. login name)."`
	Name       string `help:"Display name."`
	Locale     string `help:"Locale tag." default:"en"`
}

func (c *UserAddCmd) Run(ctx *cli.Context) error {
	if _, err := ctx.Store.GetUserByExternalID(ctx.Context(), c.ExternalID); err == nil {
		return fmt.Errorf("user %q already exists", c.ExternalID)
	} else if !apperrors.IsNotFound(err) {
		return err
	}

	user := models.User{
		ID:         uuid.New().String(),
		ExternalID: c.ExternalID,
		Name:       c.Name,
		Locale:     c.Locale,
		Active:     true,
		CreatedAt:  ctx.Now(),
	}
	if err := user.Validate(); err != nil {
		return err
	}
	if err := ctx.Store.AddUser(ctx.Context(), user); err != nil {
		return err
	}

	ctx.Printf("Added user: %s (%s)\n", c.ExternalID, user.ID)
	return nil
}

type UserListCmd struct{}

func (c *UserListCmd) Run(ctx *cli.Context) error {
	users, err := ctx.Store.GetAllUsers(ctx.Context())
	if err != nil {
		return err
	}
	if len(users) == 0 {
		ctx.Println("No users found.")
		return nil
	}
	for _, u := range users {
		status := ""
		if !u.Active {
			status = " [INACTIVE]"
		}
		ctx.Printf("%-16s %-20s %s%s\n", u.ExternalID, u.Name, cli.MutedStyle.Render(u.ID), status)
	}
	return nil
}

type UserDeactivateCmd struct {
	User string `arg:"" help:"User id or external id."`
}

func (c *UserDeactivateCmd) Run(ctx *cli.Context) error {
	return setActive(ctx, c.User, false)
}

type UserActivateCmd struct {
	User string `arg:"" help:"User id or external id."`
}

func (c *UserActivateCmd) Run(ctx *cli.Context) error {
	return setActive(ctx, c.User, true)
}

func setActive(ctx *cli.Context, identifier string, active bool) error {
	eng, err := ctx.Engine()
	if err != nil {
		return err
	}
	user, err := eng.ResolveUser(ctx.Context(), identifier)
	if err != nil {
		return err
	}
	user.Active = active
	if err := ctx.Store.UpdateUser(ctx.Context(), user); err != nil {
		return err
	}

	verb := "Deactivated"
	if active {
		verb = "Activated"
	}
	ctx.Printf("%s user: %s\n", verb, user.ExternalID)
	return nil
}
