package main

import (
	"context"

	"github.com/passify/backend/core"
	"github.com/passify/backend/core/user"
)

// addAdmin registers a new admin user.User
func (cli *commandLine) addAdmin(email, name string) error {
	ctx := context.Background()

	nu := user.NewUser{
		Email: core.CleanString(email, true /* lower */),
		Name:  core.CleanString(name),
		Role:  user.RoleAdmin,
	}
	if err := cli.usrSvc.CheckUniqueness(nu.Email, ""); err != nil {
		return err
	}
	if _, err := cli.usrSvc.Register(ctx, nu); err != nil {
		return err
	}
	return nil
}
