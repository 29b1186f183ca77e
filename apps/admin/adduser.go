package main

import (
	"context"
	"time"

	"github.com/kat-co/vala"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/access"
	"github.com/trezcool/darasa/core/user"
)

// addUser updates or creates an active user.User with the given role
func (cli *commandLine) addUser(name, email, role, pwd string) error {
	name = core.CleanString(name)
	email = core.CleanString(email, true /* lower */)
	if err := vala.BeginValidation().Validate(
		vala.StringNotEmpty(name, "name"),
		vala.StringNotEmpty(email, "email"),
	).Check(); err != nil {
		return err
	}

	r, err := access.ParseRole(role)
	if err != nil {
		return err
	}

	ctx := context.Background()
	now := time.Now().UTC()
	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{Email: email})
	if err != nil {
		if err != user.ErrNotFound {
			return err
		}
		usr = user.User{Email: email, CreatedAt: now}
	}
	usr.Name = name
	usr.Role = r
	usr.IsActive = true
	usr.UpdatedAt = now
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}
	if _, err := cli.usrRepo.UpdateOrCreateUser(ctx, usr); err != nil {
		return err
	}
	return nil
}
