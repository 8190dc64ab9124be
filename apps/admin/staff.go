package main

import (
	"context"
	"fmt"

	"github.com/trezcool/masomo-admin/core"
	"github.com/trezcool/masomo-admin/core/user"
)

// login authenticates against the API and prints the token to export for later commands.
func (cli *commandLine) login(uname, pwd string) error {
	res, err := cli.api.Login(context.Background(), core.CleanString(uname, true /* lower */), pwd)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Logged in as %s (%s)\n", res.User.Name, res.User.Username)
	fmt.Fprintf(cli.out, "export %s_APITOKEN=%s\n", cli.conf.Env, res.Token)
	return nil
}

// addUser registers a staff member; the API checks that the caller may grant the roles.
func (cli *commandLine) addUser(name, uname, email, pwd string, roles []string) error {
	usr, err := cli.api.CreateStaff(context.Background(), user.NewUser{
		Name:     name,
		Username: core.CleanString(uname, true /* lower */),
		Email:    core.CleanString(email, true /* lower */),
		Password: pwd,
		Roles:    roles,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Registered %s (%s)\n", usr.Username, usr.ID)
	return nil
}
