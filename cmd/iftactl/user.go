package main

import (
	"fmt"

	"github.com/StamperDavid/rapid-crm-sub009/internal/model"
	"github.com/StamperDavid/rapid-crm-sub009/internal/repository"
	"github.com/StamperDavid/rapid-crm-sub009/internal/service"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var newUser service.CreateUserRequest

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage dashboard users",
}

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a dashboard user",
	Long:  `Create a dashboard user. Use this to bootstrap the first admin account.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(newUser.Password) < 6 {
			return eris.New("password must be at least 6 characters")
		}
		svc := service.NewUserService(repository.NewUserRepository(db), cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
		user, err := svc.CreateUser(cmd.Context(), newUser)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created %s %s (%s)\n", user.Role, user.Username, user.ID)
		return nil
	},
}

func init() {
	f := userCreateCmd.Flags()
	f.StringVar(&newUser.Username, "username", "", "Login name")
	f.StringVar(&newUser.Email, "email", "", "Email address")
	f.StringVar(&newUser.Password, "password", "", "Password, at least 6 characters")
	f.StringVar(&newUser.Role, "role", model.RoleAdmin, "Role: admin, manager or staff")
	_ = userCreateCmd.MarkFlagRequired("username")
	_ = userCreateCmd.MarkFlagRequired("email")
	_ = userCreateCmd.MarkFlagRequired("password")
}
