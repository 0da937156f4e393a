package cli

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

// promptPassword asks on stdin when --password was not given.
func promptPassword(password string) (string, error) {
	if password != "" {
		return password, nil
	}
	fmt.Print("Password: ")
	if _, err := fmt.Scanln(&password); err != nil || password == "" {
		return "", errors.New("password required")
	}
	return password, nil
}

func init() {
	// login
	var lUser, lPass string
	loginCmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and remember the access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if lUser == "" {
				return errors.New("--username required")
			}
			pass, err := promptPassword(lPass)
			if err != nil {
				return err
			}
			res, err := api.Login(cmd.Context(), lUser, pass)
			if err != nil {
				slog.Error("login failed", "username", lUser, "error", err)
				return err
			}
			slog.Info("signed in", "user_id", res.User.ID)
			fmt.Println(res.Message)
			return nil
		},
	}
	loginCmd.Flags().StringVar(&lUser, "username", "", "username")
	loginCmd.Flags().StringVar(&lPass, "password", "", "password (prompted when empty)")
	rootCmd.AddCommand(loginCmd)

	// register
	var rUser, rEmail, rPass string
	registerCmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		RunE: func(cmd *cobra.Command, args []string) error {
			if rUser == "" {
				return errors.New("--username required")
			}
			pass, err := promptPassword(rPass)
			if err != nil {
				return err
			}
			res, err := api.Register(cmd.Context(), rUser, rEmail, pass)
			if err != nil {
				slog.Error("register failed", "username", rUser, "error", err)
				return err
			}
			slog.Info("account created", "user_id", res.User.ID)
			fmt.Println(res.Message)
			return nil
		},
	}
	registerCmd.Flags().StringVar(&rUser, "username", "", "username")
	registerCmd.Flags().StringVar(&rEmail, "email", "", "email")
	registerCmd.Flags().StringVar(&rPass, "password", "", "password (prompted when empty)")
	rootCmd.AddCommand(registerCmd)

	// profile
	rootCmd.AddCommand(&cobra.Command{
		Use:   "profile",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := api.Profile(cmd.Context())
			if err != nil {
				return err
			}
			printJSON(u)
			return nil
		},
	})

	// logout
	rootCmd.AddCommand(&cobra.Command{
		Use:   "logout",
		Short: "Forget the stored access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := api.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("signed out")
			return nil
		},
	})
}
