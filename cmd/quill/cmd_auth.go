package main

import (
	"github.com/spf13/cobra"

	"github.com/zhubert/quill/api"
	"github.com/zhubert/quill/storage"
	"github.com/zhubert/quill/view"
)

func newLoginCmd(a *app) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to the blog",
		Long: `Log in with your email and password. Missing values are prompted for.

The token is stored in the session storage and shared with every other
quill process, including running shells.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			email, err := a.prompt("Email", email)
			if err != nil {
				return err
			}
			password, err := a.prompt("Password", password)
			if err != nil {
				return err
			}
			if err := a.account.Login(cmd.Context(), email, password); err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write([]byte(view.Greeting(a.store.Snapshot()) + "\n"))
			return err
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	return cmd
}

func newRegisterCmd(a *app) *cobra.Command {
	var email, password, name string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and log in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			email, err := a.prompt("Email", email)
			if err != nil {
				return err
			}
			name, err := a.prompt("Name", name)
			if err != nil {
				return err
			}
			password, err := a.prompt("Password", password)
			if err != nil {
				return err
			}
			if err := a.account.Register(cmd.Context(), email, password, name); err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write([]byte(view.Greeting(a.store.Snapshot()) + "\n"))
			return err
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log out everywhere on this machine",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.account.Logout(cmd.Context()); err != nil {
				return err
			}
			_, err := cmd.OutOrStdout().Write([]byte(view.Greeting(a.store.Snapshot()) + "\n"))
			return err
		},
	}
}

func newWhoamiCmd(a *app, opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show who is logged in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.renderer(opts)
			if err != nil {
				return err
			}

			st := a.store.Snapshot()
			var claims *api.TokenClaims
			if st.LoggedIn {
				token, ok, err := a.backend.Storage.Get(cmd.Context(), storage.KeyCredential)
				if err != nil {
					return err
				}
				if ok {
					// opaque tokens are fine; only JWTs carry an expiry
					claims, _ = api.ParseTokenClaims(token)
				}
			}
			return r.Identity(st, claims)
		},
	}
}
