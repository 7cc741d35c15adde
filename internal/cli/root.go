// Package cli wires the cobra command tree for the dashboard client.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/digkill/SweetheartDash/internal/api"
	"github.com/digkill/SweetheartDash/internal/auth"
	"github.com/digkill/SweetheartDash/internal/config"
	"github.com/digkill/SweetheartDash/internal/session"
	"github.com/digkill/SweetheartDash/pkg/logger"
)

// pkceVerifierKey is provider-namespaced on purpose so sign-out sweeps it
// away with the rest of the provider state.
const pkceVerifierKey = "sb-pkce-verifier"

type app struct {
	cfg   config.Config
	log   *slog.Logger
	store *session.Store
	api   *api.Client
	auth  *auth.Client
	flow  *auth.Flow
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	logr := logger.New(cfg.LogLevel)

	store, err := session.Open(cfg.StateDBPath)
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}

	authClient := auth.NewClient(cfg.AuthURL, cfg.AuthAnonKey, cfg.RequestTimeout, logr)

	return &app{
		cfg:   cfg,
		log:   logr,
		store: store,
		api:   api.NewClient(cfg.APIBaseURL, store, cfg.RequestTimeout, logr),
		auth:  authClient,
		flow:  auth.NewFlow(authClient, store, logr),
	}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.log.Error("close session store", "err", err)
	}
}

// requireSignIn checks for a stored credential and tells the user where to go
// when there is none.
func (a *app) requireSignIn(ctx context.Context) error {
	token, err := a.store.AccessToken(ctx)
	if err != nil {
		return err
	}
	if token == "" {
		return fmt.Errorf("not signed in; run `sweetdash login` first")
	}
	return nil
}

// NewRootCommand builds the full command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "sweetdash",
		Short:         "Terminal dashboard for your AI sweetheart",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newLoginCommand(),
		newSignupCommand(),
		newConfirmCommand(),
		newLogoutCommand(),
		newDashboardCommand(),
		newCreateCommand(),
		newGenerateCommand(),
		newChatCommand(),
		newGalleryCommand(),
		newUpgradeCommand(),
		newBillingCommand(),
	)

	return root
}

func newLoginCommand() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if email == "" {
				email = promptLine("Email: ")
			}
			if password == "" {
				password = promptLine("Password: ")
			}

			if err := a.flow.Login(cmd.Context(), email, password); err != nil {
				return err
			}
			fmt.Println("Signed in. Run `sweetdash dashboard` to get started.")
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	return cmd
}

func newSignupCommand() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if email == "" {
				email = promptLine("Email: ")
			}
			if password == "" {
				password = promptLine("Password: ")
			}

			pkce, err := auth.NewPKCE()
			if err != nil {
				return err
			}
			if err := a.store.Set(cmd.Context(), pkceVerifierKey, pkce.Verifier); err != nil {
				return err
			}

			listener := auth.NewCallbackServer(a.cfg.AuthRedirectAddr, a.log)
			if err := a.auth.SignUp(cmd.Context(), email, password, listener.RedirectURL(), pkce.Challenge); err != nil {
				return err
			}

			fmt.Println("Check your email to confirm your account, then run `sweetdash confirm`.")
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	return cmd
}

func newConfirmCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "confirm",
		Short: "Complete the email-confirmation redirect",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			verifier, err := a.store.Get(cmd.Context(), pkceVerifierKey)
			if err != nil {
				return err
			}
			if verifier == "" {
				return fmt.Errorf("no pending sign-up; run `sweetdash signup` first")
			}

			listener := auth.NewCallbackServer(a.cfg.AuthRedirectAddr, a.log)
			fmt.Printf("Open the confirmation link from your email; it redirects to %s\n", listener.RedirectURL())

			if err := a.flow.Confirm(cmd.Context(), listener, auth.PKCE{Verifier: verifier}); err != nil {
				return err
			}

			_ = a.store.Delete(cmd.Context(), pkceVerifierKey)
			fmt.Println("Confirmed and signed in. Run `sweetdash dashboard` to get started.")
			return nil
		},
	}
}

func newLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and clear local credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.flow.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("Signed out.")
			return nil
		},
	}
}

func promptLine(label string) string {
	fmt.Print(label)
	reader := bufio.NewReader(os.Stdin)
	line, _ := reader.ReadString('\n')
	return strings.TrimSpace(line)
}
