package auth

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/digkill/SweetheartDash/internal/session"
)

// Flow ties the provider client to the local credential store and implements
// the sign-in, confirmation, and sign-out behaviors around the dashboard.
type Flow struct {
	client *Client
	store  *session.Store
	log    *slog.Logger
}

func NewFlow(client *Client, store *session.Store, log *slog.Logger) *Flow {
	return &Flow{client: client, store: store, log: log}
}

// Login signs in with email/password and persists the issued tokens. On
// provider failure the error message is returned verbatim and nothing is
// stored.
func (f *Flow) Login(ctx context.Context, email, password string) error {
	sess, err := f.client.SignIn(ctx, email, password)
	if err != nil {
		return err
	}
	if err := f.store.SaveTokens(ctx, sess.AccessToken, sess.RefreshToken); err != nil {
		return fmt.Errorf("persist tokens: %w", err)
	}
	return nil
}

// Confirm completes the email-confirmation / PKCE redirect: it waits for the
// provider to hit the loopback listener, exchanges the authorization code (or
// installs a directly delivered token pair), and persists the session.
func (f *Flow) Confirm(ctx context.Context, listener *CallbackServer, pkce PKCE) error {
	result, err := listener.Wait(ctx)
	if err != nil {
		return err
	}

	if result.ErrorDescription != "" {
		return &ProviderError{Message: result.ErrorDescription}
	}

	switch {
	case result.Code != "":
		sess, err := f.client.ExchangeCode(ctx, result.Code, pkce.Verifier)
		if err != nil {
			return err
		}
		if err := f.store.SaveTokens(ctx, sess.AccessToken, sess.RefreshToken); err != nil {
			return fmt.Errorf("persist tokens: %w", err)
		}
	case result.AccessToken != "":
		if err := f.store.SaveTokens(ctx, result.AccessToken, result.RefreshToken); err != nil {
			return fmt.Errorf("persist tokens: %w", err)
		}
	default:
		return &ProviderError{Message: "redirect carried neither a code nor a token"}
	}

	return nil
}

// Logout clears every locally cached credential and revokes the session with
// the provider. Provider failures are logged, not returned: the local state
// is gone either way.
func (f *Flow) Logout(ctx context.Context) error {
	token, err := f.store.AccessToken(ctx)
	if err != nil {
		return err
	}

	if err := f.store.ClearCredentials(ctx); err != nil {
		return err
	}

	if token != "" {
		if err := f.client.SignOut(ctx, token); err != nil {
			f.log.Warn("provider sign-out failed", "err", err)
		}
	}
	return nil
}
