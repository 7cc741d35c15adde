package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// CallbackResult is what the provider's redirect delivered: an authorization
// code on success, or the provider's error text. Some flow variants hand the
// token pair over directly instead of a code.
type CallbackResult struct {
	Code             string
	AccessToken      string
	RefreshToken     string
	ErrorDescription string
}

// CallbackServer is a loopback HTTP listener that captures a single provider
// redirect. The raw query is consumed in-process and never logged or stored,
// so tokens cannot leak into shell history or log files.
type CallbackServer struct {
	addr string
	log  *slog.Logger

	mu    sync.Mutex
	bound string
}

func NewCallbackServer(addr string, log *slog.Logger) *CallbackServer {
	return &CallbackServer{addr: addr, log: log}
}

// RedirectURL is the value to register with the provider as the redirect
// target.
func (s *CallbackServer) RedirectURL() string {
	return "http://" + s.addr + "/redirect"
}

// BoundAddr reports the address the listener actually bound, once Wait has
// started serving.
func (s *CallbackServer) BoundAddr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bound
}

// Wait serves until one redirect arrives or ctx is cancelled.
func (s *CallbackServer) Wait(ctx context.Context) (CallbackResult, error) {
	results := make(chan CallbackResult, 1)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/redirect", func(w http.ResponseWriter, req *http.Request) {
		q := req.URL.Query()
		result := CallbackResult{
			Code:             q.Get("code"),
			AccessToken:      q.Get("access_token"),
			RefreshToken:     q.Get("refresh_token"),
			ErrorDescription: q.Get("error_description"),
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if result.ErrorDescription != "" {
			fmt.Fprint(w, "<html><body><p>Sign-in failed. You can close this window.</p></body></html>")
		} else {
			fmt.Fprint(w, "<html><body><p>Signed in. You can close this window and return to the terminal.</p></body></html>")
		}

		select {
		case results <- result:
		default:
		}
	})

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return CallbackResult{}, fmt.Errorf("listen %s: %w", s.addr, err)
	}

	s.mu.Lock()
	s.bound = ln.Addr().String()
	s.mu.Unlock()

	srv := &http.Server{
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
	}()

	if s.log != nil {
		s.log.Info("waiting for provider redirect", "addr", s.bound)
	}

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil && s.log != nil {
			s.log.Error("callback shutdown error", "err", err)
		}
	}()

	select {
	case result := <-results:
		return result, nil
	case err := <-errs:
		return CallbackResult{}, fmt.Errorf("callback listener: %w", err)
	case <-ctx.Done():
		return CallbackResult{}, ctx.Err()
	}
}
