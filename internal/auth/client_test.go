package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignUpCarriesRedirectAndChallenge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/v1/signup", r.URL.Path)
		require.Equal(t, "http://127.0.0.1:43117/redirect", r.URL.Query().Get("redirect_to"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "challenge-abc", body["code_challenge"])
		assert.Equal(t, "s256", body["code_challenge_method"])

		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "anon-key", time.Second, testLogger())
	err := client.SignUp(context.Background(), "mia@example.com", "hunter2", "http://127.0.0.1:43117/redirect", "challenge-abc")
	require.NoError(t, err)
}

func TestSignUpOmitsChallengeWhenEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, found := body["code_challenge"]
		assert.False(t, found)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "anon-key", time.Second, testLogger())
	require.NoError(t, client.SignUp(context.Background(), "mia@example.com", "hunter2", "", ""))
}

func TestProviderMessageFallsBackAcrossFields(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"error_description", `{"error_description":"Invalid login credentials"}`, "Invalid login credentials"},
		{"message", `{"message":"User already registered"}`, "User already registered"},
		{"msg", `{"msg":"Signup requires a valid password"}`, "Signup requires a valid password"},
		{"plain body", `service unavailable`, "service unavailable"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, providerMessage([]byte(tc.body)))
		})
	}
}

func TestSignInRejectsSessionWithoutToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "anon-key", time.Second, testLogger())
	_, err := client.SignIn(context.Background(), "mia@example.com", "hunter2")

	var provErr *ProviderError
	require.True(t, errors.As(err, &provErr))
}

func TestSignOutSendsBearer(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "anon-key", time.Second, testLogger())
	require.NoError(t, client.SignOut(context.Background(), "acc-1"))
	assert.Equal(t, "Bearer acc-1", gotAuth)
}
