package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digkill/SweetheartDash/internal/models"
)

type staticToken string

func (t staticToken) AccessToken(ctx context.Context) (string, error) {
	return string(t), nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCallAttachesBearerAndJSONHeaders(t *testing.T) {
	var gotAuth, gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		w.Write([]byte(`{"plan":"pro","credits":7}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, staticToken("tok-123"), time.Second, testLogger())
	account, err := client.Me(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Bearer tok-123", gotAuth)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, models.PlanPro, account.Plan)
	assert.Equal(t, 7, account.Credits)
}

func TestCallFailsFastWithoutToken(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, staticToken(""), time.Second, testLogger())
	_, err := client.Me(context.Background())

	require.ErrorIs(t, err, ErrUnauthenticated)
	assert.Equal(t, int32(0), calls.Load(), "no network call without a credential")
}

func TestCallSurfacesStatusAndBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		w.Write([]byte("monthly limit reached"))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, staticToken("tok"), time.Second, testLogger())
	err := client.CreateImage(context.Background(), "a new look")

	var reqErr *RequestError
	require.True(t, errors.As(err, &reqErr))
	assert.Equal(t, http.StatusPaymentRequired, reqErr.Status)
	assert.Equal(t, "monthly limit reached", reqErr.Body)
}

func TestCreateInfluencerValidatesBeforeAnyCall(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, staticToken("tok"), time.Second, testLogger())

	var validationErr *ValidationError
	err := client.CreateInfluencer(context.Background(), "", "bio", "vibe")
	require.True(t, errors.As(err, &validationErr))
	assert.Equal(t, "name", validationErr.Field)

	err = client.CreateInfluencer(context.Background(), "Mia", "   ", "vibe")
	require.True(t, errors.As(err, &validationErr))
	assert.Equal(t, "bio", validationErr.Field)

	err = client.SendMessage(context.Background(), "  ")
	require.True(t, errors.As(err, &validationErr))

	err = client.CreateImage(context.Background(), "")
	require.True(t, errors.As(err, &validationErr))

	assert.Equal(t, int32(0), calls.Load(), "validation failures perform zero network calls")
}

func TestInfluencerAbsentDecodesAsNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"influencer":null}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, staticToken("tok"), time.Second, testLogger())
	influencer, err := client.Influencer(context.Background())
	require.NoError(t, err)
	assert.Nil(t, influencer)
	assert.False(t, influencer.Ready())
}

func TestChatAndGalleryShapes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/chat":
			w.Write([]byte(`{"chat":{"id":"c1"},"messages":[{"role":"user","content":"hi"},{"role":"assistant","content":"hello"}],"can_send":true}`))
		case "/api/images":
			w.Write([]byte(`{"images":[{"url":"https://x/1.png"},{"url":"https://x/2.png"}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := NewClient(srv.URL, staticToken("tok"), time.Second, testLogger())

	chat, err := client.Chat(context.Background())
	require.NoError(t, err)
	require.NotNil(t, chat.Chat)
	assert.Equal(t, "c1", chat.Chat.ID)
	assert.Equal(t, models.RoleAssistant, chat.LastRole())
	assert.True(t, chat.CanSend)

	gallery, err := client.Images(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, gallery.Count())
}

func TestUpgradeReturnsCheckoutURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		w.Write([]byte(`{"url":"https://checkout.example/session"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, staticToken("tok"), time.Second, testLogger())
	url, err := client.Upgrade(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.example/session", url)
}
