package roblox

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rbxmgr/rbxmgr/internal/common"
	"github.com/rbxmgr/rbxmgr/internal/logging"
	"github.com/rbxmgr/rbxmgr/internal/models"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	eps := Endpoints{Auth: srv.URL, Users: srv.URL, Thumbnails: srv.URL, Presence: srv.URL}
	return New(eps, 5*time.Second, logging.NewNop())
}

func testAccount() *models.Account {
	a := models.New(models.Draft{Username: "alice", Password: "pw"})
	a.SecurityToken = "sess-token"
	a.CSRFToken = "old-csrf"
	return a
}

func TestAuthenticatedUser_Success(t *testing.T) {
	var gotCookie, gotCSRF string
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if cookie, err := r.Cookie(".ROBLOSECURITY"); err == nil {
			gotCookie = cookie.Value
		}
		gotCSRF = r.Header.Get("X-CSRF-TOKEN")
		json.NewEncoder(w).Encode(models.UserInfo{ID: 42, Name: "carol"})
	}))

	acct := testAccount()
	info, err := c.AuthenticatedUser(context.Background(), acct)
	require.NoError(t, err)

	assert.Equal(t, int64(42), info.ID)
	assert.Equal(t, "carol", info.Name)
	assert.Equal(t, "sess-token", gotCookie)
	assert.Equal(t, "old-csrf", gotCSRF)
}

func TestAuthenticatedUser_Rejected(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	_, err := c.AuthenticatedUser(context.Background(), testAccount())
	assert.ErrorIs(t, err, common.ErrRemoteRejected)
}

func TestDo_RetriesOnceOn403WithFreshToken(t *testing.T) {
	var calls int
	var tokens []string
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		tokens = append(tokens, r.Header.Get("X-CSRF-TOKEN"))
		if calls == 1 {
			w.Header().Set("X-CSRF-TOKEN", "fresh-csrf")
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	acct := testAccount()
	resp, err := c.Do(context.Background(), http.MethodPost, c.eps.Presence+"/v1/presence/users", map[string]any{}, acct)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, calls)
	assert.Equal(t, []string{"old-csrf", "fresh-csrf"}, tokens)
	assert.Equal(t, "fresh-csrf", acct.CSRFToken, "token refreshed in place")
}

func TestDo_SecondForbiddenSurfaces(t *testing.T) {
	var calls int
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("X-CSRF-TOKEN", "always-fresh")
		w.WriteHeader(http.StatusForbidden)
	}))

	resp, err := c.Do(context.Background(), http.MethodPost, c.eps.Auth+"/v2/logout", nil, testAccount())
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusForbidden, resp.StatusCode, "no infinite retry")
	assert.Equal(t, 2, calls)
}

func TestDo_NoRetryWithoutAccount(t *testing.T) {
	var calls int
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("X-CSRF-TOKEN", "fresh")
		w.WriteHeader(http.StatusForbidden)
	}))

	resp, err := c.Do(context.Background(), http.MethodGet, c.eps.Users+"/v1/users/authenticated", nil, nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, 1, calls)
}

func TestDo_NetworkErrorWraps(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close() // dead endpoint

	c := New(Endpoints{Users: srv.URL}, time.Second, logging.NewNop())
	_, err := c.AuthenticatedUser(context.Background(), testAccount())
	assert.ErrorIs(t, err, common.ErrNetwork)
}

func TestLogin_ExtractsSession(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			CValue   string `json:"cvalue"`
			Password string `json:"password"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "alice", body.CValue)

		http.SetCookie(w, &http.Cookie{Name: ".ROBLOSECURITY", Value: "issued-token"})
		w.Header().Set("X-CSRF-TOKEN", "issued-csrf")
		w.WriteHeader(http.StatusOK)
	}))

	sess, err := c.Login(context.Background(), "alice", "pw")
	require.NoError(t, err)
	assert.Equal(t, "issued-token", sess.SecurityToken)
	assert.Equal(t, "issued-csrf", sess.CSRFToken)
}

func TestLogin_NoCookieIsRejection(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	_, err := c.Login(context.Background(), "alice", "pw")
	assert.ErrorIs(t, err, common.ErrRemoteRejected)
}

func TestFetchCSRFToken_From403(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-CSRF-TOKEN", "the-token")
		w.WriteHeader(http.StatusForbidden)
	}))

	token, err := c.FetchCSRFToken(context.Background(), testAccount())
	require.NoError(t, err)
	assert.Equal(t, "the-token", token)
}

func TestAvatarURL(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.RawQuery, "userIds=42")
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]string{{"imageUrl": "https://cdn.example/42.png"}},
		})
	}))

	url, err := c.AvatarURL(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/42.png", url)
}

func TestPresenceForUsers(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			UserIDs []int64 `json:"userIds"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []int64{42}, body.UserIDs)
		json.NewEncoder(w).Encode(map[string]any{
			"userPresences": []models.Presence{{UserPresenceType: 2, UserID: 42, LastLocation: "SomeGame"}},
		})
	}))

	got, err := c.PresenceForUsers(context.Background(), []int64{42}, testAccount())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 2, got[0].UserPresenceType)
}
