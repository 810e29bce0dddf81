package roblox

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/rbxmgr/rbxmgr/internal/common"
	"github.com/rbxmgr/rbxmgr/internal/models"
)

// Session carries the artifacts issued by a successful login.
type Session struct {
	SecurityToken string
	CSRFToken     string
}

// AuthenticatedUser fetches the profile behind the account's session
// artifact. A rejection means the session no longer authenticates.
func (c *Client) AuthenticatedUser(ctx context.Context, acct *models.Account) (*models.UserInfo, error) {
	resp, err := c.Do(ctx, http.MethodGet, c.eps.Users+"/v1/users/authenticated", nil, acct)
	if err != nil {
		return nil, err
	}

	var info models.UserInfo
	if err := decode(resp, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// AvatarURL resolves the headshot thumbnail URL for a user id.
func (c *Client) AvatarURL(ctx context.Context, userID int64) (string, error) {
	url := fmt.Sprintf(
		"%s/v1/users/avatar-headshot?userIds=%d&size=150x150&format=Png&isCircular=false",
		c.eps.Thumbnails, userID,
	)
	resp, err := c.Do(ctx, http.MethodGet, url, nil, nil)
	if err != nil {
		return "", err
	}

	var out struct {
		Data []struct {
			ImageURL string `json:"imageUrl"`
		} `json:"data"`
	}
	if err := decode(resp, &out); err != nil {
		return "", err
	}
	if len(out.Data) == 0 {
		return "", fmt.Errorf("%w: no thumbnail for user %d", common.ErrRemoteRejected, userID)
	}
	return out.Data[0].ImageURL, nil
}

// PresenceForUsers fetches presence records for a batch of user ids.
func (c *Client) PresenceForUsers(ctx context.Context, userIDs []int64, acct *models.Account) ([]models.Presence, error) {
	body := struct {
		UserIDs []int64 `json:"userIds"`
	}{UserIDs: userIDs}

	resp, err := c.Do(ctx, http.MethodPost, c.eps.Presence+"/v1/presence/users", body, acct)
	if err != nil {
		return nil, err
	}

	var out struct {
		UserPresences []models.Presence `json:"userPresences"`
	}
	if err := decode(resp, &out); err != nil {
		return nil, err
	}
	return out.UserPresences, nil
}

// Login authenticates with username/password and extracts the issued
// session artifacts from the response.
func (c *Client) Login(ctx context.Context, username, password string) (*Session, error) {
	body := struct {
		CType    string `json:"ctype"`
		CValue   string `json:"cvalue"`
		Password string `json:"password"`
	}{CType: "Username", CValue: username, Password: password}

	resp, err := c.Do(ctx, http.MethodPost, c.eps.Auth+"/v2/login", body, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: login status %d", common.ErrRemoteRejected, resp.StatusCode)
	}

	sess := &Session{CSRFToken: resp.Header.Get(csrfHeader)}
	for _, cookie := range resp.Cookies() {
		if cookie.Name == securityCookie {
			sess.SecurityToken = cookie.Value
			break
		}
	}
	if sess.SecurityToken == "" {
		return nil, fmt.Errorf("%w: login response carried no session cookie", common.ErrRemoteRejected)
	}
	return sess, nil
}

// Logout invalidates the account's session on the remote side.
func (c *Client) Logout(ctx context.Context, acct *models.Account) error {
	resp, err := c.Do(ctx, http.MethodPost, c.eps.Auth+"/v2/logout", nil, acct)
	if err != nil {
		return err
	}
	return decode(resp, nil)
}

// FetchCSRFToken obtains a fresh anti-forgery token. The service hands one
// back on the logout endpoint even when it rejects the call, so a 403 with
// a token header counts as success here.
func (c *Client) FetchCSRFToken(ctx context.Context, acct *models.Account) (string, error) {
	resp, err := c.send(ctx, http.MethodPost, c.eps.Auth+"/v2/logout", nil, acct)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	token := resp.Header.Get(csrfHeader)
	if token == "" {
		return "", fmt.Errorf("%w: no anti-forgery token in response", common.ErrRemoteRejected)
	}
	return strings.TrimSpace(token), nil
}
