package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/okian/locapi/internal/domain/model"
	"github.com/okian/locapi/pkg/logger"
	"github.com/okian/locapi/pkg/metrics"
)

// expiryMargin refreshes sessions this long before they actually expire.
const expiryMargin = 10 * time.Second

// SignInWithPassword exchanges credentials for a session and stores it as
// the current session.
func (c *Client) SignInWithPassword(ctx context.Context, creds model.Credentials) (*model.AuthResponse, error) {
	sess, payload, err := c.grant(ctx, "password", creds)
	if err != nil {
		return nil, err
	}
	if err := c.sessions.Save(ctx, c.storageKey, sess); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSessionStorage, err)
	}
	if _, ok := payload["expires_at"]; !ok && sess.ExpiresAt != 0 {
		payload["expires_at"] = sess.ExpiresAt
	}
	res := &model.AuthResponse{Session: payload}
	if user, ok := payload["user"].(map[string]any); ok {
		res.User = user
	}
	if weak, ok := payload["weak_password"]; ok && weak != nil {
		res.WeakPassword = weak
	}
	return res, nil
}

// GetSession returns the current session, or nil when nobody is signed in.
// A session about to expire is refreshed first; if that fails the stored
// session is dropped and the error returned.
func (c *Client) GetSession(ctx context.Context) (*model.Session, error) {
	sess, err := c.sessions.Load(ctx, c.storageKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSessionStorage, err)
	}
	if sess == nil || !c.expiresSoon(sess) {
		return sess, nil
	}

	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	// Another request may have refreshed while we waited.
	sess, err = c.sessions.Load(ctx, c.storageKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSessionStorage, err)
	}
	if sess == nil || !c.expiresSoon(sess) {
		return sess, nil
	}

	if sess.RefreshToken == "" {
		_ = c.sessions.Remove(ctx, c.storageKey)
		return nil, nil
	}

	refreshed, _, err := c.grant(ctx, "refresh_token", map[string]string{"refresh_token": sess.RefreshToken})
	if err != nil {
		metrics.RecordSessionRefresh(metrics.OutcomeError)
		c.logger.Warn(ctx, "session refresh failed; signing out", logger.Error(err))
		_ = c.sessions.Remove(ctx, c.storageKey)
		return nil, err
	}
	metrics.RecordSessionRefresh(metrics.OutcomeOK)

	if err := c.sessions.Save(ctx, c.storageKey, refreshed); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSessionStorage, err)
	}
	return refreshed, nil
}

// SignOut forgets the current session locally.
func (c *Client) SignOut(ctx context.Context) error {
	if err := c.sessions.Remove(ctx, c.storageKey); err != nil {
		return fmt.Errorf("%w: %w", ErrSessionStorage, err)
	}
	return nil
}

// grant posts a token grant. It returns the typed session and the token
// response as received.
func (c *Client) grant(ctx context.Context, grantType string, body any) (*model.Session, map[string]any, error) {
	var raw json.RawMessage
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/v1/token",
		query:  url.Values{"grant_type": {grantType}},
		body:   body,
		out:    &raw,
	})
	if err != nil {
		return nil, nil, err
	}

	var sess model.Session
	payload := map[string]any{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &sess); err != nil {
			return nil, nil, fmt.Errorf("%w: decode token response: %w", ErrRequest, err)
		}
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		if err := dec.Decode(&payload); err != nil {
			return nil, nil, fmt.Errorf("%w: decode token response: %w", ErrRequest, err)
		}
	}
	if sess.AccessToken == "" {
		return nil, nil, fmt.Errorf("%w: token response without access_token", ErrRequest)
	}
	if sess.User.ID == "" {
		sess.User.ID = TokenSubject(sess.AccessToken)
	}
	if sess.ExpiresAt == 0 && sess.ExpiresIn > 0 {
		sess.ExpiresAt = c.now().Unix() + sess.ExpiresIn
	}
	return &sess, payload, nil
}

func (c *Client) expiresSoon(sess *model.Session) bool {
	exp := sessionExpiry(sess)
	if exp.IsZero() {
		return false
	}
	return !c.now().Add(expiryMargin).Before(exp)
}

// accessToken returns the bearer for data calls: the session's access token
// when someone is signed in, the API key otherwise.
func (c *Client) accessToken(ctx context.Context) string {
	sess, err := c.GetSession(ctx)
	if err != nil || sess == nil {
		return c.apiKey
	}
	return sess.AccessToken
}
