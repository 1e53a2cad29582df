package xolog

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// tokens are renewed this long before they expire
const refreshSkew = 30 * time.Second

// bearer returns a valid token, signing in when the cached one is missing or
// about to expire. Concurrent callers share a single sign-in, which runs
// detached from any one caller so a cancelled request does not fail the rest.
// Without configured credentials requests go out unauthenticated.
func (c *Client) bearer(ctx context.Context) (string, error) {
	if c.email == "" {
		return "", nil
	}
	if tok, ok := c.cached(); ok {
		return tok, nil
	}
	ch := c.logins.DoChan("login", func() (any, error) {
		// a flight that finished since the check above may have stored one
		if tok, ok := c.cached(); ok {
			return tok, nil
		}
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.loginTimeout)
		defer cancel()
		tok, exp, err := c.login(lctx)
		if err != nil {
			return "", err
		}
		c.mu.Lock()
		c.token, c.expires = tok, exp
		c.mu.Unlock()
		return tok, nil
	})
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (c *Client) cached() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && c.now().Add(refreshSkew).Before(c.expires) {
		return c.token, true
	}
	return "", false
}

// invalidate forgets tok unless another caller already replaced it.
func (c *Client) invalidate(tok string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == tok {
		c.token = ""
		c.expires = time.Time{}
	}
}

func (c *Client) login(ctx context.Context) (string, time.Time, error) {
	creds := map[string]string{"email": c.email, "password": c.password}
	raw, err := c.send(ctx, http.MethodPost, loginPath, nil, creds, "")
	if err != nil {
		return "", time.Time{}, fmt.Errorf("login: %w", err)
	}
	var body struct {
		Token string `json:"token"`
		Data  struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return "", time.Time{}, fmt.Errorf("login: %w: %v", ErrMalformedResponse, err)
	}
	tok := body.Token
	if tok == "" {
		tok = body.Data.Token
	}
	if tok == "" {
		return "", time.Time{}, fmt.Errorf("login: %w: no token in response", ErrMalformedResponse)
	}
	exp, ok := tokenExpiry(tok)
	if !ok {
		exp = c.now().Add(c.ttl)
	}
	c.log.Info("xolog.auth.login", "expires", exp)
	return tok, exp, nil
}

// tokenExpiry reads the exp claim of a JWT without verifying it.
func tokenExpiry(tok string) (time.Time, bool) {
	parts := strings.Split(tok, ".")
	if len(parts) != 3 {
		return time.Time{}, false
	}
	payload, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(parts[1], "="))
	if err != nil {
		return time.Time{}, false
	}
	var claims struct {
		Exp int64 `json:"exp"`
	}
	if json.Unmarshal(payload, &claims) != nil || claims.Exp <= 0 {
		return time.Time{}, false
	}
	return time.Unix(claims.Exp, 0), true
}
