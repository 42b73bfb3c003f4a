// AngelaMos | 2026
// api.go

package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"

	"github.com/carterperez-dev/playvault/internal/access"
	"github.com/carterperez-dev/playvault/internal/auth"
	"github.com/carterperez-dev/playvault/internal/document"
	"github.com/carterperez-dev/playvault/internal/game"
	"github.com/carterperez-dev/playvault/internal/protocol"
	"github.com/carterperez-dev/playvault/internal/score"
	"github.com/carterperez-dev/playvault/internal/tier"
)

// Login starts a cookie session.
func (c *Client) Login(ctx context.Context, email, password string) (*auth.UserResponse, error) {
	var resp auth.AuthResponse
	err := c.sendJSON(ctx, "login", http.MethodPost, "/auth/login",
		auth.LoginRequest{Email: email, Password: password}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp.User, nil
}

func (c *Client) Register(ctx context.Context, email, password, name string) (*auth.UserResponse, error) {
	var resp auth.AuthResponse
	err := c.sendJSON(ctx, "register", http.MethodPost, "/auth/register",
		auth.RegisterRequest{Email: email, Password: password, Name: name}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp.User, nil
}

// Me is the auth check. A 401 here is ErrNotLoggedIn rather than
// ErrAuthenticationRequired, so callers do not bounce to login while
// checking whether they need to.
func (c *Client) Me(ctx context.Context) (*auth.UserResponse, error) {
	var u auth.UserResponse
	if _, err := c.getJSON(ctx, "me", "/auth/me", nil, &u); err != nil {
		if errors.Is(err, ErrAuthenticationRequired) {
			return nil, ErrNotLoggedIn
		}
		return nil, err
	}
	return &u, nil
}

func (c *Client) Logout(ctx context.Context) error {
	return c.sendJSON(ctx, "logout", http.MethodPost, "/auth/logout", nil, nil)
}

func (c *Client) Tiers(ctx context.Context) ([]tier.TierResponse, error) {
	var tiers []tier.TierResponse
	if _, err := c.getJSON(ctx, "list tiers", "/tiers", nil, &tiers); err != nil {
		return nil, err
	}
	return tiers, nil
}

// CheckAccess asks the server to resolve one capability for the caller.
// A denied decision is a normal result, not an error.
func (c *Client) CheckAccess(ctx context.Context, capability string) (*access.CheckResponse, error) {
	var resp access.CheckResponse
	path := "/access/" + url.PathEscape(capability)
	if _, err := c.getJSON(ctx, "check access", path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Games(ctx context.Context) ([]game.GameResponse, error) {
	var games []game.GameResponse
	if _, err := c.getJSON(ctx, "list games", "/games", nil, &games); err != nil {
		return nil, err
	}
	return games, nil
}

// SubmitScore posts a finished game's score. It satisfies
// protocol.ScoreSubmitter so a host session can report straight to the API.
func (c *Client) SubmitScore(ctx context.Context, sub protocol.Submission) error {
	return c.sendJSON(ctx, "submit score", http.MethodPost, "/scores", score.SubmitScoreRequest{
		GameSlug: sub.GameSlug,
		Score:    &sub.Score,
		Origin:   sub.Origin,
	}, nil)
}

func (c *Client) Leaderboard(ctx context.Context, gameSlug string) ([]score.LeaderboardResponse, error) {
	var board []score.LeaderboardResponse
	path := "/scores/game/" + url.PathEscape(gameSlug)
	if _, err := c.getJSON(ctx, "leaderboard", path, nil, &board); err != nil {
		return nil, err
	}
	return board, nil
}

// UploadDocument sends a PDF as the multipart field "file". The returned
// document is pending; use WaitForDocument to follow it.
func (c *Client) UploadDocument(ctx context.Context, filename string, r io.Reader) (*document.UploadResponse, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return nil, fmt.Errorf("upload: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("upload: read file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/documents/upload", nil), &buf)
	if err != nil {
		return nil, fmt.Errorf("upload: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var resp document.UploadResponse
	if _, err := c.do("upload", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Document(ctx context.Context, id string) (*document.DetailResponse, error) {
	var doc document.DetailResponse
	path := "/documents/" + url.PathEscape(id)
	if _, err := c.getJSON(ctx, "get document", path, nil, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (c *Client) Documents(ctx context.Context, limit, offset int) ([]document.ListItemResponse, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}

	var docs []document.ListItemResponse
	if _, err := c.getJSON(ctx, "list documents", "/documents", q, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func (c *Client) DeleteDocument(ctx context.Context, id string) error {
	path := "/documents/" + url.PathEscape(id)
	return c.sendJSON(ctx, "delete document", http.MethodDelete, path, nil, nil)
}

var _ protocol.ScoreSubmitter = (*Client)(nil)
