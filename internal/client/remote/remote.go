// Package remote drives a hostsboxd session over its JSON API. Client
// satisfies the same controller interface as a local session.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/atinyakov/HostsBox/internal/models"
	"github.com/atinyakov/HostsBox/internal/session"
)

// APIError is a non-2xx reply. It unwraps to the matching models sentinel.
type APIError struct {
	Status    int
	Code      string `json:"code"`
	Message   string `json:"error"`
	Sandboxed bool   `json:"sandboxed"`
	Confirm   string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (%d)", e.Message, e.Status)
}

// Unwrap exposes the sentinel errors named by Code and Sandboxed.
func (e *APIError) Unwrap() []error {
	var errs []error
	if err := models.ErrorForCode(e.Code); err != nil {
		errs = append(errs, err)
	}
	if e.Sandboxed {
		errs = append(errs, models.ErrSandboxed)
	}
	return errs
}

type entriesResponse struct {
	Entries  []models.Entry `json:"entries"`
	Selected []string       `json:"selected"`
}

// pendingContent is an entry buffer held until SaveCurrentEntry sends it.
type pendingContent struct {
	id      string
	content string
}

// Client talks to one daemon. Methods whose local counterpart cannot fail
// report transport errors through OnError. A Client is not safe for
// concurrent use.
type Client struct {
	http    *http.Client
	baseURL string
	pending *pendingContent
	// OnError receives errors of methods without an error result.
	OnError func(error)
}

// New returns a Client for baseURL, e.g. "http://localhost:8080".
func New(baseURL string) *Client {
	return &Client{
		http:    &http.Client{},
		baseURL: baseURL,
		OnError: func(error) {},
	}
}

// WithHTTPClient replaces the underlying http.Client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.http = hc
	return c
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		data, _ := io.ReadAll(resp.Body)
		if json.Unmarshal(data, apiErr) != nil || apiErr.Message == "" {
			apiErr.Message = string(bytes.TrimSpace(data))
		}
		return apiErr
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) report(err error) {
	if err != nil {
		c.OnError(err)
	}
}

func entryPath(id string) string {
	return "/api/entries/" + url.PathEscape(id)
}

func (c *Client) entries() entriesResponse {
	var resp entriesResponse
	c.report(c.do(context.Background(), http.MethodGet, "/api/entries", nil, &resp))
	return resp
}

// Entries returns the daemon's entry list.
func (c *Client) Entries() []models.Entry { return c.entries().Entries }

// Selected returns the daemon's selection.
func (c *Client) Selected() []string { return c.entries().Selected }

// View returns the daemon's current view.
func (c *Client) View() session.View {
	var v session.View
	c.report(c.do(context.Background(), http.MethodGet, "/api/view", nil, &v))
	return v
}

// Preview returns the text the daemon would write now.
func (c *Client) Preview() string {
	var resp struct {
		Content string `json:"content"`
	}
	c.report(c.do(context.Background(), http.MethodGet, "/api/preview", nil, &resp))
	return resp.Content
}

// CreateEntry creates an inactive entry.
func (c *Client) CreateEntry(ctx context.Context, name string) (models.Entry, error) {
	var e models.Entry
	err := c.do(ctx, http.MethodPost, "/api/entries", map[string]string{"name": name}, &e)
	return e, err
}

// ToggleEntryActive sets the active flag of an entry.
func (c *Client) ToggleEntryActive(ctx context.Context, id string, active bool) error {
	return c.do(ctx, http.MethodPut, entryPath(id)+"/active", map[string]bool{"active": active}, nil)
}

// SelectEntry opens an entry on the daemon.
func (c *Client) SelectEntry(id string) error {
	return c.do(context.Background(), http.MethodPost, "/api/view/entries/"+url.PathEscape(id), nil, nil)
}

// SetBuffer replaces the edit buffer. Only the default buffer has its own
// route; an entry buffer is sent with SaveCurrentEntry.
func (c *Client) SetBuffer(content string) error {
	v := c.View()
	if v.Mode == session.ViewingEntry {
		c.pending = &pendingContent{id: v.EntryID, content: content}
		return nil
	}
	return c.do(context.Background(), http.MethodPut, "/api/default/buffer", map[string]string{"content": content}, nil)
}

// SaveCurrentEntry saves the buffer of the open entry.
func (c *Client) SaveCurrentEntry(ctx context.Context) error {
	p := c.pending
	c.pending = nil
	if p == nil {
		v := c.View()
		if v.Mode != session.ViewingEntry {
			return fmt.Errorf("%w: no entry selected", models.ErrInvalidState)
		}
		p = &pendingContent{id: v.EntryID, content: v.Content}
	}
	return c.do(ctx, http.MethodPut, entryPath(p.id)+"/content", map[string]string{"content": p.content}, nil)
}

// DeleteEntry deletes an entry.
func (c *Client) DeleteEntry(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, entryPath(id), nil, nil)
}

// SelectSystem shows the system hosts view.
func (c *Client) SelectSystem() {
	c.report(c.do(context.Background(), http.MethodPost, "/api/view/system", nil, nil))
}

// SelectDefault shows the default entry.
func (c *Client) SelectDefault() {
	c.report(c.do(context.Background(), http.MethodPost, "/api/view/default", nil, nil))
}

// EditDefault starts editing the default entry.
func (c *Client) EditDefault() error {
	return c.do(context.Background(), http.MethodPost, "/api/default/edit", nil, nil)
}

// SaveDefault saves the default buffer without applying it.
func (c *Client) SaveDefault(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/default/save", nil, nil)
}

// SaveDefaultAndApply saves the default buffer and applies it.
func (c *Client) SaveDefaultAndApply(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/default/save?apply=true", nil, nil)
}

// Select adds an entry to the selection.
func (c *Client) Select(id string) error {
	return c.do(context.Background(), http.MethodPut, "/api/selection/"+url.PathEscape(id), nil, nil)
}

// Unselect removes an entry from the selection.
func (c *Client) Unselect(id string) {
	c.report(c.do(context.Background(), http.MethodDelete, "/api/selection/"+url.PathEscape(id), nil, nil))
}

// ClearSelection empties the selection.
func (c *Client) ClearSelection() {
	c.report(c.do(context.Background(), http.MethodDelete, "/api/selection", nil, nil))
}

// DeleteSelectedEntries asks the daemon for its confirmation question,
// passes it to confirm and deletes the selection if confirmed.
func (c *Client) DeleteSelectedEntries(ctx context.Context, confirm func(msg string) bool) error {
	err := c.do(ctx, http.MethodPost, "/api/selection/delete", nil, nil)
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Code != models.ErrorCode(models.ErrNotConfirmed) {
		return err
	}
	if confirm == nil || !confirm(apiErr.Confirm) {
		return models.ErrNotConfirmed
	}
	return c.do(ctx, http.MethodPost, "/api/selection/delete?confirm=true", nil, nil)
}

// ActivateSelectedEntries activates the selection.
func (c *Client) ActivateSelectedEntries(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/selection/activate", nil, nil)
}

// DeactivateSelectedEntries deactivates the selection.
func (c *Client) DeactivateSelectedEntries(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/selection/deactivate", nil, nil)
}

// OpenHostsDir reveals the hosts file on the daemon's host.
func (c *Client) OpenHostsDir() error {
	return c.do(context.Background(), http.MethodPost, "/api/open-dir", nil, nil)
}
