// Package remote implements the store and connectivity contracts against a
// thoughts server reached over HTTP.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/aretw0/lifecycle"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/aretw0/thoughts/pkg/core"
	"github.com/aretw0/thoughts/pkg/server"
)

// ErrUnavailable is returned for 5xx responses.
var ErrUnavailable = errors.New("remote store unavailable")

// snapshotLimit bounds one websocket message.
const snapshotLimit = 16 << 20

// Config holds the configuration for a Client.
type Config struct {
	// URI is the base URL of the server, e.g. http://localhost:8080.
	URI        string
	HTTPClient *http.Client
	Logger     *slog.Logger
	// ErrorHandler receives failures of open subscriptions.
	ErrorHandler func(error)
}

// Client implements core.Store and core.Subscriber over the server API.
type Client struct {
	base   *url.URL
	http   *http.Client
	config Config

	mu   sync.Mutex
	subs int
}

// New parses the base URI and creates a Client.
func New(config Config) (*Client, error) {
	base, err := url.Parse(config.URI)
	if err != nil {
		return nil, fmt.Errorf("invalid remote uri: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid remote uri %q: scheme must be http or https", config.URI)
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Client{base: base, http: config.HTTPClient, config: config}, nil
}

// Create implements core.Store.
func (c *Client) Create(ctx context.Context, collection string, p core.Payload) (string, error) {
	if err := core.ValidateCollection(collection); err != nil {
		return "", err
	}
	if err := p.Validate(); err != nil {
		return "", err
	}

	body, err := json.Marshal(p)
	if err != nil {
		return "", err
	}

	var out server.CreateResponse
	if err := c.do(ctx, http.MethodPost, c.endpoint(collection), bytes.NewReader(body), http.StatusCreated, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

// Delete implements core.Store.
func (c *Client) Delete(ctx context.Context, collection, id string) error {
	if err := core.ValidateCollection(collection); err != nil {
		return err
	}
	if id == "" {
		return nil
	}
	return c.do(ctx, http.MethodDelete, c.endpoint(collection, id), nil, http.StatusNoContent, nil)
}

// Query implements core.Store.
func (c *Client) Query(ctx context.Context, collection string, order core.Order) ([]core.Note, error) {
	if err := core.ValidateCollection(collection); err != nil {
		return nil, err
	}

	u := c.endpoint(collection)
	switch {
	case order.IsZero():
	case order == core.OrderNewestFirst:
		q := u.Query()
		q.Set("order", server.OrderNewest)
		u.RawQuery = q.Encode()
	default:
		return nil, fmt.Errorf("%w: %s %s", core.ErrUnsupportedOrder, order.Field, order.Direction)
	}

	notes := []core.Note{}
	if err := c.do(ctx, http.MethodGet, u, nil, http.StatusOK, &notes); err != nil {
		return nil, err
	}
	return notes, nil
}

// Subscribe implements core.Subscriber by opening the server's websocket feed.
func (c *Client) Subscribe(ctx context.Context, collection string) (core.Subscription, error) {
	if err := core.ValidateCollection(collection); err != nil {
		return nil, err
	}

	u := c.endpoint(collection, "subscribe")
	conn, resp, err := websocket.Dial(ctx, u.String(), &websocket.DialOptions{HTTPClient: c.http})
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotImplemented {
			return nil, core.ErrSubscribeUnsupported
		}
		return nil, fmt.Errorf("failed to open feed: %w", err)
	}
	conn.SetReadLimit(snapshotLimit)

	readCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	feed := core.NewFeed(func() {
		cancel()
		conn.Close(websocket.StatusNormalClosure, "")
	})

	c.trackSub(1)
	lifecycle.Go(readCtx, func(ctx context.Context) error {
		defer c.trackSub(-1)
		c.read(ctx, conn, collection, feed)
		return nil
	}, lifecycle.WithErrorHandler(func(err error) {
		c.report(fmt.Errorf("feed reader for %s: %w", collection, err))
	}))

	return feed, nil
}

// read forwards snapshots until the feed is closed locally or the server
// goes away. The latter ends the feed.
func (c *Client) read(ctx context.Context, conn *websocket.Conn, collection string, feed *core.Feed) {
	for {
		var snapshot []core.Note
		if err := wsjson.Read(ctx, conn, &snapshot); err != nil {
			if ctx.Err() == nil && !feed.Closed() {
				c.report(fmt.Errorf("feed for %s ended: %w", collection, err))
				_ = feed.Close()
			}
			return
		}
		if !feed.Send(snapshot) {
			return
		}
	}
}

func (c *Client) do(ctx context.Context, method string, u *url.URL, body io.Reader, want int, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, u.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		return c.decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) decodeError(resp *http.Response) error {
	var body server.ErrorResponse
	_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body)
	msg := body.Error
	if msg == "" {
		msg = resp.Status
	}

	switch {
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: %s", ErrUnavailable, msg)
	case resp.StatusCode == http.StatusBadRequest && msg == core.ErrEmptyText.Error():
		return core.ErrEmptyText
	case resp.StatusCode == http.StatusBadRequest && msg == core.ErrInvalidCollection.Error():
		return core.ErrInvalidCollection
	}
	return fmt.Errorf("remote store: %s", msg)
}

func (c *Client) endpoint(parts ...string) *url.URL {
	return c.base.JoinPath(append([]string{"v1"}, parts...)...)
}

func (c *Client) trackSub(delta int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subs += delta
}

func (c *Client) report(err error) {
	c.config.Logger.Error("remote feed error", "error", err)
	if c.config.ErrorHandler != nil {
		c.config.ErrorHandler(err)
	}
}

var (
	_ core.Store      = (*Client)(nil)
	_ core.Subscriber = (*Client)(nil)
)
