package remote

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/aretw0/lifecycle"

	"github.com/aretw0/thoughts/pkg/core"
)

// Observer is a core.Observer that probes the server's health endpoint.
// A completed round trip means connected; a 200 means reachable.
type Observer struct {
	client   *Client
	interval time.Duration
	timeout  time.Duration

	mu     sync.Mutex
	subs   map[int]func(core.Status)
	nextID int
	last   *bool
	cancel context.CancelFunc
}

// ObserverOption configures an Observer.
type ObserverOption func(*Observer)

// WithInterval sets how often Subscribe polls. The default is 5s.
func WithInterval(d time.Duration) ObserverOption {
	return func(o *Observer) {
		o.interval = d
	}
}

// WithProbeTimeout bounds one health probe. The default is 3s.
func WithProbeTimeout(d time.Duration) ObserverOption {
	return func(o *Observer) {
		o.timeout = d
	}
}

// NewObserver creates an Observer for the client's server.
func NewObserver(client *Client, opts ...ObserverOption) *Observer {
	o := &Observer{
		client:   client,
		interval: 5 * time.Second,
		timeout:  3 * time.Second,
		subs:     make(map[int]func(core.Status)),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Check implements core.Observer. Transport failures are a reading, not an error.
func (o *Observer) Check(ctx context.Context) (core.Status, error) {
	if err := ctx.Err(); err != nil {
		return core.Status{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	u := o.client.base.JoinPath("healthz")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return core.Status{}, err
	}

	resp, err := o.client.http.Do(req)
	if err != nil {
		o.client.config.Logger.Debug("health probe failed", "error", err)
		return core.Status{Connected: false}, nil
	}
	defer resp.Body.Close()

	reachable := resp.StatusCode == http.StatusOK
	return core.Status{Connected: true, Reachable: &reachable}, nil
}

// Subscribe implements core.Observer. Polling starts with the first
// subscriber and stops with the last. A callback may still run once after
// its unsubscribe returns.
func (o *Observer) Subscribe(fn func(core.Status)) (func(), error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	id := o.nextID
	o.nextID++
	o.subs[id] = fn

	if o.cancel == nil {
		ctx, cancel := context.WithCancel(context.Background())
		o.cancel = cancel
		lifecycle.Go(ctx, func(ctx context.Context) error {
			o.poll(ctx)
			return nil
		})
	}

	return func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		delete(o.subs, id)
		if len(o.subs) == 0 && o.cancel != nil {
			o.cancel()
			o.cancel = nil
			o.last = nil
		}
	}, nil
}

func (o *Observer) poll(ctx context.Context) {
	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		status, err := o.Check(ctx)
		if err != nil {
			continue
		}

		online := status.Online()
		o.mu.Lock()
		if ctx.Err() != nil || (o.last != nil && *o.last == online) {
			o.mu.Unlock()
			continue
		}
		o.last = &online
		subs := make([]func(core.Status), 0, len(o.subs))
		for _, fn := range o.subs {
			subs = append(subs, fn)
		}
		o.mu.Unlock()

		for _, fn := range subs {
			fn(status)
		}
	}
}

var _ core.Observer = (*Observer)(nil)
