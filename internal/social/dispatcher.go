// Package social forwards freshly summarized records to an external social
// posting webhook. Dispatch never blocks and never reports failure to the
// caller.
package social

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bilgisen/newsbridge/internal/logger"
	"github.com/bilgisen/newsbridge/internal/utils"
	"github.com/go-resty/resty/v2"
)

const defaultQueueSize = 32

// Post is the payload sent to the social webhook.
type Post struct {
	Title    string   `json:"title"`
	Takeaway string   `json:"takeaway"`
	URL      string   `json:"url"`
	Tags     []string `json:"tags"`
}

// Dispatcher accepts posts for best-effort delivery.
type Dispatcher interface {
	Dispatch(p Post)
}

// Nop discards every post.
type Nop struct{}

func (Nop) Dispatch(Post) {}

// WebhookDispatcher posts JSON to a webhook from a single background
// goroutine. Posts arriving while the queue is full are dropped.
type WebhookDispatcher struct {
	client *resty.Client
	url    string
	queue  chan Post

	wg        sync.WaitGroup
	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
}

func NewWebhookDispatcher(url string, timeout time.Duration, queueSize int) *WebhookDispatcher {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	d := &WebhookDispatcher{
		client: resty.New().
			SetTimeout(timeout).
			SetRetryCount(1).
			SetHeader("Content-Type", "application/json"),
		url:   url,
		queue: make(chan Post, queueSize),
	}
	d.wg.Add(1)
	go d.loop()
	return d
}

func (d *WebhookDispatcher) Dispatch(p Post) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}
	select {
	case d.queue <- p:
	default:
		logger.Component("social").Warn().Str("title", utils.Prefix(p.Title)).Msg("Social queue full, dropping post")
	}
}

// Close stops accepting posts and waits for the queued ones to be sent.
func (d *WebhookDispatcher) Close() {
	d.closeOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		close(d.queue)
		d.mu.Unlock()
		d.wg.Wait()
	})
}

func (d *WebhookDispatcher) loop() {
	defer d.wg.Done()
	log := logger.Component("social")
	for p := range d.queue {
		if err := d.send(context.Background(), p); err != nil {
			log.Error().Err(err).Str("title", utils.Prefix(p.Title)).Str("url", p.URL).Msg("Social post failed")
			continue
		}
		log.Debug().Str("title", utils.Prefix(p.Title)).Msg("Social post sent")
	}
}

func (d *WebhookDispatcher) send(ctx context.Context, p Post) error {
	resp, err := d.client.R().SetContext(ctx).SetBody(p).Post(d.url)
	if err != nil {
		return err
	}
	if resp.IsError() {
		return &StatusError{Code: resp.StatusCode()}
	}
	return nil
}

// StatusError reports a non-2xx webhook response.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("social webhook returned status %d", e.Code)
}
