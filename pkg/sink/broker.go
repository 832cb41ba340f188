package sink

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/nordichpc/sonar/pkg/defaults"
)

// BrokerConfig configures a Broker sink's endpoint, SASL credentials, and
// buffering/retry policy (spec.md §4.6, §6's broker wire format).
type BrokerConfig struct {
	Endpoint     string
	TopicPrefix  string
	SASLUser     string
	SASLPassword string

	Client         *http.Client
	PendingLimit   int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	// OnBackoffRetry, if set, is called once per retried post, letting a
	// caller observe backoff activity (e.g. pkg/metrics) without the broker
	// depending on it directly — the same decoupling the scheduler's Hooks
	// struct uses for firing observability.
	OnBackoffRetry func()
}

// controlObject is the one-line JSON header the broker wire format prefixes
// to every payload (spec.md §6).
type controlObject struct {
	Topic        string `json:"topic"`
	Key          string `json:"key"`
	Client       string `json:"client"`
	SASLUser     string `json:"sasl-user,omitempty"`
	SASLPassword string `json:"sasl-password,omitempty"`
	DataSize     int    `json:"data-size"`
}

// Broker buffers envelopes in memory and POSTs them one at a time to an
// external relay, retrying with exponential backoff. Write only enqueues;
// a single dispatcher goroutine owns the network thread, matching spec.md
// §4.7's "dispatcher thread and a fixed-size network thread" model.
type Broker struct {
	cfg    BrokerConfig
	client *http.Client

	mu    sync.Mutex
	queue []Record

	// droppedTotal counts envelopes displaced by a full pending buffer since
	// the last DrainDropped call. The broker has no generic Envelope[T] to
	// attach an error record to, so it exposes the count for the probe
	// wrapper to fold into its next firing's error list (spec.md §4.6).
	droppedTotal int

	notify    chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewBroker starts a Broker sink and its dispatcher goroutine.
func NewBroker(cfg BrokerConfig) *Broker {
	if cfg.PendingLimit <= 0 {
		cfg.PendingLimit = defaults.BrokerPendingLimit
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = defaults.BrokerInitialBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = defaults.BrokerMaxBackoff
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{
			Timeout:   defaults.BrokerPostTimeout,
			Transport: newBrokerTransport(),
		}
	}

	b := &Broker{
		cfg:    cfg,
		client: cfg.Client,
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	b.wg.Add(1)
	go b.run()
	return b
}

func newBrokerTransport() *http.Transport {
	return &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: defaults.BrokerConnectTimeout,
		}).DialContext,
		TLSClientConfig:     &tls.Config{MinVersion: tls.VersionTLS12},
		TLSHandshakeTimeout: defaults.BrokerConnectTimeout,
		ForceAttemptHTTP2:   true,
	}
}

// Write enqueues rec for delivery. If the pending buffer is already at its
// limit, the oldest queued record is displaced and counted as dropped
// (spec.md §4.6) rather than blocking the caller.
func (b *Broker) Write(ctx context.Context, rec Record) error {
	select {
	case <-ctx.Done():
		return retryableError("broker: write", ctx.Err())
	default:
	}

	b.mu.Lock()
	if len(b.queue) >= b.cfg.PendingLimit {
		b.queue = b.queue[1:]
		b.droppedTotal++
	}
	b.queue = append(b.queue, rec)
	b.mu.Unlock()

	select {
	case b.notify <- struct{}{}:
	default:
	}
	return nil
}

// DrainDropped returns and resets the count of envelopes dropped since the
// last call.
func (b *Broker) DrainDropped() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := b.droppedTotal
	b.droppedTotal = 0
	return n
}

func (b *Broker) pop() (Record, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.queue) == 0 {
		return Record{}, false
	}
	rec := b.queue[0]
	b.queue = b.queue[1:]
	return rec, true
}

// run is the dispatcher: pop one record, retry its POST with exponential
// backoff until it succeeds, is terminally rejected, or shutdown begins.
func (b *Broker) run() {
	defer b.wg.Done()

	for {
		rec, ok := b.pop()
		if !ok {
			select {
			case <-b.notify:
				continue
			case <-b.done:
				return
			}
		}

		backoff := b.cfg.InitialBackoff
		for {
			err := b.post(rec)
			if err == nil {
				break
			}
			if !IsRetryable(err) {
				slog.Error("broker: envelope rejected, dropping", "kind", rec.Kind, "node", rec.Node, "error", err)
				break
			}

			if b.cfg.OnBackoffRetry != nil {
				b.cfg.OnBackoffRetry()
			}

			select {
			case <-time.After(backoff):
			case <-b.done:
				return
			}
			backoff *= 2
			if backoff > b.cfg.MaxBackoff {
				backoff = b.cfg.MaxBackoff
			}
		}
	}
}

func (b *Broker) post(rec Record) error {
	ctrl := controlObject{
		Topic:        fmt.Sprintf("%s.%s.%s", b.cfg.TopicPrefix, rec.Cluster, rec.Kind),
		Key:          rec.Node,
		Client:       rec.Cluster + "/" + rec.Node,
		SASLUser:     b.cfg.SASLUser,
		SASLPassword: b.cfg.SASLPassword,
		DataSize:     len(rec.Payload),
	}
	ctrlJSON, err := json.Marshal(ctrl)
	if err != nil {
		return terminalError("broker: marshal control object", err)
	}

	body := &bytes.Buffer{}
	body.Write(ctrlJSON)
	body.WriteByte('\n')
	body.Write(rec.Payload)

	ctx, cancel := context.WithTimeout(context.Background(), defaults.BrokerPostTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.cfg.Endpoint, body)
	if err != nil {
		return terminalError("broker: build request", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := b.client.Do(req)
	if err != nil {
		return retryableError("broker: post", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusRequestTimeout,
		resp.StatusCode == http.StatusTooManyRequests,
		resp.StatusCode == http.StatusRequestEntityTooLarge:
		return retryableError("broker: retryable status", fmt.Errorf("status %d", resp.StatusCode))
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return terminalError("broker: rejected", fmt.Errorf("status %d", resp.StatusCode))
	default:
		return retryableError("broker: server error", fmt.Errorf("status %d", resp.StatusCode))
	}
}

// Close stops the dispatcher and waits for it to exit. Any still-queued
// records are abandoned, matching shutdown's bounded drain (spec.md §4.7).
func (b *Broker) Close() error {
	b.closeOnce.Do(func() { close(b.done) })
	b.wg.Wait()
	return nil
}
