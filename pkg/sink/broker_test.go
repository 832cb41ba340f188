package sink

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrokerPostsControlObjectThenPayload(t *testing.T) {
	received := make(chan struct {
		ctrl    controlObject
		payload string
	}, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/octet-stream", r.Header.Get("Content-Type"))
		reader := bufio.NewReader(r.Body)
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		var ctrl controlObject
		require.NoError(t, json.Unmarshal([]byte(line), &ctrl))
		payload := make([]byte, ctrl.DataSize)
		_, err = reader.Read(payload)
		require.NoError(t, err)
		received <- struct {
			ctrl    controlObject
			payload string
		}{ctrl, string(payload)}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	b := NewBroker(BrokerConfig{Endpoint: srv.URL, TopicPrefix: "sonar", SASLUser: "u", SASLPassword: "p"})
	defer b.Close()

	require.NoError(t, b.Write(context.Background(), Record{
		Kind: KindSample, Node: "node01", Cluster: "cl", Ext: "json", Payload: []byte(`{"a":1}`),
	}))

	select {
	case got := <-received:
		assert.Equal(t, "sonar.cl.sample", got.ctrl.Topic)
		assert.Equal(t, "node01", got.ctrl.Key)
		assert.Equal(t, "cl/node01", got.ctrl.Client)
		assert.Equal(t, "u", got.ctrl.SASLUser)
		assert.Equal(t, `{"a":1}`, got.payload)
	case <-time.After(2 * time.Second):
		t.Fatal("broker did not post within timeout")
	}
}

func TestBrokerRetriesOnRetryableStatus(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&attempts, 1)
		if n < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	b := NewBroker(BrokerConfig{
		Endpoint: srv.URL, TopicPrefix: "sonar",
		InitialBackoff: 5 * time.Millisecond, MaxBackoff: 20 * time.Millisecond,
	})
	defer b.Close()

	require.NoError(t, b.Write(context.Background(), Record{Kind: KindJobs, Node: "n1", Cluster: "cl", Payload: []byte("{}")}))

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&attempts) >= 3
	}, 2*time.Second, 5*time.Millisecond)
}

func TestBrokerInvokesOnBackoffRetryHook(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&attempts, 1)
		if n < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	var retries int32
	b := NewBroker(BrokerConfig{
		Endpoint: srv.URL, TopicPrefix: "sonar",
		InitialBackoff: 5 * time.Millisecond, MaxBackoff: 20 * time.Millisecond,
		OnBackoffRetry: func() { atomic.AddInt32(&retries, 1) },
	})
	defer b.Close()

	require.NoError(t, b.Write(context.Background(), Record{Kind: KindJobs, Node: "n1", Cluster: "cl", Payload: []byte("{}")}))

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&retries) >= 2
	}, 2*time.Second, 5*time.Millisecond)
}

func TestBrokerDropsOldestWhenPendingBufferFull(t *testing.T) {
	started := make(chan struct{}, 1)
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-block
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()
	defer close(block)

	b := NewBroker(BrokerConfig{Endpoint: srv.URL, TopicPrefix: "sonar", PendingLimit: 2})
	defer b.Close()

	ctx := context.Background()
	// rec1 is picked up by the dispatcher and blocks inside post(), so the
	// pending queue below fills up independently of it.
	require.NoError(t, b.Write(ctx, Record{Kind: KindSample, Node: "n1", Payload: []byte("1")}))
	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("dispatcher never started processing rec1")
	}

	require.NoError(t, b.Write(ctx, Record{Kind: KindSample, Node: "n2", Payload: []byte("2")}))
	require.NoError(t, b.Write(ctx, Record{Kind: KindSample, Node: "n3", Payload: []byte("3")}))
	require.NoError(t, b.Write(ctx, Record{Kind: KindSample, Node: "n4", Payload: []byte("4")}))

	assert.Equal(t, 1, b.DrainDropped())
	assert.Equal(t, 0, b.DrainDropped())
}

func TestBrokerNonRetryableStatusStopsRetrying(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	b := NewBroker(BrokerConfig{
		Endpoint: srv.URL, TopicPrefix: "sonar",
		InitialBackoff: 5 * time.Millisecond, MaxBackoff: 10 * time.Millisecond,
	})
	require.NoError(t, b.Write(context.Background(), Record{Kind: KindCluster, Node: "n1", Payload: []byte("{}")}))

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, b.Close())
	assert.Equal(t, int32(1), atomic.LoadInt32(&attempts))
}
