package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestClientGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("schedule body"))
	}))
	defer srv.Close()

	c := NewClient(Options{}, zap.NewNop())
	body, err := c.Get(context.Background(), srv.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, "schedule body", string(body))
}

func TestClientGetForwardsHeaders(t *testing.T) {
	var gotAccept, gotAgent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAccept = r.Header.Get("Accept")
		gotAgent = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := NewClient(Options{UserAgent: "sched-test/1.0"}, zap.NewNop())
	headers := http.Header{}
	headers.Set("Accept", "application/pdf")

	_, err := c.Get(context.Background(), srv.URL, headers)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", gotAccept)
	assert.Equal(t, "sched-test/1.0", gotAgent)
}

func TestClientGetNon2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(Options{}, zap.NewNop())
	_, err := c.Get(context.Background(), srv.URL, nil)
	assert.Error(t, err)
}

func TestClientGetEmptyURL(t *testing.T) {
	c := NewClient(Options{}, zap.NewNop())
	_, err := c.Get(context.Background(), "", nil)
	assert.Error(t, err)
}

func TestClientGetSameURLTwice(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := NewClient(Options{RequestTimeout: 5 * time.Second}, zap.NewNop())
	for i := 0; i < 2; i++ {
		_, err := c.Get(context.Background(), srv.URL, nil)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, hits)
}
