// Package fetch is the HTTP collaborator shared by every source adapter.
// It wraps a Colly collector so page and binary downloads get the same
// timeouts, redirect handling, and user agent.
package fetch

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
)

// Options tune the underlying transport.
type Options struct {
	UserAgent      string
	RequestTimeout time.Duration
	ConnectTimeout time.Duration
}

// Client fetches URLs on behalf of the source adapters.
type Client struct {
	base   *colly.Collector
	logger *zap.Logger
}

// NewClient constructs a configured Colly-backed Client.
func NewClient(opts Options, logger *zap.Logger) *Client {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 20 * time.Second
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 10 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "shutdown-crawler/1.0"
	}

	base := colly.NewCollector(colly.UserAgent(opts.UserAgent))
	base.WithTransport(&http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          32,
		MaxIdleConnsPerHost:   8,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   opts.ConnectTimeout,
		ResponseHeaderTimeout: opts.RequestTimeout,
		ForceAttemptHTTP2:     true,
	})
	base.SetRequestTimeout(opts.RequestTimeout)
	base.IgnoreRobotsTxt = true

	return &Client{base: base, logger: logger}
}

type fetchResult struct {
	body []byte
	err  error
}

// Get downloads one URL and returns its body. Non-2xx statuses and
// transport failures both surface as errors; callers treat either as
// "this source contributes nothing this run".
func (c *Client) Get(ctx context.Context, rawURL string, headers http.Header) ([]byte, error) {
	if rawURL == "" {
		return nil, errors.New("empty url")
	}

	collector := c.base.Clone()
	collector.AllowURLRevisit = true

	resultCh := make(chan fetchResult, 1)
	var once sync.Once
	send := func(res fetchResult) {
		once.Do(func() { resultCh <- res })
	}

	collector.OnRequest(func(r *colly.Request) {
		for key, values := range headers {
			for _, v := range values {
				r.Headers.Set(key, v)
			}
		}
	})
	collector.OnResponse(func(r *colly.Response) {
		send(fetchResult{body: append([]byte{}, r.Body...)})
	})
	collector.OnError(func(r *colly.Response, err error) {
		if err == nil {
			err = errors.New("unknown colly error")
		}
		send(fetchResult{err: err})
	})

	if err := collector.Visit(rawURL); err != nil {
		return nil, err
	}
	collector.Wait()

	select {
	case res := <-resultCh:
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if res.err != nil {
			c.logger.Debug("fetch failed", zap.String("url", rawURL), zap.Error(res.err))
		}
		return res.body, res.err
	default:
		return nil, errors.New("fetch produced no result")
	}
}
