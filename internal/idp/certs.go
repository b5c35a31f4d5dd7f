// Package idp verifies identity tokens issued by Google against its published
// signing certificates.
package idp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"kkp/internal/metrics"
	"kkp/internal/token"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultCertsURL     = "https://www.googleapis.com/oauth2/v1/certs"
	DefaultFetchTimeout = 5 * time.Second

	maxCertsBody = 1 << 20
)

// CertCache holds the kid -> key map published at a certificate endpoint.
// The first successful fetch is kept for the life of the process.
type CertCache struct {
	url    string
	client *http.Client
	logger logrus.FieldLogger

	group singleflight.Group

	mu        sync.RWMutex
	keys      token.KeySet
	attempted bool
}

func NewCertCache(url string, timeout time.Duration, logger logrus.FieldLogger) *CertCache {
	if url == "" {
		url = DefaultCertsURL
	}
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &CertCache{
		url:    url,
		client: &http.Client{Timeout: timeout},
		logger: logger.WithField("component", "cert_cache"),
	}
}

// Keys returns the cached key set, fetching it on first use. Concurrent first
// callers share one fetch. If that fetch fails the set stays empty until
// Refresh succeeds; Keys itself never refetches.
func (c *CertCache) Keys(ctx context.Context) token.KeySet {
	c.mu.RLock()
	attempted, keys := c.attempted, c.keys
	c.mu.RUnlock()
	if attempted {
		return keys
	}

	keys, err := c.load(context.WithoutCancel(ctx), false)
	if err != nil {
		c.logger.WithError(err).Warn("identity certificates unavailable")
	}
	return keys
}

// Refresh refetches the certificates. On failure the previous set is kept.
func (c *CertCache) Refresh(ctx context.Context) error {
	_, err := c.load(ctx, true)
	return err
}

func (c *CertCache) load(ctx context.Context, force bool) (token.KeySet, error) {
	flight := "load"
	if force {
		flight = "refresh"
	}
	value, err, _ := c.group.Do(flight, func() (any, error) {
		if !force {
			c.mu.RLock()
			attempted, keys := c.attempted, c.keys
			c.mu.RUnlock()
			if attempted {
				return keys, nil
			}
		}

		keys, err := c.fetch(ctx)

		c.mu.Lock()
		defer c.mu.Unlock()
		c.attempted = true
		if err != nil {
			metrics.CertFetchesTotal.WithLabelValues(metrics.ResultFailure).Inc()
			return c.keys, err
		}
		metrics.CertFetchesTotal.WithLabelValues(metrics.ResultSuccess).Inc()
		c.keys = keys
		return keys, nil
	})
	keys, _ := value.(token.KeySet)
	return keys, err
}

func (c *CertCache) fetch(ctx context.Context) (token.KeySet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build certs request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch certs: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("fetch certs: unexpected status %d", resp.StatusCode)
	}

	var pems map[string]string
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxCertsBody)).Decode(&pems); err != nil {
		return nil, fmt.Errorf("decode certs: %w", err)
	}

	keys, err := token.ParseKeySet(pems)
	if err != nil {
		if len(keys) == 0 {
			return nil, err
		}
		c.logger.WithError(err).Warn("some identity certificates were skipped")
	}
	c.logger.WithField("kids", keys.KeyIDs()).Info("identity certificates loaded")
	return keys, nil
}
