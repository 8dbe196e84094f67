package timeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"prayerbridge/internal/httpx"
)

// PinStore is the remote upsert/delete surface the manager fans out to.
type PinStore interface {
	UpsertPin(ctx context.Context, pin Pin) error
	DeletePin(ctx context.Context, id string) error
}

// HTTPPinStore talks to the remote timeline pin service: PUT upsert-by-id
// and DELETE, authenticated by a user token header.
type HTTPPinStore struct {
	baseURL string
	token   string
	httpCfg httpx.ClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewHTTPPinStore(client *http.Client, baseURL, token string) *HTTPPinStore {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "pinstore",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	return &HTTPPinStore{
		baseURL: baseURL,
		token:   token,
		httpCfg: httpx.ClientConfig{
			Client: client,
			Backoff: httpx.BackoffConfig{
				MaxRetries:      2,
				InitialInterval: 500 * time.Millisecond,
				MaxInterval:     5 * time.Second,
			},
		},
		circuit: cb,
	}
}

func (s *HTTPPinStore) pinURL(id string) string {
	return fmt.Sprintf("%s/%s", s.baseURL, url.PathEscape(id))
}

func (s *HTTPPinStore) UpsertPin(ctx context.Context, pin Pin) error {
	body, err := json.Marshal(pin.wire())
	if err != nil {
		return fmt.Errorf("marshal pin %s: %w", pin.ID, err)
	}

	buildRequest := func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodPut, s.pinURL(pin.ID), bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-User-Token", s.token)
		return req, nil
	}

	resp, err := httpx.Do(ctx, s.httpCfg, s.circuit, buildRequest, nil)
	if err != nil {
		return fmt.Errorf("upsert pin %s: %w", pin.ID, err)
	}
	resp.Body.Close()
	return nil
}

func (s *HTTPPinStore) DeletePin(ctx context.Context, id string) error {
	buildRequest := func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodDelete, s.pinURL(id), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("X-User-Token", s.token)
		return req, nil
	}

	// Deleting a pin that is already gone counts as success.
	acceptStatus := func(code int) bool {
		return code == http.StatusNotFound
	}

	resp, err := httpx.Do(ctx, s.httpCfg, s.circuit, buildRequest, acceptStatus)
	if err != nil {
		return fmt.Errorf("delete pin %s: %w", id, err)
	}
	resp.Body.Close()
	return nil
}
