package billing

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	gojson "github.com/goccy/go-json"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/ManuelReschke/PaddleBilling/internal/pkg/metrics"
)

const defaultLookupTimeout = 15 * time.Second

// CustomerDetails are the fields a lookup can fill in.
type CustomerDetails struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// CustomerLookup resolves a Paddle customer id to contact details.
type CustomerLookup interface {
	LookupCustomer(ctx context.Context, providerCustomerID string) (*CustomerDetails, error)
}

// PaddleClient talks to the Paddle Billing REST API.
type PaddleClient struct {
	http *resty.Client
}

type customerResponse struct {
	Data CustomerDetails `json:"data"`
}

// NewPaddleClient creates a client for baseURL authenticated with apiKey.
func NewPaddleClient(baseURL, apiKey string) *PaddleClient {
	c := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetAuthToken(apiKey).
		SetTimeout(defaultLookupTimeout).
		SetHeader("Accept", "application/json").
		SetJSONMarshaler(gojson.Marshal).
		SetJSONUnmarshaler(gojson.Unmarshal)
	return &PaddleClient{http: c}
}

// LookupCustomer fetches GET /customers/{id}.
func (c *PaddleClient) LookupCustomer(ctx context.Context, providerCustomerID string) (*CustomerDetails, error) {
	id := strings.TrimSpace(providerCustomerID)
	if id == "" {
		return nil, fmt.Errorf("%w: empty customer id", ErrRemoteLookup)
	}

	var out customerResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/customers/" + url.PathEscape(id))
	if err != nil {
		metrics.CustomerLookupsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: %w", ErrRemoteLookup, err)
	}
	if resp.IsError() {
		metrics.CustomerLookupsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: status %d", ErrRemoteLookup, resp.StatusCode())
	}

	metrics.CustomerLookupsTotal.WithLabelValues("remote").Inc()
	details := out.Data
	details.Email = strings.TrimSpace(details.Email)
	details.Name = strings.TrimSpace(details.Name)
	return &details, nil
}

// CustomerCache stores encoded lookup results.
type CustomerCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// CachedCustomerLookup collapses concurrent lookups for the same customer and
// keeps results in a CustomerCache for ttl. A nil cache only collapses.
type CachedCustomerLookup struct {
	next   CustomerLookup
	cache  CustomerCache
	ttl    time.Duration
	group  singleflight.Group
	logger zerolog.Logger
}

func NewCachedCustomerLookup(next CustomerLookup, cache CustomerCache, ttl time.Duration, logger zerolog.Logger) *CachedCustomerLookup {
	return &CachedCustomerLookup{
		next:   next,
		cache:  cache,
		ttl:    ttl,
		logger: logger.With().Str("component", "customer_lookup").Logger(),
	}
}

func customerCacheKey(id string) string {
	return "paddle:customer:" + id
}

func (l *CachedCustomerLookup) LookupCustomer(ctx context.Context, providerCustomerID string) (*CustomerDetails, error) {
	id := strings.TrimSpace(providerCustomerID)
	key := customerCacheKey(id)

	if l.cache != nil {
		raw, ok, err := l.cache.Get(ctx, key)
		if err != nil {
			l.logger.Warn().Err(err).Str("customer_id", id).Msg("customer cache read failed")
		} else if ok {
			var cached CustomerDetails
			if err := gojson.Unmarshal([]byte(raw), &cached); err == nil {
				metrics.CustomerLookupsTotal.WithLabelValues("cache_hit").Inc()
				return &cached, nil
			}
		}
	}

	v, err, _ := l.group.Do(key, func() (any, error) {
		details, err := l.next.LookupCustomer(ctx, id)
		if err != nil {
			return nil, err
		}
		if l.cache != nil {
			if raw, err := gojson.Marshal(details); err == nil {
				if err := l.cache.Set(ctx, key, string(raw), l.ttl); err != nil {
					l.logger.Warn().Err(err).Str("customer_id", id).Msg("customer cache write failed")
				}
			}
		}
		return details, nil
	})
	if err != nil {
		if !errors.Is(err, ErrRemoteLookup) {
			err = fmt.Errorf("%w: %w", ErrRemoteLookup, err)
		}
		return nil, err
	}
	details := *v.(*CustomerDetails)
	return &details, nil
}
