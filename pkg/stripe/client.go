package stripe

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v84"

	"github.com/branchpay/checkout-backend/pkg/config"
	"github.com/branchpay/checkout-backend/pkg/logger"
)

const (
	testEnv = "test"
	liveEnv = "live"

	defaultTimeout = 30 * time.Second
)

var (
	errAPIKeyRequired   = errors.New("stripe api key is required")
	errInvalidStripeEnv = fmt.Errorf("stripe environment must be %q or %q", testEnv, liveEnv)
)

// Observer receives the duration of every Stripe call.
type Observer interface {
	ObserveStripeRequest(operation string, duration time.Duration)
}

// Client holds the Stripe credentials plus the per-call budget and payout defaults.
type Client struct {
	environment    string
	timeout        time.Duration
	payoutInterval string
	payoutAnchor   string
	observer       Observer
}

// NewClient initializes Stripe once with the configured secrets and env.
func NewClient(ctx context.Context, cfg config.StripeConfig, observer Observer, logg *logger.Logger) (*Client, error) {
	env, err := normalizeEnv(cfg.Environment())
	if err != nil {
		return nil, err
	}

	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}

	if err := validateAPIKey(env, apiKey); err != nil {
		return nil, err
	}

	stripe.Key = apiKey

	if logg != nil {
		logg.Info(ctx, fmt.Sprintf("stripe client initialized (%s)", env))
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		environment:    env,
		timeout:        timeout,
		payoutInterval: cfg.PayoutInterval,
		payoutAnchor:   cfg.PayoutAnchor,
		observer:       observer,
	}, nil
}

// Environment reports the normalized Stripe environment in use.
func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

// Timeout is the budget applied to each vendor call.
func (c *Client) Timeout() time.Duration {
	if c == nil || c.timeout <= 0 {
		return defaultTimeout
	}
	return c.timeout
}

// call runs fn under the request budget and records its latency.
func (c *Client) call(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	callCtx, cancel := context.WithTimeout(ctx, c.Timeout())
	defer cancel()

	start := time.Now()
	err := fn(callCtx)
	if c.observer != nil {
		c.observer.ObserveStripeRequest(operation, time.Since(start))
	}
	if err != nil && callCtx.Err() != nil && !IsTimeout(err) {
		return fmt.Errorf("%s: %w: %w", operation, callCtx.Err(), err)
	}
	return err
}

func normalizeEnv(raw string) (string, error) {
	env := strings.TrimSpace(strings.ToLower(raw))
	if env == "" {
		env = testEnv
	}
	switch env {
	case testEnv, liveEnv:
		return env, nil
	default:
		return "", errInvalidStripeEnv
	}
}

func validateAPIKey(env, key string) error {
	switch env {
	case testEnv:
		if strings.HasPrefix(key, "sk_test") || strings.HasPrefix(key, "rk_test") {
			return nil
		}
		return fmt.Errorf("stripe environment %q requires a test secret key (sk_test/rk_test)", testEnv)
	case liveEnv:
		if strings.HasPrefix(key, "sk_live") || strings.HasPrefix(key, "rk_live") {
			return nil
		}
		return fmt.Errorf("stripe environment %q requires a live secret key (sk_live/rk_live)", liveEnv)
	default:
		return errInvalidStripeEnv
	}
}
