package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"

	"github.com/AZMA1N/Debate-Calender/internal/config"
	"github.com/AZMA1N/Debate-Calender/internal/model"
	"github.com/AZMA1N/Debate-Calender/pkg/circuitbreaker"
)

// ErrNotConfigured is returned at setup when the VAPID key pair or the
// contact subject is missing.
var ErrNotConfigured = errors.New("push: vapid public key, private key and subject are required")

// Target is the browser push channel address plus its credentials.
type Target struct {
	Endpoint string
	Keys     model.PushKeys
}

// Payload is the JSON document the service worker receives.
type Payload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url"`
}

// Sender delivers one push message.
type Sender interface {
	Send(ctx context.Context, target Target, payload Payload) error
}

// StatusError is a non-success answer from the push service.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("push service responded %d: %s", e.StatusCode, e.Body)
}

// Gone reports whether the push service says the subscription no longer exists.
func (e *StatusError) Gone() bool {
	return e.StatusCode == http.StatusGone || e.StatusCode == http.StatusNotFound
}

type WebPushSender struct {
	options webpush.Options
}

func NewWebPushSender(cfg config.PushConfig) (*WebPushSender, error) {
	if cfg.VAPIDPublicKey == "" || cfg.VAPIDPrivateKey == "" || cfg.Subject == "" {
		return nil, ErrNotConfigured
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ttl := cfg.TTLSeconds
	if ttl <= 0 {
		ttl = 3600
	}

	return &WebPushSender{
		options: webpush.Options{
			HTTPClient:      &http.Client{Timeout: timeout},
			Subscriber:      strings.TrimPrefix(cfg.Subject, "mailto:"),
			VAPIDPublicKey:  cfg.VAPIDPublicKey,
			VAPIDPrivateKey: cfg.VAPIDPrivateKey,
			TTL:             ttl,
			Urgency:         webpush.UrgencyHigh,
		},
	}, nil
}

// PublicKey is handed to browsers as the applicationServerKey.
func (s *WebPushSender) PublicKey() string {
	return s.options.VAPIDPublicKey
}

func (s *WebPushSender) Send(ctx context.Context, target Target, payload Payload) error {
	message, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal push payload: %w", err)
	}

	sub := &webpush.Subscription{
		Endpoint: target.Endpoint,
		Keys: webpush.Keys{
			P256dh: target.Keys.P256dh,
			Auth:   target.Keys.Auth,
		},
	}

	opts := s.options
	resp, err := webpush.SendNotificationWithContext(ctx, message, sub, &opts)
	if err != nil {
		return fmt.Errorf("failed to send push notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return nil
}

// IsClientError reports a 4xx answer. Those concern one subscription, not
// the health of the push service.
func IsClientError(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode >= 400 && statusErr.StatusCode < 500
}

// BreakerSender keeps one circuit breaker per push service host, so an
// outage at one vendor does not block deliveries to the others.
type BreakerSender struct {
	next     Sender
	settings circuitbreaker.Settings

	mu       sync.Mutex
	breakers map[string]*circuitbreaker.CircuitBreaker
}

func NewBreakerSender(next Sender, settings circuitbreaker.Settings) *BreakerSender {
	if settings.IsSuccessful == nil {
		settings.IsSuccessful = func(err error) bool { return err == nil || IsClientError(err) }
	}
	return &BreakerSender{
		next:     next,
		settings: settings,
		breakers: make(map[string]*circuitbreaker.CircuitBreaker),
	}
}

func (s *BreakerSender) Send(ctx context.Context, target Target, payload Payload) error {
	err := s.breaker(target.Endpoint).Execute(func() error {
		return s.next.Send(ctx, target, payload)
	})
	if errors.Is(err, circuitbreaker.ErrOpen) {
		return fmt.Errorf("failed to send push notification: %w", err)
	}
	return err
}

func (s *BreakerSender) breaker(endpoint string) *circuitbreaker.CircuitBreaker {
	host := endpoint
	if u, err := url.Parse(endpoint); err == nil && u.Host != "" {
		host = u.Host
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cb, ok := s.breakers[host]
	if !ok {
		settings := s.settings
		settings.Name = s.settings.Name + ":" + host
		cb = circuitbreaker.NewCircuitBreaker(settings)
		s.breakers[host] = cb
	}
	return cb
}
