package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sethvargo/go-retry"

	"github.com/avoskov/archivemind/internal/logger"
	"github.com/avoskov/archivemind/internal/utils"
	"github.com/avoskov/archivemind/models"
)

// HeaderRequestID carries the per-request correlation id.
const HeaderRequestID = "X-Request-Id"

// Config holds the resilience knobs of the request client.
type Config struct {
	BaseURL          string
	Timeout          time.Duration
	RetryBaseDelay   time.Duration
	MaxRetries       int
	BreakerThreshold int
	BreakerCooldown  time.Duration
}

// Reply is a successful (2xx) response.
type Reply struct {
	Status    int
	Body      []byte
	RequestID string
}

// DecodeData unmarshals the "data" field of the response envelope into v.
func (r *Reply) DecodeData(v any) error {
	var env models.Envelope
	if err := json.Unmarshal(r.Body, &env); err != nil {
		return err
	}
	if env.Data == nil {
		return errors.New("response envelope has no data field")
	}
	return json.Unmarshal(env.Data, v)
}

// Client implements RequestClient on top of resty.
type Client struct {
	http       *resty.Client
	breaker    *Breaker
	tokens     TokenSource
	ids        *utils.UUIDGenerator
	log        *logger.Logger
	retryBase  time.Duration
	maxRetries uint64

	mu            sync.RWMutex
	onAuthExpired func()
}

func New(cfg Config, tokens TokenSource, log *logger.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8080/api/v1"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.BreakerThreshold <= 0 {
		cfg.BreakerThreshold = 5
	}
	if cfg.BreakerCooldown <= 0 {
		cfg.BreakerCooldown = 30 * time.Second
	}

	httpc := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout)

	return &Client{
		http:       httpc,
		breaker:    NewBreaker(cfg.BreakerThreshold, cfg.BreakerCooldown),
		tokens:     tokens,
		ids:        utils.NewUUIDGenerator(),
		log:        log,
		retryBase:  cfg.RetryBaseDelay,
		maxRetries: uint64(cfg.MaxRetries),
	}
}

// OnAuthExpired registers the hook fired after a 401 wiped local auth state.
// The surrounding application uses it to bounce the user to login.
func (c *Client) OnAuthExpired(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onAuthExpired = fn
}

// Breaker exposes the shared breaker, e.g. for a status surface.
func (c *Client) Breaker() *Breaker {
	return c.breaker
}

// Do implements RequestClient.
func (c *Client) Do(ctx context.Context, method, url string, body any) (*Reply, error) {
	return c.execute(ctx, func(req *resty.Request) (*resty.Response, error) {
		if body != nil {
			req.SetHeader("Content-Type", "application/json").SetBody(body)
		}
		return req.Execute(method, url)
	})
}

// UploadMedia implements RequestClient.
func (c *Client) UploadMedia(ctx context.Context, url string, blob models.MediaBlob) (*Reply, error) {
	return c.execute(ctx, func(req *resty.Request) (*resty.Response, error) {
		return req.
			SetFileReader("file", blob.Filename, bytes.NewReader(blob.Data)).
			SetFormData(map[string]string{
				"owner_id":  blob.OwnerResourceID,
				"kind":      string(blob.Kind),
				"mime_type": blob.MimeType,
			}).
			Post(url)
	})
}

// execute runs one request through the breaker gate and the retry budget.
// Retryable outcomes are no-response/timeout and 5xx; 4xx and breaker-open
// rejections are terminal.
func (c *Client) execute(ctx context.Context, send func(*resty.Request) (*resty.Response, error)) (*Reply, error) {
	var reply *Reply

	backoff := retry.WithMaxRetries(c.maxRetries, retry.NewExponential(c.retryBase))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		r, attemptErr := c.attempt(ctx, send)
		if attemptErr != nil {
			if kind := KindOf(attemptErr); kind == KindNetworkUnavailable || kind == KindServerError {
				return retry.RetryableError(attemptErr)
			}
			return attemptErr
		}
		reply = r
		return nil
	})
	if err != nil {
		var ae *Error
		if errors.As(err, &ae) {
			if ae.Kind == KindNetworkUnavailable || ae.Kind == KindServerError {
				ae.Exhausted = true
			}
			return nil, ae
		}
		// Context cancellation during a backoff wait surfaces here.
		return nil, &Error{Kind: KindNetworkUnavailable, Message: err.Error()}
	}

	return reply, nil
}

func (c *Client) attempt(ctx context.Context, send func(*resty.Request) (*resty.Response, error)) (*Reply, error) {
	reqID := c.ids.Generate()

	if !c.breaker.Allow() {
		return nil, &Error{
			Kind:      KindBreakerOpen,
			RequestID: reqID,
			Message:   "circuit breaker open - server unavailable",
		}
	}

	req := c.http.R().
		SetContext(ctx).
		SetHeader(HeaderRequestID, reqID)

	if token, err := c.tokens.Token(ctx); err == nil && token != "" {
		req.SetHeader("Authorization", "Bearer "+token)
	}

	resp, err := send(req)
	if err != nil {
		c.breaker.RecordFailure()
		c.log.Debug().
			Str("func", "Client.attempt").
			Str("request_id", reqID).
			Err(err).
			Msg("request failed without a response")
		return nil, &Error{Kind: KindNetworkUnavailable, RequestID: reqID, Message: err.Error()}
	}

	return c.classify(ctx, resp, reqID)
}

func (c *Client) classify(ctx context.Context, resp *resty.Response, reqID string) (*Reply, error) {
	status := resp.StatusCode()

	switch {
	case status >= http.StatusOK && status < http.StatusMultipleChoices:
		c.breaker.RecordSuccess()
		return &Reply{Status: status, Body: resp.Body(), RequestID: reqID}, nil

	case status == http.StatusUnauthorized:
		// Session expired: wipe local auth before the caller even sees the
		// error, then signal re-authentication. Never retried.
		if err := c.tokens.ClearAuth(ctx); err != nil {
			c.log.Err(err).Str("func", "Client.classify").Msg("failed to clear auth state after 401")
		}
		c.notifyAuthExpired()
		return nil, &Error{Kind: KindAuthExpired, Status: status, RequestID: reqID, Message: bodyText(resp)}

	case status == http.StatusForbidden && isPlanLimit(resp):
		return nil, &Error{Kind: KindPlanLimit, Status: status, RequestID: reqID, Message: bodyText(resp)}

	case status >= http.StatusBadRequest && status < http.StatusInternalServerError:
		// 4xx never counts against the breaker.
		return nil, &Error{Kind: KindClientError, Status: status, RequestID: reqID, Message: bodyText(resp)}

	default:
		c.breaker.RecordFailure()
		return nil, &Error{Kind: KindServerError, Status: status, RequestID: reqID, Message: bodyText(resp)}
	}
}

func (c *Client) notifyAuthExpired() {
	c.mu.RLock()
	fn := c.onAuthExpired
	c.mu.RUnlock()
	if fn != nil {
		fn()
	}
}

func bodyText(resp *resty.Response) string {
	body := strings.TrimSpace(string(resp.Body()))
	if body == "" {
		body = http.StatusText(resp.StatusCode())
	}
	return body
}

// isPlanLimit recognises the plan-guard rejection body ("... limit reached
// ..."). Sniffing the body is deliberate: the remote API signals plan limits
// through 403 with a human-readable message, not a dedicated status.
func isPlanLimit(resp *resty.Response) bool {
	return strings.Contains(strings.ToLower(string(resp.Body())), "limit")
}
