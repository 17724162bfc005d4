package httpclient

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"

	"vision-relay-go/internal/platform/errors"
	"vision-relay-go/internal/utils"
)

const (
	DefaultTimeout = 60 * time.Second
	userAgent      = "vision-relay/1.0"
)

// StatusError is a non-2xx provider response.
type StatusError struct {
	Status  int
	Message string
	Body    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("provider responded %d %s: %s", e.Status, http.StatusText(e.Status), e.Message)
}

func (e *StatusError) ErrorKind() errors.Kind { return errors.KindProvider }

type Options struct {
	Logger *utils.Logger
	// Transport replaces the underlying round tripper, mainly for tests.
	Transport http.RoundTripper
}

// Client sends JSON requests to provider APIs.
type Client struct {
	http   *resty.Client
	logger *utils.Logger
}

func New(opts Options) *Client {
	rc := resty.New().
		SetDebug(false).
		SetHeaders(map[string]string{
			"Accept":     "application/json",
			"User-Agent": userAgent,
		}).
		SetJSONMarshaler(sonic.Marshal).
		SetJSONUnmarshaler(sonic.Unmarshal)
	if opts.Transport != nil {
		rc.SetTransport(opts.Transport)
	}
	return &Client{http: rc, logger: opts.Logger}
}

// Send issues method against url with a JSON body and decodes the JSON
// response into a map. A nil body sends no payload.
func (c *Client) Send(ctx context.Context, method, url string, headers map[string]string, body map[string]any, timeout time.Duration) (map[string]any, error) {
	const op = "httpclient.send"

	if ctx == nil {
		ctx = context.Background()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req := c.http.NewRequest().
		SetContext(ctx).
		SetHeaders(headers)
	if body != nil {
		payload, err := sonic.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(errors.KindParse, op, "encode request body", err)
		}
		req.SetBody(payload)
	}

	start := time.Now()
	res, err := handleError(req.Execute(method, url))
	if err != nil {
		var statusErr *StatusError
		if stderrors.As(err, &statusErr) {
			c.logger.WarnTag("PROVIDER", "%s %s -> %d in %s: %s", method, url, statusErr.Status,
				time.Since(start).Round(time.Millisecond), utils.Truncate(statusErr.Message, 200))
			return nil, statusErr
		}
		if stderrors.Is(err, context.DeadlineExceeded) {
			return nil, errors.Wrap(errors.KindNetwork, op,
				fmt.Sprintf("%s %s timed out after %s", method, url, timeout), err)
		}
		return nil, errors.Wrap(errors.KindNetwork, op, fmt.Sprintf("%s %s failed", method, url), err)
	}

	c.logger.DebugTag("PROVIDER", "%s %s -> %d in %s", method, url, res.StatusCode(),
		time.Since(start).Round(time.Millisecond))

	raw := res.Body()
	if len(strings.TrimSpace(string(raw))) == 0 {
		return map[string]any{}, nil
	}
	var decoded map[string]any
	if err := sonic.Unmarshal(raw, &decoded); err != nil {
		return nil, errors.Wrap(errors.KindParse, op,
			"response is not a JSON object: "+utils.Truncate(string(raw), 120), err)
	}
	return decoded, nil
}

// handleError turns non-2xx responses into a StatusError. Without this,
// failing responses would have nil error.
func handleError(res *resty.Response, err error) (*resty.Response, error) {
	if err != nil {
		return res, err
	}
	if res.IsError() || res.StatusCode() >= 300 {
		body := string(res.Body())
		return res, &StatusError{
			Status:  res.StatusCode(),
			Message: providerMessage(res.Body()),
			Body:    body,
		}
	}
	return res, nil
}

// providerMessage pulls a human readable message out of an error body:
// {"error":{"message"}}, {"error":"..."}, {"message"} or the raw text.
func providerMessage(body []byte) string {
	var parsed map[string]any
	if err := sonic.Unmarshal(body, &parsed); err == nil {
		switch e := parsed["error"].(type) {
		case map[string]any:
			if msg, ok := e["message"].(string); ok && msg != "" {
				return msg
			}
		case string:
			if e != "" {
				return e
			}
		}
		if msg, ok := parsed["message"].(string); ok && msg != "" {
			return msg
		}
	}
	text := strings.TrimSpace(utils.RemoveControlCharacters(string(body)))
	if text == "" {
		return "empty response body"
	}
	return utils.Truncate(text, 500)
}
