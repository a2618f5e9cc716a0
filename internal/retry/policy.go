package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/timmy/retention/internal/logger"
)

// bodyPrefixLimit bounds how much of an error response body is carried in
// the fatal reason.
const bodyPrefixLimit = 200

// ErrMaxRetries is returned when the attempt budget is exhausted.
var ErrMaxRetries = errors.New("max retries exceeded")

// HTTPError is a non-retryable HTTP failure: a 4xx other than 429.
// It carries the operation, status code, and a bounded body prefix.
type HTTPError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if strings.TrimSpace(e.Body) == "" {
		return fmt.Sprintf("%s: HTTP %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: HTTP %d: %s", e.Op, e.StatusCode, strings.TrimSpace(e.Body))
}

// Policy is the shared retry/backoff policy for all remote calls.
// Delay grows as min(Base * 2^attempt, Cap) with attempt 0-indexed.
type Policy struct {
	Base        time.Duration
	Cap         time.Duration
	MaxAttempts int
}

// DefaultPolicy returns the policy used across the pipeline:
// 1s base, 30s cap, 3 attempts.
func DefaultPolicy() Policy {
	return Policy{
		Base:        time.Second,
		Cap:         30 * time.Second,
		MaxAttempts: 3,
	}
}

// Delay computes the backoff delay for a 0-indexed attempt.
func (p Policy) Delay(attempt int) time.Duration {
	d := p.Base << uint(attempt)
	if d > p.Cap || d <= 0 {
		return p.Cap
	}
	return d
}

// Verdict is the tagged outcome of classifying one attempt. The retry loop
// inspects the tag instead of catching errors mid-flight.
type Verdict struct {
	// Retry is true for transient outcomes worth another attempt.
	Retry bool
	// Delay is how long to wait before the next attempt (retryable only).
	Delay time.Duration
	// Err is the cause: nil on success, the transient cause when Retry is
	// true, the fatal reason when Retry is false.
	Err error
}

// Classify maps one HTTP/transport outcome to a Verdict, checked in order:
// 429 → retry honoring Retry-After; ≥500 → retry with computed delay;
// transport timeout → retry with computed delay; any other transport error →
// fatal; 4xx other than 429 → fatal with status and bounded body prefix.
// Parameters:
//   - op: operation name for error messages.
//   - resp: HTTP response, may be nil on transport errors.
//   - err: transport-level error, nil when a response was received.
//   - attempt: 0-indexed attempt number for delay computation.
// Returns:
//   - Verdict: tagged retry/fatal/success outcome.
func (p Policy) Classify(op string, resp *resty.Response, err error, attempt int) Verdict {
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return Verdict{Err: fmt.Errorf("%s: %w", op, err)}
		}
		var netErr net.Error
		if (errors.As(err, &netErr) && netErr.Timeout()) || errors.Is(err, context.DeadlineExceeded) {
			return Verdict{Retry: true, Delay: p.Delay(attempt), Err: fmt.Errorf("%s: timeout: %w", op, err)}
		}
		// Connection refused, DNS failure and friends are treated as
		// non-transient resource issues, not momentary overload.
		return Verdict{Err: fmt.Errorf("%s: transport error: %w", op, err)}
	}

	status := resp.StatusCode()
	switch {
	case status == 429:
		delay := p.Delay(attempt)
		if after, ok := parseRetryAfter(resp.Header().Get("Retry-After")); ok {
			delay = after
		}
		return Verdict{Retry: true, Delay: delay, Err: fmt.Errorf("%s: rate limited (HTTP 429)", op)}
	case status >= 500:
		return Verdict{Retry: true, Delay: p.Delay(attempt), Err: fmt.Errorf("%s: server error (HTTP %d)", op, status)}
	case status >= 400:
		return Verdict{Err: &HTTPError{Op: op, StatusCode: status, Body: bodyPrefix(resp.Body())}}
	}
	return Verdict{}
}

// Execute runs call under the retry loop until success, a fatal verdict, or
// attempt exhaustion. Exhaustion is itself fatal, wrapping ErrMaxRetries and
// the last observed cause.
// Parameters:
//   - ctx: context for cancellation; backoff sleeps respect it.
//   - op: operation name for logs and errors.
//   - call: one network attempt returning the raw resty outcome.
// Returns:
//   - *resty.Response: last response on success, nil otherwise.
//   - error: non-nil on any fatal outcome.
func (p Policy) Execute(ctx context.Context, op string, call func() (*resty.Response, error)) (*resty.Response, error) {
	var lastErr error

	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		resp, err := call()
		verdict := p.Classify(op, resp, err, attempt)
		if !verdict.Retry {
			if verdict.Err != nil {
				return nil, verdict.Err
			}
			return resp, nil
		}

		lastErr = verdict.Err
		logger.CtxWarn(ctx, "Retrying %s in %s (attempt %d/%d): %v",
			op, verdict.Delay, attempt+1, p.MaxAttempts, verdict.Err)

		select {
		case <-time.After(verdict.Delay):
		case <-ctx.Done():
			return nil, fmt.Errorf("%s: %w", op, ctx.Err())
		}
	}

	return nil, fmt.Errorf("%s: %w after %d attempts, last error: %v", op, ErrMaxRetries, p.MaxAttempts, lastErr)
}

func parseRetryAfter(header string) (time.Duration, bool) {
	if header == "" {
		return 0, false
	}
	secs, err := strconv.ParseFloat(strings.TrimSpace(header), 64)
	if err != nil || secs < 0 {
		return 0, false
	}
	return time.Duration(secs * float64(time.Second)), true
}

func bodyPrefix(body []byte) string {
	if len(body) > bodyPrefixLimit {
		return string(body[:bodyPrefixLimit])
	}
	return string(body)
}
