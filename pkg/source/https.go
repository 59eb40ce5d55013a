package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when the remote server has no artifact at the
// requested location.
var ErrNotFound = errors.New("not found")

const (
	fetchAttempts = 3
	fetchDelay    = time.Second
)

// HTTPSProtocol downloads artifacts with an HTTP GET.
type HTTPSProtocol struct {
	Client *http.Client
	// Attempts and Delay control retries of transient failures (network
	// errors and 5xx responses). The delay doubles after each attempt.
	Attempts int
	Delay    time.Duration
}

var _ Protocol = &HTTPSProtocol{}

// NewHTTPSProtocol returns an HTTPSProtocol using client, or
// http.DefaultClient when client is nil.
func NewHTTPSProtocol(client *http.Client) *HTTPSProtocol {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPSProtocol{Client: client, Attempts: fetchAttempts, Delay: fetchDelay}
}

func (h *HTTPSProtocol) Name() string { return ProtocolHTTPS }

func (h *HTTPSProtocol) ValidateBase(base string) error {
	u, err := url.Parse(base)
	if err != nil {
		return fmt.Errorf("invalid base URL %q: %w", base, err)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return fmt.Errorf("base %q must be an http(s) URL", base)
	}
	if u.Host == "" {
		return fmt.Errorf("base %q has no host", base)
	}
	return nil
}

// Join appends rel to the path of base, leaving the scheme and host intact.
func (h *HTTPSProtocol) Join(base, rel string) string {
	if rel == "" {
		return base
	}
	return strings.TrimRight(base, "/") + "/" + rel
}

func (h *HTTPSProtocol) Fetch(ctx context.Context, absPath, dest string) error {
	attempts := max(h.Attempts, 1)
	delay := h.Delay
	var lastErr error

	for i := range attempts {
		err := h.download(ctx, absPath, dest)
		if err == nil {
			return nil
		}
		if lastErr = err; !isRetryable(err) {
			return err
		}

		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				delay *= 2
			}
		}
	}
	return lastErr
}

// download streams the response body into a temporary sibling of dest and
// renames it into place once the body has been read completely.
func (h *HTTPSProtocol) download(ctx context.Context, rawURL, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return &retryableError{err: err}
	}
	defer resp.Body.Close()

	if err := checkStatus(resp.StatusCode); err != nil {
		return err
	}

	tmp := partialPath(dest)
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("creating %s: %w", tmp, err)
	}

	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(tmp)
		return &retryableError{err: fmt.Errorf("reading response body: %w", err)}
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("writing %s: %w", tmp, err)
	}

	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("moving download into place: %w", err)
	}
	return nil
}

func checkStatus(code int) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusNotFound:
		return ErrNotFound
	case code >= 500:
		return &retryableError{err: fmt.Errorf("server returned status %d", code)}
	default:
		return fmt.Errorf("server returned status %d", code)
	}
}

// partialPath returns a unique in-progress name next to dest. The leading
// dot keeps it from being mistaken for a cached artifact.
func partialPath(dest string) string {
	return filepath.Join(filepath.Dir(dest), "."+filepath.Base(dest)+"."+uuid.NewString()+".part")
}

// retryableError marks a transient failure worth another attempt.
type retryableError struct{ err error }

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

func isRetryable(err error) bool {
	return errors.As(err, new(*retryableError))
}
