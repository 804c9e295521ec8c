package ics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/doyensec/safeurl"

	appLog "lifelist/internal/log"
)

// maxBody caps a fetched calendar payload.
const maxBody = 8 << 20

// ErrForbiddenTarget is returned when a calendar URL resolves to an
// address or port the fetcher refuses to dial.
var ErrForbiddenTarget = errors.New("calendar URL target not allowed")

// Fetcher downloads calendars to import.
type Fetcher struct {
	client *http.Client
}

// NewFetcher returns a Fetcher using client. A nil client gets a 15s
// timeout and dials only public addresses on ports 80 and 443; the check
// runs on every connection, redirects included.
func NewFetcher(client *http.Client) *Fetcher {
	if client == nil {
		guard := safeurl.GetConfigBuilder().
			SetTimeout(15 * time.Second).
			EnableIPv6(true).
			Build()
		client = safeurl.Client(guard).Client
	}
	return &Fetcher{client: client}
}

// Fetch downloads the calendar at rawURL. Only http and https URLs are
// accepted and only a 200 response is treated as a body.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("calendar URL %q must be an absolute http(s) URL", redactURL(rawURL))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/calendar")

	appLog.Info("ics fetch start", "url", redactURL(rawURL))
	resp, err := f.client.Do(req)
	if err != nil {
		if refused(err) {
			appLog.Warn("ics fetch refused", "url", redactURL(rawURL), "error", err.Error())
			return nil, fmt.Errorf("%w: %w", ErrForbiddenTarget, err)
		}
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.New(resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody+1))
	if err != nil {
		return nil, err
	}
	if len(body) > maxBody {
		return nil, fmt.Errorf("calendar exceeds %d bytes", maxBody)
	}
	appLog.Info("ics fetch success", "url", redactURL(rawURL), "bytes", len(body))
	return body, nil
}

func refused(err error) bool {
	var (
		ipErr   *safeurl.AllowedIPError
		portErr *safeurl.AllowedPortError
		v6Err   *safeurl.IPv6BlockedError
	)
	return errors.As(err, &ipErr) || errors.As(err, &portErr) || errors.As(err, &v6Err)
}

// redactURL keeps the scheme and host of a calendar URL for logging.
// Private feed URLs carry tokens in the path or query.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "ics://...(redacted)"
	}
	return u.Scheme + "://" + u.Host + "/...(redacted)"
}
