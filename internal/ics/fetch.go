package ics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	appLog "apptcal/internal/log"
)

// maxFeedBytes bounds a single downloaded ICS body.
const maxFeedBytes = 4 << 20

// Source represents a published ICS calendar to import from.
type Source struct {
	// ID is an internal identifier used for logging.
	ID string
	// URL is the ICS endpoint.
	URL string
}

// Fetcher downloads ICS feeds over HTTP.
type Fetcher struct {
	client *http.Client
}

// NewFetcher creates a Fetcher. A nil client gets one with a 15s timeout.
func NewFetcher(client *http.Client) *Fetcher {
	if client == nil {
		client = &http.Client{
			Timeout: 15 * time.Second,
		}
	}
	return &Fetcher{client: client}
}

// Fetch downloads the body of a single ICS source.
func (f *Fetcher) Fetch(ctx context.Context, src Source) ([]byte, error) {
	if src.URL == "" {
		return nil, errors.New("source URL is empty")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/calendar")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ics fetch %s: %s", src.ID, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes+1))
	if err != nil {
		return nil, err
	}
	if len(body) > maxFeedBytes {
		return nil, fmt.Errorf("ics fetch %s: body exceeds %d bytes", src.ID, maxFeedBytes)
	}
	return body, nil
}

// ImportAll downloads and parses every source in order. A source that
// cannot be fetched or parsed contributes an error and nothing else; the
// remaining sources are still imported.
func (f *Fetcher) ImportAll(ctx context.Context, sources []Source) (ImportResult, []error) {
	var (
		out  ImportResult
		errs []error
	)

	for _, src := range sources {
		body, err := f.Fetch(ctx, src)
		if err != nil {
			appLog.Error("ics import: fetch failed", err, "id", src.ID, "url", redactURL(src.URL))
			errs = append(errs, err)
			continue
		}

		parsed, err := ParseICS(body)
		if err != nil {
			appLog.Error("ics import: parse failed", err, "id", src.ID, "url", redactURL(src.URL))
			errs = append(errs, fmt.Errorf("ics import %s: %w", src.ID, err))
			continue
		}

		appLog.Info("ics import: source done",
			"id", src.ID,
			"url", redactURL(src.URL),
			"bytes", len(body),
			"imported", len(parsed.Appointments),
			"skipped", len(parsed.Skipped),
		)
		out.Appointments = append(out.Appointments, parsed.Appointments...)
		out.Skipped = append(out.Skipped, parsed.Skipped...)
	}
	return out, errs
}

// redactURL keeps only the scheme and host of a feed URL for logging.
// Private calendar links usually carry their secret in the path or query.
//
//	https://user:pw@example.com/private.ics?token=abcd
//	-> https://example.com/...(redacted)
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "ics://...(redacted)"
	}
	return u.Scheme + "://" + u.Host + "/...(redacted)"
}
