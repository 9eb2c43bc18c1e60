// Package bib looks up publication records on Semantic Scholar, CrossRef
// and arXiv and renders them as BibTeX.
package bib

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"spacer/internal/logging"
)

// Public endpoints.
const (
	SemanticScholarURL = "https://api.semanticscholar.org/graph/v1"
	CrossRefURL        = "https://api.crossref.org/works"
	ArxivURL           = "http://export.arxiv.org/api/query"

	UserAgent      = "spacer-cli/0.1"
	DefaultTimeout = 15 * time.Second
	MaxAttempts    = 3

	searchFields = "title,authors,year,venue,externalIds,citationCount"
)

// ErrRateLimited matches every *RateLimitError.
var ErrRateLimited = errors.New("rate limited")

// ErrNotFound is returned by identifier lookups with no match.
var ErrNotFound = errors.New("not found")

// RateLimitError is returned once every retry was answered with 429.
type RateLimitError struct {
	Service  string
	Attempts int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s rate limit exceeded after %d attempts", e.Service, e.Attempts)
}

// Is lets errors.Is match ErrRateLimited.
func (e *RateLimitError) Is(target error) bool { return target == ErrRateLimited }

// Identifiers are the external ids of a record.
type Identifiers struct {
	DOI   string
	Arxiv string
}

// Record is one publication.
type Record struct {
	Title     string
	Authors   []string
	Year      string
	Venue     string
	IDs       Identifiers
	Citations int
}

// Short renders the record the way the chat lists search results.
func (r Record) Short() string {
	byline := r.AuthorList(3)
	if r.Venue != "" {
		byline += " | " + r.Venue
	}
	return fmt.Sprintf("• [%s] %s\n  %s (citations: %d)", orUnknown(r.Year), orUnknown(r.Title), byline, r.Citations)
}

// AuthorList joins up to max authors, adding "et al." past that.
func (r Record) AuthorList(max int) string {
	if len(r.Authors) <= max {
		return strings.Join(r.Authors, ", ")
	}
	return strings.Join(r.Authors[:max], ", ") + " et al."
}

func orUnknown(s string) string {
	if s == "" {
		return "?"
	}
	return s
}

// Client talks to the bibliography services. Zero-valued URL fields use
// the public endpoints.
type Client struct {
	HTTP         *http.Client
	S2BaseURL    string
	CrossRefURL  string
	ArxivURL     string
	Sleep        func(ctx context.Context, d time.Duration) error
	OnRateLimit  func(wait time.Duration) // called before each backoff
	MaxAttempts  int
	DefaultLimit int
}

// NewClient returns a client for the public services.
func NewClient() *Client {
	return &Client{
		HTTP:         &http.Client{Timeout: DefaultTimeout},
		S2BaseURL:    SemanticScholarURL,
		CrossRefURL:  CrossRefURL,
		ArxivURL:     ArxivURL,
		Sleep:        sleepContext,
		MaxAttempts:  MaxAttempts,
		DefaultLimit: 10,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return &http.Client{Timeout: DefaultTimeout}
}

func (c *Client) s2URL() string {
	if c.S2BaseURL != "" {
		return strings.TrimRight(c.S2BaseURL, "/")
	}
	return SemanticScholarURL
}

// get issues a GET and returns the body of a 200 response. A 429 is
// retried with 1s, 2s, 4s... backoff up to MaxAttempts.
func (c *Client) get(ctx context.Context, service, rawURL string) ([]byte, error) {
	attempts := c.MaxAttempts
	if attempts <= 0 {
		attempts = MaxAttempts
	}
	sleep := c.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	for attempt := 0; attempt < attempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("User-Agent", UserAgent)

		logging.BibDebug("GET %s (attempt %d)", rawURL, attempt+1)
		resp, err := c.httpClient().Do(req)
		if err != nil {
			return nil, fmt.Errorf("%s request failed: %w", service, err)
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read %s response: %w", service, err)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			if attempt == attempts-1 {
				break
			}
			wait := time.Duration(1<<attempt) * time.Second
			logging.BibWarn("%s rate limited, retrying in %v", service, wait)
			if c.OnRateLimit != nil {
				c.OnRateLimit(wait)
			}
			if err := sleep(ctx, wait); err != nil {
				return nil, err
			}
			continue
		}

		switch resp.StatusCode {
		case http.StatusOK:
			return body, nil
		case http.StatusNotFound:
			return nil, fmt.Errorf("%s: %w", service, ErrNotFound)
		default:
			return nil, fmt.Errorf("%s returned HTTP %d: %s", service, resp.StatusCode, snippet(body))
		}
	}
	return nil, &RateLimitError{Service: service, Attempts: attempts}
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}

type s2Paper struct {
	Title   string `json:"title"`
	Authors []struct {
		Name string `json:"name"`
	} `json:"authors"`
	Year          int            `json:"year"`
	Venue         string         `json:"venue"`
	ExternalIDs   map[string]any `json:"externalIds"`
	CitationCount int            `json:"citationCount"`
}

func (p s2Paper) record() Record {
	r := Record{Title: p.Title, Venue: p.Venue, Citations: p.CitationCount}
	if p.Year != 0 {
		r.Year = fmt.Sprint(p.Year)
	}
	for _, a := range p.Authors {
		r.Authors = append(r.Authors, a.Name)
	}
	if v, ok := p.ExternalIDs["DOI"].(string); ok {
		r.IDs.DOI = v
	}
	if v, ok := p.ExternalIDs["ArXiv"].(string); ok {
		r.IDs.Arxiv = v
	}
	return r
}

// Search queries Semantic Scholar. limit <= 0 uses the client default.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]Record, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("empty search query")
	}
	if limit <= 0 {
		limit = c.DefaultLimit
		if limit <= 0 {
			limit = 10
		}
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("limit", fmt.Sprint(limit))
	params.Set("fields", searchFields)

	body, err := c.get(ctx, "Semantic Scholar", c.s2URL()+"/paper/search?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Data []s2Paper `json:"data"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse Semantic Scholar response: %w", err)
	}

	records := make([]Record, 0, len(parsed.Data))
	for _, p := range parsed.Data {
		records = append(records, p.record())
	}
	logging.Bib("search %q: %d result(s)", query, len(records))
	return records, nil
}

// ByTitle returns the best Semantic Scholar match for title.
func (c *Client) ByTitle(ctx context.Context, title string) (Record, error) {
	records, err := c.Search(ctx, title, 1)
	if err != nil {
		return Record{}, err
	}
	if len(records) == 0 {
		return Record{}, ErrNotFound
	}
	return records[0], nil
}

type crossrefDate struct {
	DateParts [][]int `json:"date-parts"`
}

// ByDOI fetches a record from CrossRef.
func (c *Client) ByDOI(ctx context.Context, doi string) (Record, error) {
	doi = strings.TrimSpace(doi)
	if doi == "" {
		return Record{}, fmt.Errorf("empty DOI")
	}
	base := c.CrossRefURL
	if base == "" {
		base = CrossRefURL
	}

	body, err := c.get(ctx, "CrossRef", strings.TrimRight(base, "/")+"/"+doi)
	if err != nil {
		return Record{}, err
	}

	var parsed struct {
		Message struct {
			Title  []string `json:"title"`
			Author []struct {
				Given  string `json:"given"`
				Family string `json:"family"`
			} `json:"author"`
			ContainerTitle  []string      `json:"container-title"`
			PublishedPrint  *crossrefDate `json:"published-print"`
			PublishedOnline *crossrefDate `json:"published-online"`
			Created         *crossrefDate `json:"created"`
		} `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Record{}, fmt.Errorf("failed to parse CrossRef response: %w", err)
	}
	msg := parsed.Message

	r := Record{
		Title: strings.Join(msg.Title, " "),
		Venue: strings.Join(msg.ContainerTitle, " "),
		IDs:   Identifiers{DOI: doi},
	}
	for _, a := range msg.Author {
		r.Authors = append(r.Authors, fmt.Sprintf("%s, %s", a.Family, a.Given))
	}
	for _, d := range []*crossrefDate{msg.PublishedPrint, msg.PublishedOnline, msg.Created} {
		if d != nil && len(d.DateParts) > 0 && len(d.DateParts[0]) > 0 {
			r.Year = fmt.Sprint(d.DateParts[0][0])
			break
		}
	}
	logging.Bib("doi %s: %q", doi, r.Title)
	return r, nil
}
