package bib

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testClient points every service at srv and records backoff waits
// instead of sleeping.
func testClient(srv *httptest.Server, waits *[]time.Duration) *Client {
	c := NewClient()
	c.S2BaseURL = srv.URL + "/graph/v1"
	c.CrossRefURL = srv.URL + "/works"
	c.ArxivURL = srv.URL + "/arxiv"
	c.Sleep = func(_ context.Context, d time.Duration) error {
		if waits != nil {
			*waits = append(*waits, d)
		}
		return nil
	}
	return c
}

const searchBody = `{"total": 2, "data": [
  {"title": "Writing Beyond the Academy", "year": 2014, "venue": "UChicago",
   "authors": [{"name": "Larry McEnerney"}], "citationCount": 120,
   "externalIds": {"DOI": "10.1000/xyz", "CorpusId": 42}},
  {"title": "Attention Is All You Need", "year": 2017, "venue": "NeurIPS",
   "authors": [{"name": "Ashish Vaswani"}, {"name": "Noam Shazeer"}, {"name": "Niki Parmar"}, {"name": "Jakob Uszkoreit"}],
   "citationCount": 90000, "externalIds": {"ArXiv": "1706.03762"}}
]}`

func TestSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/graph/v1/paper/search", r.URL.Path)
		assert.Equal(t, UserAgent, r.Header.Get("User-Agent"))
		assert.Equal(t, "reader instability", r.URL.Query().Get("query"))
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		assert.Equal(t, searchFields, r.URL.Query().Get("fields"))
		fmt.Fprint(w, searchBody)
	}))
	defer srv.Close()

	records, err := testClient(srv, nil).Search(context.Background(), "reader instability", 5)
	require.NoError(t, err)
	require.Len(t, records, 2)

	want := Record{
		Title:     "Writing Beyond the Academy",
		Authors:   []string{"Larry McEnerney"},
		Year:      "2014",
		Venue:     "UChicago",
		IDs:       Identifiers{DOI: "10.1000/xyz"},
		Citations: 120,
	}
	if diff := cmp.Diff(want, records[0]); diff != "" {
		t.Errorf("record mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "1706.03762", records[1].IDs.Arxiv)
	assert.Equal(t, "Ashish Vaswani, Noam Shazeer, Niki Parmar et al.", records[1].AuthorList(3))
	assert.Equal(t, "• [2017] Attention Is All You Need\n  Ashish Vaswani, Noam Shazeer, Niki Parmar et al. | NeurIPS (citations: 90000)", records[1].Short())
}

func TestSearchEmptyQuery(t *testing.T) {
	_, err := NewClient().Search(context.Background(), "   ", 0)
	assert.Error(t, err)
}

func TestRateLimitRetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `{"data": []}`)
	}))
	defer srv.Close()

	var waits []time.Duration
	c := testClient(srv, &waits)
	var notified int
	c.OnRateLimit = func(time.Duration) { notified++ }

	records, err := c.Search(context.Background(), "q", 1)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, waits)
	assert.Equal(t, 2, notified)
}

func TestRateLimitExhausted(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := testClient(srv, nil).Search(context.Background(), "q", 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRateLimited))
	assert.Equal(t, int32(MaxAttempts), calls.Load())

	var rl *RateLimitError
	require.True(t, errors.As(err, &rl))
	assert.Equal(t, "Semantic Scholar", rl.Service)
}

func TestServerErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := testClient(srv, nil).Search(context.Background(), "q", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 500")
	assert.Equal(t, int32(1), calls.Load())
}

func TestByDOI(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/works/10.1000/xyz", r.URL.Path)
		fmt.Fprint(w, `{"message": {
		  "title": ["The Craft of Research"],
		  "author": [{"given": "Wayne", "family": "Booth"}, {"given": "Gregory", "family": "Colomb"}],
		  "container-title": ["Chicago Guides"],
		  "published-online": {"date-parts": [[2008, 4]]},
		  "created": {"date-parts": [[2007, 1, 2]]}
		}}`)
	}))
	defer srv.Close()

	r, err := testClient(srv, nil).ByDOI(context.Background(), "10.1000/xyz")
	require.NoError(t, err)
	assert.Equal(t, "2008", r.Year)
	assert.Equal(t, []string{"Booth, Wayne", "Colomb, Gregory"}, r.Authors)
	assert.Equal(t, "booth2008", r.Key())

	want := strings.Join([]string{
		"@article{booth2008,",
		"  title = {The Craft of Research},",
		"  author = {Booth, Wayne and Colomb, Gregory},",
		"  year = {2008},",
		"  journal = {Chicago Guides},",
		"  doi = {10.1000/xyz},",
		"}",
	}, "\n")
	assert.Equal(t, want, BibTeX(r, ""))
}

func TestByDOINotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := testClient(srv, nil).ByDOI(context.Background(), "10.0/missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

const arxivBody = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <id>http://arxiv.org/abs/1706.03762v7</id>
    <published>2017-06-12T17:57:34Z</published>
    <title>Attention Is All
      You Need</title>
    <author><name>Ashish Vaswani</name></author>
    <author><name>Noam Shazeer</name></author>
  </entry>
</feed>`

func TestByArxiv(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1706.03762", r.URL.Query().Get("id_list"))
		fmt.Fprint(w, arxivBody)
	}))
	defer srv.Close()

	r, err := testClient(srv, nil).ByArxiv(context.Background(), "1706.03762")
	require.NoError(t, err)
	assert.Equal(t, "Attention Is All You Need", r.Title)
	assert.Equal(t, "2017", r.Year)

	bib := BibTeX(r, "")
	assert.True(t, strings.HasPrefix(bib, "@article{vaswani2017,\n"))
	assert.Contains(t, bib, "  author = {Ashish Vaswani and Noam Shazeer},\n")
	assert.Contains(t, bib, "  eprint = {1706.03762},\n")
	assert.Contains(t, bib, "  archivePrefix = {arXiv},\n")
	assert.NotContains(t, bib, "journal")
}

func TestByArxivEmptyFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<feed xmlns="http://www.w3.org/2005/Atom"></feed>`)
	}))
	defer srv.Close()

	_, err := testClient(srv, nil).ByArxiv(context.Background(), "0000.00000")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRecordKey(t *testing.T) {
	tests := []struct {
		name string
		r    Record
		want string
	}{
		{"given family", Record{Authors: []string{"Larry McEnerney"}, Year: "2014"}, "mcenerney2014"},
		{"family comma given", Record{Authors: []string{"Booth, Wayne"}, Year: "2008"}, "booth2008"},
		{"no authors", Record{Year: "2020"}, "unknown2020"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.r.Key())
		})
	}
}

func TestParseBibFile(t *testing.T) {
	content := `@article{smith2020,
  title = {Deep   Learning
    for Writers},
  author = {Smith, J},
}

@inproceedings{doe2019, author = {Doe}, title={Second Paper}}

@misc{notitle2001, author = {Nobody}}
`
	got := ParseBibFile(content)
	want := []Entry{
		{Key: "smith2020", Title: "Deep Learning for Writers"},
		{Key: "doe2019", Title: "Second Paper"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
}

func TestVerify(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("query") {
		case "Exact Title":
			fmt.Fprint(w, `{"data": [{"title": "exact title"}]}`)
		case "Fuzzy Title":
			fmt.Fprint(w, `{"data": [{"title": "A Different Title"}]}`)
		case "Broken":
			http.Error(w, "down", http.StatusBadGateway)
		default:
			fmt.Fprint(w, `{"data": []}`)
		}
	}))
	defer srv.Close()

	entries := []Entry{
		{Key: "a", Title: "Exact Title"},
		{Key: "b", Title: "Fuzzy Title"},
		{Key: "c", Title: "Missing"},
		{Key: "d", Title: "Broken"},
	}
	results := testClient(srv, nil).Verify(context.Background(), entries)
	require.Len(t, results, 4)

	var lines []string
	for _, v := range results {
		lines = append(lines, v.String())
	}
	assert.Equal(t, "✓ a: verified", lines[0])
	assert.Equal(t, `? b: closest match: "A Different Title"`, lines[1])
	assert.Equal(t, "✗ c: not found", lines[2])
	assert.True(t, strings.HasPrefix(lines[3], "! d: error: "))
	assert.Equal(t, LookupError, results[3].Verdict)
}
