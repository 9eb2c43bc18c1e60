package bib

import (
	"context"
	"fmt"
	"strings"

	"spacer/internal/logging"

	"golang.org/x/sync/errgroup"
)

// Verdict classifies one verified entry.
type Verdict int

const (
	Verified Verdict = iota
	ClosestMatch
	NotFound
	LookupError
)

// Verification is the result for one .bib entry.
type Verification struct {
	Entry   Entry
	Verdict Verdict
	Match   string // closest title, for ClosestMatch
	Err     error  // for LookupError
}

// String renders the verification line printed by `spacer bib verify`.
func (v Verification) String() string {
	switch v.Verdict {
	case Verified:
		return fmt.Sprintf("✓ %s: verified", v.Entry.Key)
	case ClosestMatch:
		return fmt.Sprintf("? %s: closest match: %q", v.Entry.Key, v.Match)
	case NotFound:
		return fmt.Sprintf("✗ %s: not found", v.Entry.Key)
	default:
		return fmt.Sprintf("! %s: error: %v", v.Entry.Key, v.Err)
	}
}

// VerifyConcurrency bounds parallel Semantic Scholar lookups. It is kept
// low because the public API rate limits aggressively.
const VerifyConcurrency = 2

// Verify checks each entry's title against Semantic Scholar's best match.
// Results are in input order. A failed lookup is reported in its
// Verification and does not stop the others.
func (c *Client) Verify(ctx context.Context, entries []Entry) []Verification {
	results := make([]Verification, len(entries))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(VerifyConcurrency)
	for i, e := range entries {
		g.Go(func() error {
			results[i] = c.verifyOne(ctx, e)
			return nil
		})
	}
	_ = g.Wait()

	logging.Bib("verified %d entr(ies)", len(entries))
	return results
}

func (c *Client) verifyOne(ctx context.Context, e Entry) Verification {
	records, err := c.Search(ctx, e.Title, 1)
	if err != nil {
		return Verification{Entry: e, Verdict: LookupError, Err: err}
	}
	if len(records) == 0 {
		return Verification{Entry: e, Verdict: NotFound}
	}
	if sameTitle(records[0].Title, e.Title) {
		return Verification{Entry: e, Verdict: Verified}
	}
	return Verification{Entry: e, Verdict: ClosestMatch, Match: records[0].Title}
}

func sameTitle(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
