package bib

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/url"
	"strings"

	"spacer/internal/logging"
)

// arXiv answers in Atom; only the fields a BibTeX entry needs are decoded.
type arxivFeed struct {
	Entries []arxivEntry `xml:"http://www.w3.org/2005/Atom entry"`
}

type arxivEntry struct {
	ID        string `xml:"http://www.w3.org/2005/Atom id"`
	Title     string `xml:"http://www.w3.org/2005/Atom title"`
	Published string `xml:"http://www.w3.org/2005/Atom published"`
	Authors   []struct {
		Name string `xml:"http://www.w3.org/2005/Atom name"`
	} `xml:"http://www.w3.org/2005/Atom author"`
}

// ByArxiv fetches a record from the arXiv export API.
func (c *Client) ByArxiv(ctx context.Context, id string) (Record, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Record{}, fmt.Errorf("empty arXiv id")
	}
	base := c.ArxivURL
	if base == "" {
		base = ArxivURL
	}

	body, err := c.get(ctx, "arXiv", base+"?"+url.Values{"id_list": {id}}.Encode())
	if err != nil {
		return Record{}, err
	}

	var feed arxivFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return Record{}, fmt.Errorf("failed to parse arXiv response: %w", err)
	}
	// An unknown id still yields a feed; its single entry has no title.
	if len(feed.Entries) == 0 || strings.TrimSpace(feed.Entries[0].Title) == "" {
		return Record{}, fmt.Errorf("arXiv %s: %w", id, ErrNotFound)
	}

	e := feed.Entries[0]
	r := Record{
		Title: strings.Join(strings.Fields(e.Title), " "),
		IDs:   Identifiers{Arxiv: id},
	}
	for _, a := range e.Authors {
		r.Authors = append(r.Authors, strings.TrimSpace(a.Name))
	}
	if len(e.Published) >= 4 {
		r.Year = e.Published[:4]
	}
	logging.Bib("arxiv %s: %q", id, r.Title)
	return r, nil
}
