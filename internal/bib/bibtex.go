package bib

import (
	"fmt"
	"regexp"
	"strings"
)

// Key returns the citation key: the first author's lowercased surname
// followed by the year. Authors stored as "Family, Given" use the part
// before the comma; otherwise the last word of the name is the surname.
func (r Record) Key() string {
	surname := "unknown"
	if len(r.Authors) > 0 {
		name := strings.TrimSpace(r.Authors[0])
		if family, _, ok := strings.Cut(name, ","); ok {
			name = strings.TrimSpace(family)
		} else if fields := strings.Fields(name); len(fields) > 0 {
			name = fields[len(fields)-1]
		}
		if name != "" {
			surname = strings.ToLower(name)
		}
	}
	return surname + r.Year
}

// BibTeX renders r as an @article entry. An empty key uses r.Key().
// arXiv-only records get eprint fields instead of a journal.
func BibTeX(r Record, key string) string {
	if key == "" {
		key = r.Key()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "@article{%s,\n", key)
	field := func(name, value string) {
		fmt.Fprintf(&b, "  %s = {%s},\n", name, value)
	}
	field("title", r.Title)
	field("author", strings.Join(r.Authors, " and "))
	field("year", r.Year)
	if r.Venue != "" {
		field("journal", r.Venue)
	}
	if r.IDs.DOI != "" {
		field("doi", r.IDs.DOI)
	}
	if r.IDs.Arxiv != "" && r.IDs.DOI == "" {
		field("eprint", r.IDs.Arxiv)
		field("archivePrefix", "arXiv")
	}
	b.WriteString("}")
	return b.String()
}

// Entry is a citation key and title read from a .bib file.
type Entry struct {
	Key   string
	Title string
}

var entryPattern = regexp.MustCompile(`(?s)@\w+\{([^,]+),.*?title\s*=\s*\{([^}]+)\}`)

// ParseBibFile extracts each entry's key and title. Titles have their
// whitespace collapsed. Entries without a braced title are skipped.
func ParseBibFile(content string) []Entry {
	var entries []Entry
	for _, m := range entryPattern.FindAllStringSubmatch(content, -1) {
		entries = append(entries, Entry{
			Key:   strings.TrimSpace(m[1]),
			Title: strings.Join(strings.Fields(m[2]), " "),
		})
	}
	return entries
}
