package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"spacer/internal/bib"

	"github.com/spf13/cobra"
)

var (
	bibLimit int
	bibDOI   string
	bibArxiv string
	bibTitle string
)

// bibCmd groups the bibliography tools
var bibCmd = &cobra.Command{
	Use:   "bib",
	Short: "Bibliography tools: search, fetch, verify",
}

var bibSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search Semantic Scholar for papers",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runBibSearch,
}

var bibGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Print a BibTeX entry by DOI, arXiv ID or title",
	Args:  cobra.NoArgs,
	RunE:  runBibGet,
}

var bibVerifyCmd = &cobra.Command{
	Use:   "verify <bibfile>",
	Short: "Check every entry of a .bib file against Semantic Scholar",
	Args:  cobra.ExactArgs(1),
	RunE:  runBibVerify,
}

func init() {
	bibSearchCmd.Flags().IntVar(&bibLimit, "limit", 10, "Number of results")
	bibGetCmd.Flags().StringVar(&bibDOI, "doi", "", "Fetch by DOI (CrossRef)")
	bibGetCmd.Flags().StringVar(&bibArxiv, "arxiv", "", "Fetch by arXiv ID")
	bibGetCmd.Flags().StringVar(&bibTitle, "title", "", "Fetch the best title match (Semantic Scholar)")
	bibGetCmd.MarkFlagsMutuallyExclusive("doi", "arxiv", "title")

	bibCmd.AddCommand(bibSearchCmd)
	bibCmd.AddCommand(bibGetCmd)
	bibCmd.AddCommand(bibVerifyCmd)
}

// newBibClient returns a client that reports rate-limit backoff on stderr.
func newBibClient(stderr io.Writer) *bib.Client {
	c := bib.NewClient()
	c.OnRateLimit = func(wait time.Duration) {
		fmt.Fprintf(stderr, "Rate limited, retrying in %v...\n", wait)
	}
	return c
}

func runBibSearch(cmd *cobra.Command, args []string) error {
	query := joinArgs(args)
	records, err := newBibClient(cmd.ErrOrStderr()).Search(cmd.Context(), query, bibLimit)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(records) == 0 {
		fmt.Fprintln(out, "No results found.")
		return nil
	}
	for i, r := range records {
		writeSearchResult(out, i+1, r)
	}
	return nil
}

func writeSearchResult(out io.Writer, n int, r bib.Record) {
	year := r.Year
	if year == "" {
		year = "?"
	}
	fmt.Fprintf(out, "\n[%d] %s (%s)\n", n, r.Title, year)
	fmt.Fprintf(out, "    %s\n", r.AuthorList(3))
	fmt.Fprintf(out, "    %s  |  citations: %d\n", r.Venue, r.Citations)
	if r.IDs.DOI != "" {
		fmt.Fprintf(out, "    doi: %s\n", r.IDs.DOI)
	}
	if r.IDs.Arxiv != "" {
		fmt.Fprintf(out, "    arxiv: %s\n", r.IDs.Arxiv)
	}
}

func runBibGet(cmd *cobra.Command, args []string) error {
	c := newBibClient(cmd.ErrOrStderr())
	ctx := cmd.Context()

	var (
		r   bib.Record
		err error
	)
	switch {
	case bibDOI != "":
		r, err = c.ByDOI(ctx, bibDOI)
	case bibArxiv != "":
		r, err = c.ByArxiv(ctx, bibArxiv)
	case bibTitle != "":
		r, err = c.ByTitle(ctx, bibTitle)
	default:
		return errors.New("provide --doi, --arxiv, or --title")
	}
	if errors.Is(err, bib.ErrNotFound) {
		fmt.Fprintln(cmd.OutOrStdout(), "Not found.")
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), bib.BibTeX(r, ""))
	return nil
}

func runBibVerify(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[0], err)
	}
	out := cmd.OutOrStdout()
	entries := bib.ParseBibFile(string(data))
	if len(entries) == 0 {
		fmt.Fprintln(out, "No entries found in bib file.")
		return nil
	}

	for _, v := range newBibClient(cmd.ErrOrStderr()).Verify(cmd.Context(), entries) {
		fmt.Fprintf(out, "  %s\n", v)
	}
	return nil
}
