package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/driftrss/drift/internal/debuglog"
	"github.com/driftrss/drift/internal/search"
)

var flagSearchLimit int

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Full-text search across cached articles and notes",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		idx, err := openIndex(a)
		if err != nil {
			return err
		}
		defer idx.Close()

		query := ""
		for i, arg := range args {
			if i > 0 {
				query += " "
			}
			query += arg
		}

		results, err := idx.Search(query, flagSearchLimit)
		if err != nil {
			return err
		}
		if len(results) == 0 {
			fmt.Println("No matches.")
			return nil
		}
		for _, r := range results {
			if r.IsNote() {
				fmt.Printf("%s %s  %s\n", dimStyle.Render("note"), titleStyle.Render(r.Note.Title), idStyle.Render(r.Note.ID))
				continue
			}
			fmt.Printf("%s %s  %s\n", dimStyle.Render("article"), titleStyle.Render(r.Article.Title), idStyle.Render(r.Article.ID))
		}
		return nil
	},
}

func init() {
	searchCmd.Flags().IntVar(&flagSearchLimit, "limit", 20, "maximum results")
	rootCmd.AddCommand(searchCmd)
}

func openIndex(a *app) (*search.Index, error) {
	return search.Open(a.store, expandHome(a.cfg.Database.SearchIndex))
}

// syncSearchIndex rebuilds the index from current data. Best-effort: search
// staleness is not worth failing a feed command over.
func syncSearchIndex(a *app) {
	idx, err := openIndex(a)
	if err != nil {
		debuglog.Warnf("cli: updating search index: %v", err)
		return
	}
	idx.Close()
}

func removeFeedFromIndex(a *app, feedID string) {
	idx, err := openIndex(a)
	if err != nil {
		debuglog.Warnf("cli: updating search index: %v", err)
		return
	}
	defer idx.Close()
	idx.RemoveFeed(feedID)
}
