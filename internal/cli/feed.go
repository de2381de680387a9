package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/driftrss/drift/internal/ai"
	"github.com/driftrss/drift/internal/feed"
)

var (
	flagFeedCategory string
	flagFeedFilter   string
	flagForceRefresh bool
)

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "Manage feed subscriptions",
}

var feedAddCmd = &cobra.Command{
	Use:   "add <url>",
	Short: "Subscribe to a feed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		mgr := newFeedManager(a)
		f, err := mgr.AddFeed(args[0], flagFeedCategory, flagFeedFilter)
		if err != nil {
			return err
		}
		syncSearchIndex(a)
		fmt.Printf("Added %s (%s)\n", titleStyle.Render(f.Title), idStyle.Render(f.ID))
		return nil
	},
}

var feedListCmd = &cobra.Command{
	Use:   "list",
	Short: "List subscribed feeds",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		feeds, err := a.store.GetAllFeeds()
		if err != nil {
			return err
		}
		if len(feeds) == 0 {
			fmt.Println("No feeds. Add one with: drift feed add <url>")
			return nil
		}
		for _, f := range feeds {
			line := fmt.Sprintf("%s  %s", titleStyle.Render(f.Title), dimStyle.Render(f.URL))
			if f.Category != "" {
				line += "  " + dimStyle.Render("["+f.Category+"]")
			}
			fmt.Println(line)
			fmt.Printf("  %s  fetched %s\n", idStyle.Render(f.ID), relativeTime(f.LastFetched))
		}
		return nil
	},
}

var feedRefreshCmd = &cobra.Command{
	Use:   "refresh [feed-id]",
	Short: "Refresh one feed, or all feeds",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		mgr := newFeedManager(a)
		mgr.SetForceRefresh(flagForceRefresh)

		if len(args) == 1 {
			if err := mgr.RefreshFeed(args[0]); err != nil {
				return err
			}
			syncSearchIndex(a)
			fmt.Println("Refreshed.")
			return nil
		}

		if err := mgr.RefreshAllFeeds(); err != nil {
			return err
		}
		syncSearchIndex(a)
		fmt.Println("Refreshed all feeds.")
		return nil
	},
}

var feedRemoveCmd = &cobra.Command{
	Use:   "remove <feed-id>",
	Short: "Unsubscribe and delete the feed's cached articles",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		mgr := newFeedManager(a)
		if err := mgr.DeleteFeed(args[0]); err != nil {
			return err
		}
		removeFeedFromIndex(a, args[0])
		fmt.Println("Removed.")
		return nil
	},
}

func init() {
	feedAddCmd.Flags().StringVar(&flagFeedCategory, "category", "", "category label for the feed")
	feedAddCmd.Flags().StringVar(&flagFeedFilter, "ai-filter", "", "natural-language rule; non-matching articles arrive marked read")
	feedRefreshCmd.Flags().BoolVar(&flagForceRefresh, "force", false, "ignore ETag/Last-Modified caching")

	feedCmd.AddCommand(feedAddCmd, feedListCmd, feedRefreshCmd, feedRemoveCmd)
	rootCmd.AddCommand(feedCmd)
}

// newFeedManager builds the lifecycle manager, installing the AI filter when
// an API key is configured. Without a key, feeds with filter rules still
// refresh; the rules just don't run.
func newFeedManager(a *app) *feed.Manager {
	mgr := feed.NewManager(a.store, a.cfg)
	svc, err := ai.New(a.cfg.AI)
	if err != nil {
		return mgr
	}
	mgr.SetFilter(func(ctx context.Context, items []feed.FilterItem, rule string) (map[string]bool, error) {
		aiItems := make([]ai.FilterItem, len(items))
		for i, it := range items {
			aiItems[i] = ai.FilterItem{ID: it.ID, Title: it.Title, Description: it.Description}
		}
		return svc.FilterMatches(ctx, aiItems, rule)
	})
	return mgr
}
