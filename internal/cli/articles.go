package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/driftrss/drift/internal/ai"
	"github.com/driftrss/drift/internal/feed"
	"github.com/driftrss/drift/internal/storage"
)

var (
	flagArticlesFeed   string
	flagArticlesUnread bool
	flagArticlesLimit  int
)

var articlesCmd = &cobra.Command{
	Use:   "articles",
	Short: "List cached articles",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		var articles []*storage.Article
		if flagArticlesFeed != "" {
			articles, err = a.store.GetArticles(flagArticlesFeed, flagArticlesLimit)
			if err != nil {
				return err
			}
		} else {
			feeds, err := a.store.GetAllFeeds()
			if err != nil {
				return err
			}
			for _, f := range feeds {
				batch, err := a.store.GetArticles(f.ID, flagArticlesLimit)
				if err != nil {
					return err
				}
				articles = append(articles, batch...)
			}
		}

		shown := 0
		for _, art := range articles {
			if flagArticlesUnread && art.Read {
				continue
			}
			printArticleLine(art)
			shown++
		}
		if shown == 0 {
			fmt.Println("Nothing here. Try: drift feed refresh")
		}
		return nil
	},
}

var readCmd = &cobra.Command{
	Use:   "read <article-id>",
	Short: "Show an article and mark it read",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		article, err := a.store.GetArticle(args[0])
		if err != nil {
			return err
		}

		fmt.Println(titleStyle.Render(article.Title))
		fmt.Println(dimStyle.Render(article.Link))
		if article.AISummary != "" {
			fmt.Println(renderMarkdown("**Summary:** " + article.AISummary))
		}
		if article.Description != "" {
			fmt.Println(renderMarkdown(article.Description))
		}

		return a.store.MarkArticleRead(article.ID, true)
	},
}

var summarizeCmd = &cobra.Command{
	Use:   "summarize <article-id>",
	Short: "Generate an AI summary for an article",
	Long: `Generates a short AI summary and stores it on the article. Summarizing
also counts as engagement: the article's expiry clock is pushed out another
24 hours.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		article, err := a.store.GetArticle(args[0])
		if err != nil {
			return err
		}
		svc, err := ai.New(a.cfg.AI)
		if err != nil {
			return err
		}

		text, err := feed.FetchArticleContent(cmd.Context(), article.Link)
		if err != nil || text == "" {
			text = article.Description
		}

		summary, err := svc.Summarize(cmd.Context(), article.Title, text)
		if err != nil {
			return fmt.Errorf("summarizing: %w", err)
		}
		if err := a.store.SetArticleSummary(article.ID, summary); err != nil {
			return err
		}

		fmt.Println(renderMarkdown(summary))
		return nil
	},
}

func init() {
	articlesCmd.Flags().StringVar(&flagArticlesFeed, "feed", "", "only this feed's articles")
	articlesCmd.Flags().BoolVar(&flagArticlesUnread, "unread", false, "only unread articles")
	articlesCmd.Flags().IntVar(&flagArticlesLimit, "limit", 50, "per-feed article limit")

	rootCmd.AddCommand(articlesCmd, readCmd, summarizeCmd)
}
