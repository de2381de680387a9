package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/driftrss/drift/internal/collection"
	"github.com/driftrss/drift/internal/storage"
)

var (
	flagStarChat  bool
	flagStarTitle string
)

var starCmd = &cobra.Command{
	Use:   "star <id>",
	Short: "Star an article (or a chat session with --chat)",
	Long: `Starring snapshots the content so it survives the 24 hour cache expiry.
For articles the full page text is fetched and attached to the snapshot.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		mgr := collection.NewManager(a.store)

		if flagStarChat {
			snapshot, err := mgr.StarChatSession(args[0], flagStarTitle)
			if err != nil {
				return err
			}
			if snapshot == nil {
				fmt.Println("No such chat session.")
				return nil
			}
			fmt.Println("Starred chat session.")
			return nil
		}

		starred, err := mgr.StarArticle(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if starred == nil {
			fmt.Println("No such article.")
			return nil
		}
		fmt.Printf("Starred %s\n", titleStyle.Render(starred.Title))
		return nil
	},
}

var unstarCmd = &cobra.Command{
	Use:   "unstar <id>",
	Short: "Remove a starred snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		mgr := collection.NewManager(a.store)
		if flagStarChat {
			if err := mgr.UnstarChatSession(args[0]); err != nil {
				return err
			}
		} else if err := mgr.UnstarArticle(args[0]); err != nil {
			return err
		}
		fmt.Println("Unstarred.")
		return nil
	},
}

var collectionCmd = &cobra.Command{
	Use:   "collection",
	Short: "List starred articles and chat sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		items, err := collection.NewManager(a.store).Items()
		if err != nil {
			return err
		}
		if len(items) == 0 {
			fmt.Println("Nothing starred yet.")
			return nil
		}
		for _, item := range items {
			kind := "article"
			if item.Type == storage.ItemChat {
				kind = "chat"
			}
			fmt.Printf("%s %s %s  %s\n",
				starStyle.Render("★"),
				dimStyle.Render(kind),
				titleStyle.Render(item.Title),
				idStyle.Render(item.ID),
			)
			if item.Preview != "" {
				fmt.Printf("  %s\n", dimStyle.Render(item.Preview))
			}
		}
		return nil
	},
}

func init() {
	starCmd.Flags().BoolVar(&flagStarChat, "chat", false, "star a chat session instead of an article")
	starCmd.Flags().StringVar(&flagStarTitle, "title", "", "custom title for a starred chat session")
	unstarCmd.Flags().BoolVar(&flagStarChat, "chat", false, "unstar a chat session instead of an article")

	rootCmd.AddCommand(starCmd, unstarCmd, collectionCmd)
}
