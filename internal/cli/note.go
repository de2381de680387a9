package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/driftrss/drift/internal/notes"
	"github.com/driftrss/drift/internal/storage"
)

var (
	flagNoteTags    string
	flagNoteContent string
	flagRefChat     bool
)

var noteCmd = &cobra.Command{
	Use:   "note",
	Short: "Manage notes",
	Long: `Notes are free-form markdown and never expire. A note can reference
articles or chat sessions; references are snapshots and stay readable after
the referenced content has expired.`,
}

var noteAddCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Create a note",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		var tags []string
		if flagNoteTags != "" {
			tags = strings.Split(flagNoteTags, ",")
		}
		note, err := notes.NewManager(a.store).Create(args[0], flagNoteContent, tags)
		if err != nil {
			return err
		}
		syncSearchIndex(a)
		fmt.Printf("Created note %s\n", idStyle.Render(note.ID))
		return nil
	},
}

var noteListCmd = &cobra.Command{
	Use:   "list",
	Short: "List notes, most recently updated first",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		all, err := notes.NewManager(a.store).All()
		if err != nil {
			return err
		}
		if len(all) == 0 {
			fmt.Println("No notes.")
			return nil
		}
		for _, n := range all {
			line := fmt.Sprintf("%s  %s", titleStyle.Render(n.Title), idStyle.Render(n.ID))
			if len(n.Tags) > 0 {
				line += "  " + dimStyle.Render("#"+strings.Join(n.Tags, " #"))
			}
			fmt.Println(line)
		}
		return nil
	},
}

var noteShowCmd = &cobra.Command{
	Use:   "show <note-id>",
	Short: "Show a note with its references",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		note, err := notes.NewManager(a.store).Get(args[0])
		if err != nil {
			return err
		}

		fmt.Println(titleStyle.Render(note.Title))
		fmt.Println(renderMarkdown(note.Content))
		for _, ref := range note.References {
			fmt.Printf("%s %s %s\n", dimStyle.Render("↳"), dimStyle.Render(string(ref.Type)), ref.Title)
			if ref.Snippet != "" {
				fmt.Printf("  %s\n", dimStyle.Render(ref.Snippet))
			}
		}
		return nil
	},
}

var noteRmCmd = &cobra.Command{
	Use:   "rm <note-id>",
	Short: "Delete a note",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if err := notes.NewManager(a.store).Delete(args[0]); err != nil {
			return err
		}
		syncSearchIndex(a)
		fmt.Println("Deleted.")
		return nil
	},
}

var noteRefCmd = &cobra.Command{
	Use:   "ref <note-id> <article-or-chat-id>",
	Short: "Attach a reference to a note",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		mgr := notes.NewManager(a.store)

		var ref storage.NoteReference
		if flagRefChat {
			session, err := a.store.GetChatSession(args[1])
			if err != nil {
				return fmt.Errorf("loading chat session: %w", err)
			}
			title := "Chat"
			if article, err := a.store.GetArticle(session.ArticleID); err == nil {
				title = "Chat: " + article.Title
			}
			ref = notes.ReferenceForChat(session, title)
		} else {
			article, err := a.store.GetArticle(args[1])
			if err != nil {
				return fmt.Errorf("loading article: %w", err)
			}
			ref = notes.ReferenceForArticle(article)
		}

		if _, err := mgr.AddReference(args[0], ref); err != nil {
			return err
		}
		fmt.Println("Reference added.")
		return nil
	},
}

func init() {
	noteAddCmd.Flags().StringVar(&flagNoteContent, "content", "", "markdown body")
	noteAddCmd.Flags().StringVar(&flagNoteTags, "tags", "", "comma-separated tags")
	noteRefCmd.Flags().BoolVar(&flagRefChat, "chat", false, "reference a chat session instead of an article")

	noteCmd.AddCommand(noteAddCmd, noteListCmd, noteShowCmd, noteRmCmd, noteRefCmd)
	rootCmd.AddCommand(noteCmd)
}
