package cli

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/driftrss/drift/internal/ai"
	"github.com/driftrss/drift/internal/chat"
	"github.com/driftrss/drift/internal/storage"
)

var flagChatClear bool

var chatCmd = &cobra.Command{
	Use:   "chat <article-id> [message]",
	Short: "Chat with the AI about an article",
	Long: `Each article has one conversation; follow-up messages continue it. The
answer streams as it arrives — Ctrl-C stops the stream, and the partial turn
is kept in the history marked as interrupted. Without a message, the existing
conversation is printed. Conversations expire 24 hours after their last turn.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		articleID := args[0]

		if flagChatClear {
			mgr := chat.NewManager(a.store, nil)
			if err := mgr.Clear(articleID); err != nil {
				return err
			}
			fmt.Println("Conversation cleared.")
			return nil
		}

		if len(args) == 1 {
			return showConversation(a, articleID)
		}

		svc, err := ai.New(a.cfg.AI)
		if err != nil {
			return err
		}
		mgr := chat.NewManager(a.store, svc)

		// Ctrl-C cancels the stream; the partial turn is saved as
		// interrupted rather than discarded.
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		reply, err := mgr.Send(ctx, articleID, args[1])
		if err != nil {
			return err
		}

		for chunk := range reply.Chunks() {
			fmt.Print(chunk)
		}
		fmt.Println()

		session, err := reply.Wait()
		if err != nil {
			return err
		}
		if last := session.Messages[len(session.Messages)-1]; last.State != storage.MessageOK {
			fmt.Println(dimStyle.Render("(" + string(last.State) + ")"))
		}
		return nil
	},
}

func showConversation(a *app, articleID string) error {
	session, err := a.store.GetChatSessionForArticle(articleID)
	if err != nil {
		return fmt.Errorf("no conversation for this article yet: %w", err)
	}
	for _, msg := range session.Messages {
		label := titleStyle.Render(msg.Role)
		if msg.State != "" && msg.State != storage.MessageOK {
			label += dimStyle.Render(" (" + string(msg.State) + ")")
		}
		fmt.Println(label)
		fmt.Println(renderMarkdown(msg.Content))
	}
	return nil
}

func init() {
	chatCmd.Flags().BoolVar(&flagChatClear, "clear", false, "clear the article's conversation")

	rootCmd.AddCommand(chatCmd)
}
