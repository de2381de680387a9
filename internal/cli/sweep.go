package cli

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/driftrss/drift/internal/cleanup"
)

var flagSweepWatch bool

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Delete expired articles and chat sessions",
	Long: `Removes articles and chat sessions whose 24 hour expiry has passed.
Starred content is never touched. With --watch, keeps sweeping on the
configured interval until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		sweeper := cleanup.NewSweeper(a.store)

		if flagSweepWatch {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			fmt.Printf("Sweeping every %s. Ctrl-C to stop.\n", a.cfg.Cleanup.SweepInterval)
			sweeper.Start(ctx, a.cfg.Cleanup.SweepInterval)
			return nil
		}

		result, err := sweeper.RunOnce()
		if err != nil {
			return err
		}
		fmt.Printf("Removed %d articles, %d chat sessions.\n", result.Articles, result.ChatSessions)
		return nil
	},
}

func init() {
	sweepCmd.Flags().BoolVar(&flagSweepWatch, "watch", false, "keep sweeping on the configured interval")

	rootCmd.AddCommand(sweepCmd)
}
