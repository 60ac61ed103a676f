package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kitbuilder587/webqa/internal/metrics"
)

var (
	historyLimit int
	historyChat  int64
	historyPlain bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recently answered questions (needs DATABASE_URL)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := newApp(ctx, cfg, logger, metrics.NewWithRegistry(nil))
		if err != nil {
			return err
		}
		defer a.Close()

		records, err := a.ask.History(ctx, historyChat, historyLimit)
		if err != nil {
			return err
		}

		md := historyMarkdown(records)
		if historyPlain {
			_, err = fmt.Fprint(cmd.OutOrStdout(), md)
			return err
		}

		rendered, err := renderMarkdown(md, wrapWidth(0, int(os.Stdout.Fd())))
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(cmd.OutOrStdout(), rendered)
		return err
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "Number of records to show")
	historyCmd.Flags().Int64Var(&historyChat, "chat", 0, "Telegram chat id, 0 shows all chats")
	historyCmd.Flags().BoolVar(&historyPlain, "plain", false, "Print markdown without terminal styling")
	rootCmd.AddCommand(historyCmd)
}
