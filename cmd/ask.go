package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kitbuilder587/webqa/internal/domain"
	"github.com/kitbuilder587/webqa/internal/metrics"
)

var (
	askJSON  bool
	askPlain bool
	askWidth int
)

var askCmd = &cobra.Command{
	Use:   "ask QUESTION",
	Short: "Answer one question from fresh search results",
	Example: `  webqa ask "Who is the current UN secretary general?"
  webqa ask --fast -n 10 "bitcoin price today"
  webqa ask --json --force-ai "who played Iron Man"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askJSON, "json", false,
		`Print {"success": ..., "result": ...} instead of rendered markdown`)
	askCmd.Flags().BoolVar(&askPlain, "plain", false,
		"Print markdown without terminal styling")
	askCmd.Flags().IntVar(&askWidth, "width", 0,
		"Word wrap width for rendered output, 0 uses the terminal width")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// отдельный реестр: CLI не отдаёт /metrics
	a, err := newApp(ctx, cfg, logger, metrics.NewWithRegistry(nil))
	if err != nil {
		return err
	}
	defer a.Close()

	resp, err := a.ask.Ask(ctx, &domain.AskRequest{
		Question: strings.Join(args, " "),
		Options:  cfg.Options(),
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	if askJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(resp.Answer)
	}

	md := answerMarkdown(resp)
	if askPlain {
		_, err = fmt.Fprint(out, md)
		return err
	}

	rendered, err := renderMarkdown(md, wrapWidth(askWidth, int(os.Stdout.Fd())))
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(out, rendered)
	return err
}
