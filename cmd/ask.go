package cmd

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	askLearner     string
	askShowSources bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a calculus question",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askLearner, "learner", "", "learner UUID for gap-aware answers")
	askCmd.Flags().BoolVar(&askShowSources, "sources", false, "show the passages that backed the answer")
	rootCmd.AddCommand(askCmd)
}

func runAsk(_ *cobra.Command, args []string) error {
	learnerID := uuid.Nil
	if askLearner != "" {
		id, err := uuid.Parse(askLearner)
		if err != nil {
			return fmt.Errorf("invalid learner id %q: %w", askLearner, err)
		}
		learnerID = id
	}

	ctx, cancel, a, err := setup()
	if err != nil {
		return err
	}
	defer cancel()
	defer func() { _ = a.Close() }()

	question := strings.Join(args, " ")

	resp, err := a.Pipeline.Ask(ctx, learnerID, question)
	if err != nil {
		return fmt.Errorf("answering question: %w", err)
	}

	fmt.Println(resp.Answer)

	if resp.GapNotice != "" {
		fmt.Println()
		fmt.Println(resp.GapNotice)
	}

	if askShowSources && len(resp.Sources) > 0 {
		fmt.Println()
		fmt.Println("Sources:")
		for _, s := range resp.Sources {
			kind := ""
			if s.Prerequisite {
				kind = " (prerequisite)"
			}
			fmt.Printf("  %.2f  %s  %s%s\n", s.Score, s.TopicID, s.SourceFile, kind)
		}
	}

	fmt.Println()
	escalated := ""
	if resp.Escalated {
		escalated = fmt.Sprintf(", escalated from %s", resp.Classified)
	}
	fmt.Printf("[%s via %s%s]\n", resp.Tier, resp.Model, escalated)

	return nil
}
