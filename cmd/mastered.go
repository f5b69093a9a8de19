package cmd

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var masteredLearner string

var masteredCmd = &cobra.Command{
	Use:   "mastered",
	Short: "Manage a learner's mastered topics",
}

var masteredListCmd = &cobra.Command{
	Use:   "list",
	Short: "List mastered topics",
	Args:  cobra.NoArgs,
	RunE:  runMasteredList,
}

var masteredAddCmd = &cobra.Command{
	Use:   "add [topic-id...]",
	Short: "Mark topics as mastered",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runMasteredAdd,
}

var masteredRemoveCmd = &cobra.Command{
	Use:   "remove [topic-id]",
	Short: "Unmark a mastered topic",
	Args:  cobra.ExactArgs(1),
	RunE:  runMasteredRemove,
}

var masteredResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Forget everything about a learner",
	Args:  cobra.NoArgs,
	RunE:  runMasteredReset,
}

func init() {
	masteredCmd.PersistentFlags().StringVar(&masteredLearner, "learner", "", "learner UUID (required)")
	_ = masteredCmd.MarkPersistentFlagRequired("learner")

	masteredCmd.AddCommand(masteredListCmd)
	masteredCmd.AddCommand(masteredAddCmd)
	masteredCmd.AddCommand(masteredRemoveCmd)
	masteredCmd.AddCommand(masteredResetCmd)
	rootCmd.AddCommand(masteredCmd)
}

func parseLearner() (uuid.UUID, error) {
	id, err := uuid.Parse(masteredLearner)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid learner id %q: %w", masteredLearner, err)
	}
	return id, nil
}

func runMasteredList(_ *cobra.Command, _ []string) error {
	learnerID, err := parseLearner()
	if err != nil {
		return err
	}

	ctx, cancel, a, err := setup()
	if err != nil {
		return err
	}
	defer cancel()
	defer func() { _ = a.Close() }()

	records, err := a.Mastery.List(ctx, learnerID)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("no mastered topics")
		return nil
	}
	for _, rec := range records {
		fmt.Printf("%-32s  %s\n", rec.TopicID, rec.MasteredAt.Format("2006-01-02"))
	}
	return nil
}

func runMasteredAdd(_ *cobra.Command, args []string) error {
	learnerID, err := parseLearner()
	if err != nil {
		return err
	}

	ctx, cancel, a, err := setup()
	if err != nil {
		return err
	}
	defer cancel()
	defer func() { _ = a.Close() }()

	if err := a.Mastery.Mark(ctx, learnerID, args...); err != nil {
		return err
	}
	fmt.Printf("marked %d topic(s) mastered\n", len(args))
	return nil
}

func runMasteredRemove(_ *cobra.Command, args []string) error {
	learnerID, err := parseLearner()
	if err != nil {
		return err
	}

	ctx, cancel, a, err := setup()
	if err != nil {
		return err
	}
	defer cancel()
	defer func() { _ = a.Close() }()

	if err := a.Mastery.Unmark(ctx, learnerID, args[0]); err != nil {
		return err
	}
	fmt.Printf("unmarked %s\n", args[0])
	return nil
}

func runMasteredReset(_ *cobra.Command, _ []string) error {
	learnerID, err := parseLearner()
	if err != nil {
		return err
	}

	ctx, cancel, a, err := setup()
	if err != nil {
		return err
	}
	defer cancel()
	defer func() { _ = a.Close() }()

	removed, err := a.Mastery.Reset(ctx, learnerID)
	if err != nil {
		return err
	}
	fmt.Printf("removed %d record(s)\n", removed)
	return nil
}
