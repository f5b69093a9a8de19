package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/calcrag/calcrag/internal/prereq"
	"github.com/calcrag/calcrag/internal/topic"
)

var topicsCmd = &cobra.Command{
	Use:   "topics",
	Short: "Explore the topic catalog and prerequisite graph",
	RunE:  runTopicsList,
}

var topicsShowCmd = &cobra.Command{
	Use:   "show [topic-id]",
	Short: "Show one topic and its prerequisites",
	Args:  cobra.ExactArgs(1),
	RunE:  runTopicsShow,
}

var topicsPathCmd = &cobra.Command{
	Use:   "path [topic-id]",
	Short: "Print the learning path to a topic",
	Args:  cobra.ExactArgs(1),
	RunE:  runTopicsPath,
}

func init() {
	topicsCmd.AddCommand(topicsShowCmd)
	topicsCmd.AddCommand(topicsPathCmd)
	rootCmd.AddCommand(topicsCmd)
}

// catalog builds the registry and graph without touching the database;
// the topic catalog is compiled in.
func catalog() (*topic.Registry, *prereq.Graph, error) {
	registry, err := topic.NewRegistry(topic.Catalog())
	if err != nil {
		return nil, nil, fmt.Errorf("building topic registry: %w", err)
	}
	graph, err := prereq.NewGraph(registry)
	if err != nil {
		return nil, nil, fmt.Errorf("building prerequisite graph: %w", err)
	}
	return registry, graph, nil
}

func runTopicsList(_ *cobra.Command, _ []string) error {
	registry, graph, err := catalog()
	if err != nil {
		return err
	}

	// Topological order puts foundations first.
	for _, id := range graph.TopologicalOrder() {
		t, err := registry.Get(id)
		if err != nil {
			return err
		}
		fmt.Printf("%-32s  d%d  %s\n", t.ID, t.Difficulty, t.Name)
	}
	return nil
}

func runTopicsShow(_ *cobra.Command, args []string) error {
	registry, graph, err := catalog()
	if err != nil {
		return err
	}

	id := args[0]
	t, err := registry.Get(id)
	if err != nil {
		return err
	}

	fmt.Printf("%s (%s)\n", t.Name, t.ID)
	fmt.Printf("Strand:      %s\n", t.Strand)
	fmt.Printf("Difficulty:  %d\n", t.Difficulty)
	if t.Description != "" {
		fmt.Printf("Description: %s\n", t.Description)
	}

	if len(t.Prerequisites) > 0 {
		fmt.Printf("Requires:    %s\n", strings.Join(t.Prerequisites, ", "))
	}
	transitive, err := graph.Transitive(id)
	if err != nil {
		return err
	}
	if len(transitive) > len(t.Prerequisites) {
		fmt.Printf("All prereqs: %s\n", strings.Join(transitive, ", "))
	}
	if deps := graph.Dependents(id); len(deps) > 0 {
		fmt.Printf("Unlocks:     %s\n", strings.Join(deps, ", "))
	}
	return nil
}

func runTopicsPath(_ *cobra.Command, args []string) error {
	_, graph, err := catalog()
	if err != nil {
		return err
	}

	path, err := graph.LearningPath(args[0], nil)
	if err != nil {
		return err
	}
	for i, id := range path {
		fmt.Printf("%d. %s\n", i+1, id)
	}
	return nil
}
