package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/X-Niter/ModForge-sub004/internal/patterns"
)

var patternsLimit int

var patternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "List learned fix patterns",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		store, err := patterns.New(patterns.Config{Path: cfg.Patterns.Path, Capacity: cfg.Patterns.Capacity})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to open pattern store: %v\n", err)
			os.Exit(1)
		}
		defer store.Close()

		list, err := store.List(ctx, patternsLimit)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if len(list) == 0 {
			fmt.Println("No patterns learned yet.")
			return
		}

		fmt.Printf("%-36s  %-28s  %5s  %s\n", "ID", "TYPE", "HITS", "MESSAGE")
		for _, p := range list {
			msg := p.NormalizedMessage
			if len(msg) > 60 {
				msg = msg[:57] + "..."
			}
			fmt.Printf("%-36s  %-28s  %5d  %s\n", p.ID, p.Type, p.SuccessCount, msg)
		}
	},
}

func init() {
	patternsCmd.Flags().IntVarP(&patternsLimit, "limit", "n", 20, "maximum patterns to list (0 = all)")
	rootCmd.AddCommand(patternsCmd)
}
