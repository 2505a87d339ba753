package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/venture-galaxy/matchmaker/internal/funnel"
)

var (
	funnelLimit int
	funnelJSON  bool
)

var funnelCmd = &cobra.Command{
	Use:   "funnel",
	Short: "Rank stored profiles",
	Long: `Ranks every stored startup for an investor, or every stored investor for
a founder's startup, best match first.

Examples:
  matchmaker funnel investor inv-123 --limit 20
  matchmaker funnel founder 6f1c... --json`,
}

var funnelInvestorCmd = &cobra.Command{
	Use:   "investor <investor-id>",
	Short: "Rank startups for an investor",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		matches, err := env.funnel().InvestorFunnel(ctx, args[0])
		if err != nil {
			return err
		}
		return printStartupMatches(cmd.OutOrStdout(), limitMatches(matches, funnelLimit), funnelJSON)
	},
}

var funnelFounderCmd = &cobra.Command{
	Use:   "founder <founder-id>",
	Short: "Rank investors for a founder's startup",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		matches, err := env.funnel().FounderFunnel(ctx, args[0])
		if err != nil {
			return err
		}
		return printInvestorMatches(cmd.OutOrStdout(), limitMatches(matches, funnelLimit), funnelJSON)
	},
}

func limitMatches[T any](matches []T, limit int) []T {
	if limit > 0 && len(matches) > limit {
		return matches[:limit]
	}
	return matches
}

func printStartupMatches(w io.Writer, matches []funnel.StartupMatch, asJSON bool) error {
	if asJSON {
		return json.NewEncoder(w).Encode(matches)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tSCORE\tID\tNAME\tSECTOR\tSTAGE")
	for i, m := range matches {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", i+1, m.Percent, m.ID, m.Startup.Name, m.Startup.Sector, m.Startup.Stage)
	}
	return tw.Flush()
}

func printInvestorMatches(w io.Writer, matches []funnel.InvestorMatch, asJSON bool) error {
	if asJSON {
		return json.NewEncoder(w).Encode(matches)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tSCORE\tID\tNAME")
	for i, m := range matches {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", i+1, m.Percent, m.ID, m.Investor.Name)
	}
	return tw.Flush()
}

func init() {
	funnelCmd.PersistentFlags().IntVar(&funnelLimit, "limit", 0, "show at most this many matches (0 = all)")
	funnelCmd.PersistentFlags().BoolVar(&funnelJSON, "json", false, "print matches as JSON")
	funnelCmd.AddCommand(funnelInvestorCmd, funnelFounderCmd)
	rootCmd.AddCommand(funnelCmd)
}
