package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/venture-galaxy/matchmaker/internal/normalize"
	"github.com/venture-galaxy/matchmaker/internal/scorer"
)

var (
	scoreStartupFile  string
	scoreInvestorFile string
	scoreJSON         bool
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score one startup against one investor",
	Long: `Scores a startup profile against an investor profile read from JSON files.

Profiles use the stored document field names (sector, valuation,
annualRevenue, sectorInterest, ticketSize, ...). Missing fields take
their neutral defaults.

Examples:
  matchmaker score --startup startup.json --investor investor.json
  matchmaker score --startup startup.json --investor investor.json --json`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := scorer.ValidateConfig(cfg.Scoring); err != nil {
			return eris.Wrap(err, "scoring config")
		}

		startupDoc, err := readDocument(scoreStartupFile)
		if err != nil {
			return err
		}
		investorDoc, err := readDocument(scoreInvestorFile)
		if err != nil {
			return err
		}

		m := scorer.New(cfg.Scoring).Breakdown(
			normalize.StartupFromDocument(startupDoc),
			normalize.InvestorFromDocument(investorDoc),
		)
		return printMatch(cmd.OutOrStdout(), m, scoreJSON)
	},
}

// readDocument loads a JSON object from path, or stdin when path is "-".
func readDocument(path string) (map[string]any, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "read profile %s", path)
	}

	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrapf(err, "parse profile %s", path)
	}
	return doc, nil
}

func printMatch(w io.Writer, m scorer.Match, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			scorer.Match
			Percent string `json:"percent"`
		}{m, scorer.FormatPercent(m.Score)})
	}

	fmt.Fprintf(w, "Match score: %s\n\n", scorer.FormatPercent(m.Score))
	for _, f := range scorer.Factors {
		fmt.Fprintf(w, "  %-14s %.4f\n", f, m.Components[f])
	}
	return nil
}

func init() {
	scoreCmd.Flags().StringVar(&scoreStartupFile, "startup", "", "startup profile JSON file (- for stdin)")
	scoreCmd.Flags().StringVar(&scoreInvestorFile, "investor", "", "investor profile JSON file")
	scoreCmd.Flags().BoolVar(&scoreJSON, "json", false, "print the result as JSON")
	_ = scoreCmd.MarkFlagRequired("startup")
	_ = scoreCmd.MarkFlagRequired("investor")
	rootCmd.AddCommand(scoreCmd)
}
