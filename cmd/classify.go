package main

import (
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/venture-galaxy/matchmaker/internal/artifact"
)

var classifyCmd = &cobra.Command{
	Use:   "classify <investor-id>",
	Short: "Publish the ranked startup spreadsheet for an investor",
	Long: `Ranks every stored startup for the investor, uploads the result as an
xlsx workbook to the configured artifact backend (local directory or FTP),
and records the download link on the investor profile.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("artifact"); err != nil {
			return err
		}

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		progress := make(chan artifact.Progress, 16)
		done := make(chan struct{})
		go func() {
			defer close(done)
			logUploadProgress(progress)
		}()

		up, err := artifact.New(cfg.Artifact, progress)
		if err != nil {
			close(progress)
			<-done
			return eris.Wrap(err, "init artifact backend")
		}

		res, err := env.funnel().Classify(ctx, args[0], up, time.Now())
		close(progress)
		<-done
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Published %d startups: %s\n", res.Rows, res.URL)
		return nil
	},
}

// logUploadProgress logs every quarter of the transfer until ch closes.
func logUploadProgress(ch <-chan artifact.Progress) {
	next := 25.0
	for p := range ch {
		pct := p.Percent()
		if pct < next {
			continue
		}
		zap.L().Info("upload progress",
			zap.Int64("bytes", p.Transferred),
			zap.Float64("percent", pct),
		)
		for next <= pct {
			next += 25
		}
	}
}

func init() {
	rootCmd.AddCommand(classifyCmd)
}
