package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	app "github.com/okian/dons/internal/app"
	"github.com/okian/dons/internal/config"
	"github.com/okian/dons/internal/domain/report"
	"github.com/okian/dons/internal/domain/types"
	"github.com/okian/dons/pkg/logger"
)

// Opener builds a started service for one command invocation.
type Opener func(ctx context.Context) (*app.Service, error)

// openService loads configuration the same way the server does.
func openService(ctx context.Context) (*app.Service, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, err
	}
	if err := logger.InitWithFormat(cfg.LogFormat, os.Stderr); err != nil {
		return nil, err
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		return nil, err
	}
	svc, err := app.NewFromConfig(ctx, cfg, app.WithLogger(logger.Named("resultctl")))
	if err != nil {
		return nil, err
	}
	if err := svc.Start(ctx); err != nil {
		return nil, err
	}
	return svc, nil
}

// NewRootCommand creates the 'resultctl' command tree.
func NewRootCommand(open Opener) *cobra.Command {
	var noColor bool
	root := &cobra.Command{
		Use:          "resultctl",
		Short:        "Inspect stored assessments and re-deliver reports",
		SilenceUsage: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			if noColor {
				color.NoColor = true
			}
		},
	}
	root.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	root.AddCommand(newShowCommand(open), newResendCommand(open), newInsightsCommand(open))
	return root
}

func withService(cmd *cobra.Command, open Opener, fn func(ctx context.Context, svc *app.Service) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	svc, err := open(ctx)
	if err != nil {
		return fmt.Errorf("open service: %w", err)
	}
	defer svc.Stop()
	return fn(ctx, svc)
}

// newShowCommand creates the 'resultctl show' command.
func newShowCommand(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print the report of a stored assessment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, open, func(ctx context.Context, svc *app.Service) error {
				a, err := svc.Lookup(ctx, args[0])
				if err != nil {
					return fmt.Errorf("lookup %s: %w", args[0], err)
				}
				w := cmd.OutOrStdout()
				color.New(color.FgCyan, color.Bold).Fprintf(w, "Assessment %s\n", a.ID)
				color.New(color.FgHiBlack).Fprintf(w, "submission %s, stored %s\n\n",
					a.SubmissionID, a.CreatedAt.Format("2006-01-02 15:04:05 MST"))
				fmt.Fprintln(w, report.Text(a.Participant, a.Ranking, a.CreatedAt))
				return nil
			})
		},
	}
}

// newResendCommand creates the 'resultctl resend' command.
func newResendCommand(open Opener) *cobra.Command {
	var to string
	cmd := &cobra.Command{
		Use:   "resend <id>",
		Short: "Deliver the participant report again",
		Long: `Rebuild the participant report from the stored record and deliver it
through the configured channels. --to overrides the stored address.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, open, func(ctx context.Context, svc *app.Service) error {
				res, err := svc.Resend(ctx, args[0], to)
				if err != nil {
					return err
				}
				printOutcome(cmd.OutOrStdout(), res.Outcome, res.Channel, res.Address)
				if !res.Outcome.OK() {
					return fmt.Errorf("resend %s: %s", args[0], res.Outcome)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&to, "to", "", "Deliver to this address instead of the stored one")
	return cmd
}

func printOutcome(w io.Writer, outcome types.Outcome, ch types.ChannelKind, addr string) {
	c := color.New(color.FgRed, color.Bold)
	switch outcome {
	case types.OutcomeSuccess:
		c = color.New(color.FgGreen, color.Bold)
	case types.OutcomeNotConfigured, types.OutcomeNoAddress:
		c = color.New(color.FgYellow, color.Bold)
	}
	c.Fprint(w, strings.ToUpper(outcome.String()))
	if addr != "" {
		fmt.Fprintf(w, " to %s", addr)
	}
	if ch != types.ChannelNone {
		fmt.Fprintf(w, " via %s", ch)
	}
	fmt.Fprintln(w)
}

// newInsightsCommand creates the 'resultctl insights' command.
func newInsightsCommand(open Opener) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "insights",
		Short: "Show podium statistics over the latest assessments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withService(cmd, open, func(ctx context.Context, svc *app.Service) error {
				insights, analyzed, err := svc.Insights(ctx, limit)
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				color.New(color.FgCyan, color.Bold).Fprintf(w, "Insights over %d assessments\n\n", analyzed)
				if len(insights) == 0 {
					fmt.Fprintln(w, "No assessments stored yet.")
					return nil
				}
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "CATEGORY\tTOP 3\t1ST\t2ND\t3RD\tAVG SCORE")
				for _, in := range insights {
					fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\n",
						in.Name, in.TimesInTop3, in.TimesFirst, in.TimesSecond, in.TimesThird, in.AverageScore)
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "Number of latest assessments to aggregate (0 uses the default)")
	return cmd
}
