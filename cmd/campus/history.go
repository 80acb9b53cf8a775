package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/campusconnect/campus/internal/call"
	"github.com/campusconnect/campus/internal/history"
	"github.com/campusconnect/campus/internal/interview"
)

func newHistoryCmd() *cobra.Command {
	var (
		configPath string
		remote     bool
		analyze    bool
	)

	cmd := &cobra.Command{
		Use:   "history [interview-id]",
		Short: "List past practice interviews",
		Long: `Lists finished practice interviews, newest first. Given an id, prints
the transcript and analysis. --analyze retries the analysis of that call.

Reads the local practice history unless --remote is set, in which case the
signed-in account's history on the server is used.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := ""
			if len(args) == 1 {
				id = args[0]
			}
			if analyze && id == "" {
				return fmt.Errorf("--analyze needs an interview id")
			}
			if remote {
				return runRemoteHistory(cmd, configPath, id, analyze)
			}
			return runHistory(cmd, configPath, id, analyze)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to CampusConnect config file")
	cmd.Flags().BoolVar(&remote, "remote", false, "read history from the server")
	cmd.Flags().BoolVar(&analyze, "analyze", false, "retry analysis of the given interview")
	return cmd
}

func runHistory(cmd *cobra.Command, configPath, id string, analyze bool) error {
	out := cmd.OutOrStdout()
	ctx := cmd.Context()

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	hist, err := history.Open(cfg.History.Path)
	if err != nil {
		return err
	}
	defer hist.Close()
	store := call.NewStore(hist)

	if id == "" {
		list, err := store.History(ctx, localUser)
		if err != nil {
			return err
		}
		printHistory(out, list)
		return nil
	}

	if analyze {
		ai, err := newInterviewer(cfg)
		if err != nil {
			return err
		}
		rec, err := call.NewAnalyst(ai, store, nil).Run(ctx, localUser, id)
		if err != nil {
			return err
		}
		printRecord(out, rec, true)
		return nil
	}

	rec, err := store.Get(ctx, localUser, id)
	if err != nil {
		return err
	}
	printRecord(out, rec, true)
	return nil
}

func runRemoteHistory(cmd *cobra.Command, configPath, id string, analyze bool) error {
	out := cmd.OutOrStdout()
	ctx := cmd.Context()

	_, c, _, err := signedIn(configPath)
	if err != nil {
		return err
	}
	switch {
	case id == "":
		list, err := c.History(ctx)
		if err != nil {
			return err
		}
		printHistory(out, list)
	case analyze:
		rec, err := c.Analyze(ctx, id)
		if err != nil {
			return err
		}
		printRecord(out, rec, true)
	default:
		rec, err := c.HistoryRecord(ctx, id)
		if err != nil {
			return err
		}
		printRecord(out, rec, true)
	}
	return nil
}

func printHistory(out io.Writer, list []interview.HistoryRecord) {
	if len(list) == 0 {
		fmt.Fprintln(out, "No practice interviews yet.")
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDATE\tCOMPANY\tROLE\tDURATION\tSTATUS\tSCORE")
	for _, r := range list {
		score := "-"
		if r.Analysis != nil {
			score = fmt.Sprintf("%.1f", r.Analysis.OverallScore)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.Timestamp.Local().Format("2006-01-02 15:04"), r.Company, r.Role, formatDuration(r.Duration), r.Status, score)
	}
	w.Flush()
}

func printRecord(out io.Writer, r interview.HistoryRecord, transcript bool) {
	fmt.Fprintf(out, "%s at %s (%s), %s\n", r.Role, r.Company, r.Difficulty, formatDuration(r.Duration))
	if len(r.Topics) > 0 {
		fmt.Fprintf(out, "Topics: %s\n", strings.Join(r.Topics, ", "))
	}
	fmt.Fprintf(out, "Status: %s\n", r.Status)
	if r.Error != "" {
		fmt.Fprintf(out, "Error: %s\n", r.Error)
	}

	if transcript {
		fmt.Fprintln(out, "\nTranscript:")
		for _, c := range r.Transcript {
			fmt.Fprintf(out, "  %-3s %s\n", c.Speaker+":", c.Text)
		}
	}

	a := r.Analysis
	if a == nil {
		return
	}
	fmt.Fprintf(out, "\nOverall score: %.1f/10  Recommendation: %s\n", a.OverallScore, a.Recommendation)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "  Technical\t%.1f\n", a.Metrics.Technical)
	fmt.Fprintf(w, "  Behavioral\t%.1f\n", a.Metrics.Behavioral)
	fmt.Fprintf(w, "  Communication\t%.1f\n", a.Metrics.Communication)
	fmt.Fprintf(w, "  Problem solving\t%.1f\n", a.Metrics.ProblemSolving)
	fmt.Fprintf(w, "  Company knowledge\t%.1f\n", a.Metrics.CompanyKnowledge)
	w.Flush()
	if a.OverallAssessment != "" {
		fmt.Fprintf(out, "\n%s\n", a.OverallAssessment)
	}
	printList(out, "Strengths", a.KeyStrengths)
	printList(out, "To improve", a.AreasForImprovement)
}

func printList(out io.Writer, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(out, "\n%s:\n", title)
	for _, s := range items {
		fmt.Fprintf(out, "  - %s\n", s)
	}
}

func formatDuration(sec int) string {
	return fmt.Sprintf("%d:%02d", sec/60, sec%60)
}
