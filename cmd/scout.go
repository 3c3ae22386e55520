package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/jace/internal/model"
	"github.com/sells-group/jace/internal/scout"
	"github.com/sells-group/jace/internal/store"
)

var scoutCmd = &cobra.Command{
	Use:   "scout",
	Short: "Research and review AI-discovered compliance rules",
	Long:  "Commands for running the AI Scout on a jurisdiction and for reviewing, verifying, rejecting, and exporting its proposals.",
}

// -- scout run --

var scoutRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Research a jurisdiction with the AI Scout",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		state, _ := cmd.Flags().GetString("state")
		county, _ := cmd.Flags().GetString("county")
		city, _ := cmd.Flags().GetString("city")
		noSave, _ := cmd.Flags().GetBool("no-save")
		async, _ := cmd.Flags().GetBool("async")
		target := scout.Target{State: state, County: county, City: city}

		if async {
			if err := cfg.Validate("review"); err != nil {
				return err
			}
			tc, err := dialTemporal()
			if err != nil {
				return err
			}
			defer tc.Close()

			wfID, runID, err := scout.NewStarter(tc, cfg.Temporal.TaskQueue).Start(ctx, scout.WorkflowInput{Target: target, Save: !noSave})
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "Started workflow %s (run %s) on %s\n", wfID, runID, cfg.Temporal.TaskQueue)
			return nil
		}

		env, err := initEnv(ctx, "scout")
		if err != nil {
			return err
		}
		defer env.Close()

		rs, err := env.Scout.Run(ctx, target, !noSave)
		if err != nil {
			return eris.Wrap(err, "scout run")
		}
		formatScoutResult(os.Stdout, rs, !noSave)
		return nil
	},
}

// -- scout list --

var scoutListCmd = &cobra.Command{
	Use:   "list",
	Short: "List Scout rule sets",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "review")
		if err != nil {
			return err
		}
		defer env.Close()

		state, _ := cmd.Flags().GetString("state")
		verified, _ := cmd.Flags().GetString("verified")
		limit, _ := cmd.Flags().GetInt("limit")

		filter, err := listFilter(state, verified, limit)
		if err != nil {
			return err
		}
		sets, err := env.Store.Find(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "scout list")
		}
		if len(sets) == 0 {
			fmt.Fprintln(os.Stderr, "No rule sets found.")
			return nil
		}
		formatRuleSetList(os.Stdout, sets)
		return nil
	},
}

// -- scout show --

var scoutShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a Scout rule set",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "review")
		if err != nil {
			return err
		}
		defer env.Close()

		rs, err := env.Store.Get(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "scout show")
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rs)
	},
}

// -- scout verify / reject --

var scoutVerifyCmd = &cobra.Command{
	Use:   "verify <id>",
	Short: "Verify a Scout rule set so compliance checks use it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "review")
		if err != nil {
			return err
		}
		defer env.Close()

		by, _ := cmd.Flags().GetString("by")
		rs, err := env.Gate.Verify(ctx, args[0], by)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "Verified %s (%s) by %s\n", rs.ID, rs.JurisdictionKey, rs.VerifiedBy)
		return nil
	},
}

var scoutRejectCmd = &cobra.Command{
	Use:   "reject <id>",
	Short: "Reject a Scout rule set",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "review")
		if err != nil {
			return err
		}
		defer env.Close()

		rs, err := env.Gate.Reject(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "Rejected %s (%s)\n", rs.ID, rs.JurisdictionKey)
		return nil
	},
}

// -- scout export --

var scoutExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export Scout rule sets to an XLSX review workbook",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "review")
		if err != nil {
			return err
		}
		defer env.Close()

		ids, _ := cmd.Flags().GetStringSlice("id")
		state, _ := cmd.Flags().GetString("state")
		verified, _ := cmd.Flags().GetString("verified")
		out, _ := cmd.Flags().GetString("out")

		var sets []model.RuleSet
		if len(ids) > 0 {
			for _, id := range ids {
				rs, err := env.Store.Get(ctx, id)
				if err != nil {
					return eris.Wrap(err, "scout export")
				}
				sets = append(sets, *rs)
			}
		} else {
			filter, err := listFilter(state, verified, 0)
			if err != nil {
				return err
			}
			if sets, err = env.Store.Find(ctx, filter); err != nil {
				return eris.Wrap(err, "scout export")
			}
		}

		if err := scout.ExportXLSX(out, sets); err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "Wrote %d rule sets to %s\n", len(sets), out)
		return nil
	},
}

func init() {
	scoutRunCmd.Flags().String("state", "", "state name or two-letter code (required)")
	scoutRunCmd.Flags().String("county", "", "county name")
	scoutRunCmd.Flags().String("city", "", "city name")
	scoutRunCmd.Flags().Bool("no-save", false, "print the result without storing it")
	scoutRunCmd.Flags().Bool("async", false, "start a Temporal workflow instead of running inline")
	_ = scoutRunCmd.MarkFlagRequired("state")

	scoutListCmd.Flags().String("state", "", "filter by state")
	scoutListCmd.Flags().String("verified", "", "filter by verification (true, false)")
	scoutListCmd.Flags().Int("limit", store.DefaultListLimit, "max number of rule sets to display")

	scoutVerifyCmd.Flags().String("by", scout.DefaultReviewer, "reviewer recorded on the rule set")

	scoutExportCmd.Flags().StringSlice("id", nil, "rule set ids to export (default: all matching filters)")
	scoutExportCmd.Flags().String("state", "", "filter by state")
	scoutExportCmd.Flags().String("verified", "", "filter by verification (true, false)")
	scoutExportCmd.Flags().String("out", "scout-review.xlsx", "output workbook path")

	scoutCmd.AddCommand(scoutRunCmd)
	scoutCmd.AddCommand(scoutListCmd)
	scoutCmd.AddCommand(scoutShowCmd)
	scoutCmd.AddCommand(scoutVerifyCmd)
	scoutCmd.AddCommand(scoutRejectCmd)
	scoutCmd.AddCommand(scoutExportCmd)
	rootCmd.AddCommand(scoutCmd)
}

// listFilter builds a rule set filter from CLI or query parameters. An
// empty verified string does not constrain.
func listFilter(state, verified string, limit int) (store.RuleFilter, error) {
	filter := store.RuleFilter{State: state, Limit: limit}
	if verified != "" {
		v, err := strconv.ParseBool(verified)
		if err != nil {
			return filter, eris.Errorf("invalid verified value %q", verified)
		}
		filter.Verified = &v
	}
	return filter, nil
}

// formatScoutResult writes a Scout run summary to out.
func formatScoutResult(out io.Writer, rs *model.RuleSet, saved bool) {
	_, _ = fmt.Fprintf(out, "Jurisdiction: %s (%s)\n", rs.JurisdictionKey, rs.JurisdictionType)
	_, _ = fmt.Fprintf(out, "Model:        %s\n", rs.ModelUsed)
	_, _ = fmt.Fprintf(out, "Notes:        %s\n", rs.Notes)
	if len(rs.Requirements) > 0 {
		_, _ = fmt.Fprintln(out)
		formatRequirements(out, rs.Requirements, true)
	}
	_, _ = fmt.Fprintln(out)
	if saved {
		_, _ = fmt.Fprintf(out, "Saved as %s. These rules need human verification before compliance checks use them:\n", rs.ID)
		_, _ = fmt.Fprintf(out, "  jace scout verify %s\n", rs.ID)
	} else {
		_, _ = fmt.Fprintln(out, "Not saved (--no-save). These rules need human verification before use.")
	}
}

// formatRuleSetList writes a tabular list of rule sets to out.
func formatRuleSetList(out io.Writer, sets []model.RuleSet) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tJURISDICTION\tREQS\tAVG_CONF\tVERIFIED\tACTIVE\tRESEARCHED")
	_, _ = fmt.Fprintln(w, "--\t------------\t----\t--------\t--------\t------\t----------")
	for i := range sets {
		rs := &sets[i]
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%.2f\t%t\t%t\t%s\n",
			truncateID(rs.ID),
			rs.JurisdictionKey,
			len(rs.Requirements),
			rs.AverageConfidence(),
			rs.IsVerified,
			rs.IsActive,
			rs.ResearchTimestamp.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
