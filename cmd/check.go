package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/jace/internal/model"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check the compliance requirements for a property address",
	Long:  "Resolves the jurisdiction for --state/--county/--city and prints the applicable requirements, preferring verified Scout rules over the static table.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "check")
		if err != nil {
			return err
		}
		defer env.Close()

		state, _ := cmd.Flags().GetString("state")
		county, _ := cmd.Flags().GetString("county")
		city, _ := cmd.Flags().GetString("city")
		txType, _ := cmd.Flags().GetString("type")
		asJSON, _ := cmd.Flags().GetBool("json")

		report, err := env.Engine.CheckAddress(ctx, state, county, city, txType)
		if err != nil {
			return eris.Wrap(err, "check")
		}

		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		}
		formatReport(os.Stdout, report)
		return nil
	},
}

func init() {
	checkCmd.Flags().String("state", "", "state name or two-letter code")
	checkCmd.Flags().String("county", "", "county name (without \"County\")")
	checkCmd.Flags().String("city", "", "city name")
	checkCmd.Flags().String("type", "", "transaction type, echoed in the report")
	checkCmd.Flags().Bool("json", false, "print the report as JSON")
	rootCmd.AddCommand(checkCmd)
}

// formatReport writes a compliance report summary and requirement table.
func formatReport(out io.Writer, r *model.ComplianceReport) {
	_, _ = fmt.Fprintf(out, "Jurisdiction: %s (%s)\n", r.JurisdictionDisplay, r.JurisdictionType)
	if r.MatchedKey != "" && r.MatchedKey != r.JurisdictionKey {
		_, _ = fmt.Fprintf(out, "Matched:      %s\n", r.MatchedKey)
	}
	_, _ = fmt.Fprintf(out, "Status:       %s (%d requirements, %d action items)\n", r.OverallStatus, r.RequirementCount(), r.ActionItems())
	if r.Notes != "" {
		_, _ = fmt.Fprintf(out, "Notes:        %s\n", r.Notes)
	}
	if len(r.Requirements) == 0 {
		return
	}
	_, _ = fmt.Fprintln(out)
	formatRequirements(out, r.Requirements, false)
}

// formatRequirements writes a tabular list of requirements to out.
func formatRequirements(out io.Writer, reqs []model.Requirement, withConfidence bool) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if withConfidence {
		_, _ = fmt.Fprintln(w, "NAME\tCATEGORY\tSTATUS\tCONFIDENCE\tAUTHORITY")
		_, _ = fmt.Fprintln(w, "----\t--------\t------\t----------\t---------")
	} else {
		_, _ = fmt.Fprintln(w, "NAME\tCATEGORY\tSTATUS\tFEE\tAUTHORITY")
		_, _ = fmt.Fprintln(w, "----\t--------\t------\t---\t---------")
	}
	for _, req := range reqs {
		name := req.Name
		if req.Code != "" {
			name += " (" + req.Code + ")"
		}
		if len(name) > 48 {
			name = name[:45] + "..."
		}
		fourth := req.Fee
		if withConfidence {
			fourth = fmt.Sprintf("%.0f%%", req.ConfidenceValue()*100)
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", name, req.Category, req.Status, fourth, req.Authority)
	}
	_ = w.Flush()
}
