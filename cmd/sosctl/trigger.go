package main

import (
	"encoding/json"
	"fmt"

	"github.com/couchcryptid/storm-sos-dispatch/internal/domain"
	"github.com/couchcryptid/storm-sos-dispatch/internal/pipeline"
	"github.com/spf13/cobra"
)

func newTriggerCmd() *cobra.Command {
	var (
		flags      readingFlags
		recipients []string
	)
	cmd := &cobra.Command{
		Use:   "trigger",
		Short: "Send the SOS alert burst to one or more recipients",
		Long: `trigger classifies the reading and sends one SMS (and, if enabled, one voice
call) to every valid recipient, failing over across the configured accounts.
Recipients too short to be phone numbers are skipped.`,
		Example: `  sosctl trigger --city Puri -p 975 --to +919999999999 --to +918888888888`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.Pipeline.TriggerSOS(cmd.Context(), pipeline.SOSRequest{
				ClassifyRequest: flags.request(cmd),
				Recipients:      recipients,
			})
			if err != nil {
				return fmt.Errorf("trigger: %w", err)
			}
			if err := printReport(cmd, res.Report); err != nil {
				return err
			}
			if n := res.Report.Count(domain.OutcomeFailed); n == len(res.Report.Outcomes) {
				return fmt.Errorf("all %d recipients failed", n)
			}
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringSliceVar(&recipients, "to", nil, "recipient phone number (repeatable or comma separated)")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func printReport(cmd *cobra.Command, r domain.Report) error {
	out := cmd.OutOrStdout()
	if jsonOutput(cmd) {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}

	mode := "live"
	if r.Simulated {
		mode = "simulated"
	}
	fmt.Fprintf(out, "Dispatch %s (%s): %s at %s\n", r.ID, mode, r.Context.Level, r.Context.Location)
	for _, rcpt := range r.Recipients {
		o := r.Outcomes[rcpt]
		switch o.Status {
		case domain.OutcomeDelivered:
			fmt.Fprintf(out, "  %s  delivered via %s", rcpt.Masked(), o.Channel)
			if o.VoiceError != "" {
				fmt.Fprintf(out, " (voice failed: %s)", o.VoiceError)
			}
			fmt.Fprintln(out)
		case domain.OutcomeFailed:
			fmt.Fprintf(out, "  %s  failed: %s\n", rcpt.Masked(), o.Reason)
		default:
			fmt.Fprintf(out, "  %s  %s\n", rcpt.Masked(), o.Status)
		}
	}
	if r.Dropped > 0 {
		fmt.Fprintf(out, "Skipped %d invalid recipient(s)\n", r.Dropped)
	}
	return nil
}
