package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/couchcryptid/storm-sos-dispatch/internal/domain"
	"github.com/couchcryptid/storm-sos-dispatch/internal/pipeline"
	"github.com/spf13/cobra"
)

func newClassifyCmd() *cobra.Command {
	var flags readingFlags
	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Classify a pressure reading into a risk level",
		Example: `  sosctl classify --city Puri --region Odisha --pressure 978
  sosctl classify --gps-lat 17.6868 --gps-lon 83.2185 -p 992 --json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			assessment, err := a.Pipeline.Classify(cmd.Context(), flags.request(cmd))
			if err != nil {
				return fmt.Errorf("classify: %w", err)
			}
			return printAssessment(cmd, assessment)
		},
	}
	flags.register(cmd)
	return cmd
}

type assessmentView struct {
	Location   string           `json:"location"`
	Source     string           `json:"location_source"`
	Pressure   float64          `json:"pressure_hpa"`
	Level      domain.RiskLevel `json:"level"`
	Color      string           `json:"color"`
	HighRisk   bool             `json:"high_risk"`
	Confidence *float64         `json:"confidence,omitempty"`
}

func newAssessmentView(a pipeline.Assessment) assessmentView {
	v := assessmentView{
		Location: a.Location.Label,
		Source:   a.Location.Source,
		Pressure: a.Reading.PressureHPa,
		Level:    a.Classification.Level,
		Color:    a.Classification.Level.Color(),
		HighRisk: a.Classification.Level.IsHighRisk(),
	}
	if a.Classification.HasConfidence {
		c := a.Classification.Confidence
		v.Confidence = &c
	}
	return v
}

func printAssessment(cmd *cobra.Command, a pipeline.Assessment) error {
	view := newAssessmentView(a)
	out := cmd.OutOrStdout()
	if jsonOutput(cmd) {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(view)
	}

	fmt.Fprintf(out, "Location:    %s (%s)\n", view.Location, view.Source)
	fmt.Fprintf(out, "Pressure:    %g hPa\n", view.Pressure)
	fmt.Fprintf(out, "Risk level:  %s (%s)\n", view.Level, view.Color)
	if view.Confidence != nil {
		fmt.Fprintf(out, "Confidence:  %.1f%%\n", *view.Confidence)
	}
	if view.HighRisk {
		fmt.Fprintf(out, "Safety:      %s\n", strings.Join(domain.SurvivalGuide().During, " "))
	}
	return nil
}
