package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/star/conjunct/internal/conjunction"
)

var (
	predictHours   float64
	predictStep    float64
	predictJSON    bool
	predictRefresh bool
)

var predictCmd = &cobra.Command{
	Use:   "predict SAT1 SAT2",
	Short: "Predict the closest approach between two satellites",
	Long:  "predict sweeps the window starting now and prints the minimum separation and risk category.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a := newApp(cfg, logger, false)

		var err error
		if predictRefresh {
			_, err = a.refresher.Refresh(cmd.Context())
		} else {
			_, err = a.refresher.Reload()
		}
		if err != nil {
			return err
		}

		res, err := a.predictor.Predict(cmd.Context(), args[0], args[1], conjunction.Options{
			WindowHours: predictHours,
			StepMinutes: predictStep,
		})
		if err != nil {
			return err
		}

		if predictJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		}
		renderResult(cmd.OutOrStdout(), res)
		return nil
	},
}

func init() {
	predictCmd.Flags().Float64Var(&predictHours, "hours", 0, "window length in hours (default from config)")
	predictCmd.Flags().Float64Var(&predictStep, "step", 0, "sampling step in minutes (default from config)")
	predictCmd.Flags().BoolVar(&predictJSON, "json", false, "print the result as JSON")
	predictCmd.Flags().BoolVar(&predictRefresh, "refresh", false, "download sources before predicting")
}

var (
	labelStyle = lipgloss.NewStyle().Faint(true).Width(18)
	riskStyles = map[conjunction.Category]lipgloss.Style{
		conjunction.Critical:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
		conjunction.Elevated:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("208")),
		conjunction.Moderate:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11")),
		conjunction.Low:          lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10")),
		conjunction.Undetermined: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("8")),
	}
)

// renderResult prints a human-readable prediction.
func renderResult(w io.Writer, res conjunction.Result) {
	row := func(label, value string) {
		fmt.Fprintln(w, lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), value))
	}

	row("Satellites", fmt.Sprintf("%s / %s", res.Sat1, res.Sat2))
	row("Risk", riskStyles[res.RiskCategory].Render(string(res.RiskCategory)))
	row("", res.RiskMessage)
	if res.Determined() {
		row("Minimum distance", fmt.Sprintf("%.2f km", *res.MinDistanceKm))
		row("Closest approach", res.ClosestApproachTime.Format("2006-01-02 15:04:05 MST"))
	}
	if res.Positions != nil {
		p := res.Positions
		row(res.Sat1, fmt.Sprintf("lat %.2f  lon %.2f  alt %.1f km", p.Sat1.Lat, p.Sat1.Lon, p.Sat1.AltKm))
		row(res.Sat2, fmt.Sprintf("lat %.2f  lon %.2f  alt %.1f km", p.Sat2.Lat, p.Sat2.Lon, p.Sat2.AltKm))
	}
	s := res.Sampling
	row("Sampling", fmt.Sprintf("%d/%d valid samples over %gh every %g min",
		s.ValidSamples, s.Samples, s.WindowHours, s.StepMinutes))
}
