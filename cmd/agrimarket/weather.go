package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/itsneelabh/agrimarket"
	"github.com/itsneelabh/agrimarket/pkg/logger"
	"github.com/itsneelabh/agrimarket/pkg/telemetry"
	"github.com/itsneelabh/agrimarket/pkg/weather"
)

func newAlertsCmd(opts *rootOptions) *cobra.Command {
	var r weather.Reading
	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "Evaluate the weather alert rules for a reading",
		Long: `Evaluates the grower advisories for the given conditions without
contacting the weather provider.

Example:
  agrimarket alerts --temperature 30 --humidity 20 --precipitation 80`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			alerts := weather.Evaluate(r)
			out := cmd.OutOrStdout()
			if opts.jsonOut {
				return printJSON(out, alerts)
			}
			printAlerts(out, alerts)
			return nil
		},
	}
	cmd.Flags().IntVar(&r.Temperature, "temperature", 0, "temperature in °F")
	cmd.Flags().IntVar(&r.Humidity, "humidity", 0, "relative humidity, percent")
	cmd.Flags().IntVar(&r.Precipitation, "precipitation", 0, "chance of precipitation, percent")
	_ = cmd.MarkFlagRequired("temperature")
	return cmd
}

func newWeatherCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "weather [location]",
		Short: "Fetch current conditions, forecast and alerts",
		Long: `Fetches a weather report from OpenWeatherMap. The API key is read from
OPENWEATHER_API_KEY or the configuration file. Without a location the
configured default is used.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if !cfg.Weather.Enabled {
				return errors.New("weather is disabled: set OPENWEATHER_API_KEY")
			}
			svc, err := agrimarket.NewWeatherService(cfg.Weather, logger.NewNop(), telemetry.Noop())
			if err != nil {
				return err
			}

			location := ""
			if len(args) == 1 {
				location = args[0]
			}
			report, err := svc.Advisory(cmd.Context(), location)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.jsonOut {
				return printJSON(out, report)
			}
			printReport(out, report)
			return nil
		},
	}
}

func printReport(w io.Writer, rep weather.Report) {
	r := rep.Reading
	fmt.Fprintf(w, "%s: %d°F, %s\n", rep.Location, r.Temperature, r.Condition)
	fmt.Fprintf(w, "  humidity %d%%  precipitation %d%%  wind %d mph  visibility %.1f mi\n",
		r.Humidity, r.Precipitation, r.WindSpeed, r.Visibility)
	if len(rep.Forecast) > 0 {
		days := make([]string, 0, len(rep.Forecast))
		for _, d := range rep.Forecast {
			days = append(days, fmt.Sprintf("%s %d/%d", d.Day, d.High, d.Low))
		}
		fmt.Fprintf(w, "  forecast: %s\n", strings.Join(days, ", "))
	}
	printAlerts(w, rep.Alerts)
	for _, tip := range rep.Tips {
		fmt.Fprintf(w, "tip: %s: %s\n", tip.Title, tip.Text)
	}
}

func printAlerts(w io.Writer, alerts []weather.Alert) {
	if len(alerts) == 0 {
		fmt.Fprintln(w, "No alerts")
		return
	}
	for _, a := range alerts {
		fmt.Fprintf(w, "[%s] %s: %s\n", a.Kind, a.Title, a.Description)
	}
}
