package metrics

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/isaacphi/promptwheel/internal/domain"
	"github.com/isaacphi/promptwheel/internal/shared"
	"github.com/isaacphi/promptwheel/internal/ui/cli/resolve"
)

var (
	daysFlag      int
	metricFlags   []string
	feedbackFlags []string
	metricKey     string
	lowerIsBetter bool
)

var MetricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Inspect and record prompt performance",
}

// window converts the --days flag into aggregation bounds. Zero values keep
// the service's default trailing window.
func window() (time.Time, time.Time) {
	if daysFlag <= 0 {
		return time.Time{}, time.Time{}
	}
	end := time.Now().UTC()
	return end.Add(-time.Duration(daysFlag) * 24 * time.Hour), end
}

var showCmd = &cobra.Command{
	Use:   "show [template]",
	Short: "Show aggregated metrics for a template",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := shared.InitializePromptService(cmd.Context())
		if err != nil {
			return err
		}

		templateID, err := resolve.Template(svc, args[0])
		if err != nil {
			return err
		}
		start, end := window()
		m, err := svc.TemplateMetrics(templateID, start, end)
		if err != nil {
			return err
		}

		fmt.Printf("Usage from %s to %s: %d records\n\n",
			m.Start.Format("2006-01-02"), m.End.Format("2006-01-02"), m.UsageCount)

		printAggregates(m.Metrics)

		if len(m.VersionDistribution) > 0 {
			fmt.Println("\nVersion distribution:")
			keys := make([]string, 0, len(m.VersionDistribution))
			for key := range m.VersionDistribution {
				keys = append(keys, key)
			}
			sort.Strings(keys)
			for _, key := range keys {
				label := key
				if key != domain.UnknownVersionKey {
					label = key[:8]
				}
				fmt.Printf("  %s: %d\n", label, m.VersionDistribution[key])
			}
		}
		return nil
	},
}

var compareCmd = &cobra.Command{
	Use:   "compare [template] [version...]",
	Short: "Compare metrics across versions",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := shared.InitializePromptService(cmd.Context())
		if err != nil {
			return err
		}

		templateID, err := resolve.Template(svc, args[0])
		if err != nil {
			return err
		}
		versionIDs := make([]uuid.UUID, 0, len(args)-1)
		for _, arg := range args[1:] {
			versionID, err := resolve.Version(svc, templateID, arg)
			if err != nil {
				return err
			}
			versionIDs = append(versionIDs, versionID)
		}

		var keys []string
		if metricKey != "" {
			keys = []string{metricKey}
		}
		start, end := window()
		results, err := svc.CompareVersions(templateID, versionIDs, keys, start, end)
		if err != nil {
			return err
		}

		for _, versionID := range versionIDs {
			vm := results[versionID]
			fmt.Printf("Version %s: %d usages\n", versionID.String()[:8], vm.UsageCount)
			printAggregates(vm.Metrics)
			fmt.Println()
		}
		return nil
	},
}

var recordCmd = &cobra.Command{
	Use:   "record [usage-id]",
	Short: "Attach performance metrics to a rendered prompt",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := shared.InitializePromptService(cmd.Context())
		if err != nil {
			return err
		}

		usageID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid usage id %q: %w", args[0], err)
		}
		metricValues, err := resolve.TypedKeyValues(metricFlags)
		if err != nil {
			return err
		}
		if len(metricValues) == 0 {
			return fmt.Errorf("at least one --metric is required")
		}
		feedback, err := resolve.TypedKeyValues(feedbackFlags)
		if err != nil {
			return err
		}

		if err := svc.RecordPerformance(cmd.Context(), usageID, metricValues, feedback); err != nil {
			return fmt.Errorf("failed to record performance: %w", err)
		}
		fmt.Println("Performance recorded")
		return nil
	},
}

var optimizeCmd = &cobra.Command{
	Use:   "optimize [template]",
	Short: "Activate the version with the best average of a metric",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := shared.InitializePromptService(cmd.Context())
		if err != nil {
			return err
		}

		templateID, err := resolve.Template(svc, args[0])
		if err != nil {
			return err
		}
		if metricKey == "" {
			return fmt.Errorf("--metric is required")
		}

		best, switched, err := svc.OptimizePrompt(cmd.Context(), templateID, metricKey, !lowerIsBetter)
		if err != nil {
			return fmt.Errorf("failed to optimize template: %w", err)
		}
		if !switched {
			fmt.Println("Not enough data to pick a version")
			return nil
		}
		fmt.Printf("Activated version %s\n", best.String()[:8])
		return nil
	},
}

func printAggregates(aggs map[string]domain.MetricAggregate) {
	if len(aggs) == 0 {
		fmt.Println("No metrics recorded")
		return
	}

	names := make([]string, 0, len(aggs))
	for name := range aggs {
		names = append(names, name)
	}
	sort.Strings(names)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "Metric\tCount\tMin\tAvg\tMax")
	for _, name := range names {
		agg := aggs[name]
		fmt.Fprintf(w, "%s\t%d\t%.3f\t%.3f\t%.3f\n", name, agg.Count, agg.Min, agg.Avg, agg.Max)
	}
	w.Flush()
}

func init() {
	showCmd.Flags().IntVar(&daysFlag, "days", 0, "Aggregation window in days (0 for the default 30)")
	compareCmd.Flags().IntVar(&daysFlag, "days", 0, "Aggregation window in days (0 for the default 30)")
	compareCmd.Flags().StringVar(&metricKey, "metric", "", "Restrict the comparison to one metric")
	recordCmd.Flags().StringArrayVar(&metricFlags, "metric", nil, "Metric value as key=value (repeatable)")
	recordCmd.Flags().StringArrayVar(&feedbackFlags, "feedback", nil, "Feedback as key=value (repeatable)")
	optimizeCmd.Flags().StringVar(&metricKey, "metric", "", "Metric to optimize for")
	optimizeCmd.Flags().BoolVar(&lowerIsBetter, "lower", false, "Treat lower values as better (e.g. latency)")

	MetricsCmd.AddCommand(showCmd, compareCmd, recordCmd, optimizeCmd)
}
