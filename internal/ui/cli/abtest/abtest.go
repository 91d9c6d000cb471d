package abtest

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/isaacphi/promptwheel/internal/shared"
	"github.com/isaacphi/promptwheel/internal/ui/cli/resolve"
)

var (
	weightsFlag string
	winnerFlag  string
)

var AbtestCmd = &cobra.Command{
	Use:   "abtest",
	Short: "Run A/B tests across template versions",
}

var startCmd = &cobra.Command{
	Use:   "start [template] [version...]",
	Short: "Start an experiment over the given versions",
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

		weights, err := resolve.Weights(weightsFlag)
		if err != nil {
			return err
		}

		if err := svc.StartAbTest(templateID, versionIDs, weights); err != nil {
			return fmt.Errorf("failed to start experiment: %w", err)
		}
		fmt.Printf("Started experiment over %d versions\n", len(versionIDs))
		return nil
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop [template]",
	Short: "Stop the running experiment, optionally activating a winner",
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

		var winner *uuid.UUID
		if winnerFlag != "" {
			winnerID, err := resolve.Version(svc, templateID, winnerFlag)
			if err != nil {
				return err
			}
			winner = &winnerID
		}

		if err := svc.StopAbTest(cmd.Context(), templateID, winner); err != nil {
			return fmt.Errorf("failed to stop experiment: %w", err)
		}
		if winner != nil {
			fmt.Printf("Experiment stopped, activated %s\n", winner.String()[:8])
		} else {
			fmt.Println("Experiment stopped")
		}
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status [template]",
	Short: "Show the running experiment",
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

		exp, running := svc.ExperimentStatus(templateID)
		if !running {
			fmt.Println("No experiment running")
			return nil
		}

		fmt.Printf("Running since %s, %d users assigned\n\n",
			exp.StartedAt.Format(time.RFC822), len(exp.Allocations))

		// Count assignments per version for the distribution column.
		counts := make(map[uuid.UUID]int)
		for _, versionID := range exp.Allocations {
			counts[versionID]++
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "Version\tWeight\tAssigned")
		for i, versionID := range exp.VersionIDs {
			fmt.Fprintf(w, "%s\t%.2f\t%d\n", versionID.String()[:8], exp.Weights[i], counts[versionID])
		}
		w.Flush()

		return nil
	},
}

func init() {
	startCmd.Flags().StringVar(&weightsFlag, "weights", "", "Comma-separated traffic weights, e.g. 0.7,0.3 (defaults to even split)")
	stopCmd.Flags().StringVar(&winnerFlag, "winner", "", "Version to activate as the winner")

	AbtestCmd.AddCommand(startCmd, stopCmd, statusCmd)
}
