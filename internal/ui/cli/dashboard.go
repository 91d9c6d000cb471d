package cli

import (
	"github.com/spf13/cobra"

	"github.com/isaacphi/promptwheel/internal/appState"
	"github.com/isaacphi/promptwheel/internal/shared"
	"github.com/isaacphi/promptwheel/internal/ui/tui"
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Open the interactive template dashboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := shared.InitializePromptService(cmd.Context())
		if err != nil {
			return err
		}
		return tui.Run(svc, appState.Get().Config.Keymap)
	},
}
