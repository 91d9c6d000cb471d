package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/isaacphi/promptwheel/internal/shared"
	"github.com/isaacphi/promptwheel/internal/ui/cli/resolve"
)

var (
	renderVars    []string
	renderUser    string
	renderContext []string
	showUsageID   bool
)

var renderCmd = &cobra.Command{
	Use:   "render [template]",
	Short: "Render a template and record the usage",
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
		variables, err := resolve.TypedKeyValues(renderVars)
		if err != nil {
			return err
		}
		usageContext, err := resolve.TypedKeyValues(renderContext)
		if err != nil {
			return err
		}

		rendered, usageID, err := svc.RenderPrompt(cmd.Context(), templateID, variables, renderUser, usageContext)
		if err != nil {
			return fmt.Errorf("failed to render template: %w", err)
		}

		fmt.Println(rendered)
		if showUsageID {
			fmt.Fprintf(cmd.ErrOrStderr(), "usage: %s\n", usageID)
		}
		return nil
	},
}

func init() {
	renderCmd.Flags().StringArrayVar(&renderVars, "var", nil, "Template variable as key=value (repeatable)")
	renderCmd.Flags().StringVarP(&renderUser, "user", "u", "", "User id for experiment assignment")
	renderCmd.Flags().StringArrayVar(&renderContext, "context", nil, "Usage context as key=value (repeatable)")
	renderCmd.Flags().BoolVar(&showUsageID, "show-usage-id", false, "Print the usage id for later performance reports")
}
