package template

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/isaacphi/promptwheel/internal/shared"
	"github.com/isaacphi/promptwheel/internal/ui/cli/resolve"
)

var exportOutput string

var exportCmd = &cobra.Command{
	Use:   "export [template]",
	Short: "Export a template's current content to a YAML file",
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
		if err := svc.ExportTemplate(templateID, exportOutput); err != nil {
			return fmt.Errorf("failed to export template: %w", err)
		}
		fmt.Printf("Exported to %s\n", exportOutput)
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Create a template from a YAML file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := shared.InitializePromptService(cmd.Context())
		if err != nil {
			return err
		}

		id, err := svc.ImportTemplate(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to import template: %w", err)
		}
		fmt.Printf("Created template %s\n", id)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "template.yaml", "Output file path")
}
