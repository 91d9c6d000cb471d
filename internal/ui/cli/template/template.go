package template

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/isaacphi/promptwheel/internal/shared"
	"github.com/isaacphi/promptwheel/internal/ui/cli/resolve"
)

var (
	forceFlag bool
	nameFlag  string
	descFlag  string
)

var TemplateCmd = &cobra.Command{
	Use:   "template",
	Short: "Manage prompt templates",
}

var listCmd = &cobra.Command{
	Use:   "ls",
	Short: "List templates",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := shared.InitializePromptService(cmd.Context())
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tName\tVersions\tActive\tCreated")

		for _, summary := range svc.ListTemplates() {
			active := "-"
			if summary.ActiveSequence > 0 {
				active = fmt.Sprintf("v%d", summary.ActiveSequence)
			}
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
				summary.ID.String()[:8],
				summary.Name,
				summary.VersionCount,
				active,
				summary.CreatedAt.Format(time.RFC822),
			)
		}
		w.Flush()

		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show [template]",
	Short: "Show a template and its current content",
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
		tmpl, err := svc.GetTemplate(templateID)
		if err != nil {
			return err
		}

		fmt.Printf("Template %s\n", tmpl.ID)
		fmt.Printf("Name: %s\n", tmpl.Name)
		if tmpl.Description != "" {
			fmt.Printf("Description: %s\n", tmpl.Description)
		}
		fmt.Printf("Updated: %s\n\n", tmpl.UpdatedAt.Format(time.RFC822))
		fmt.Println(tmpl.Template)
		if len(tmpl.DefaultValues) > 0 {
			fmt.Println("\nDefaults:")
			for key, value := range tmpl.DefaultValues {
				fmt.Printf("  %s: %s\n", key, value)
			}
		}
		return nil
	},
}

var updateCmd = &cobra.Command{
	Use:   "update [template]",
	Short: "Update template name or description",
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

		var name, desc *string
		if cmd.Flags().Changed("name") {
			name = &nameFlag
		}
		if cmd.Flags().Changed("description") {
			desc = &descFlag
		}
		if name == nil && desc == nil {
			return fmt.Errorf("nothing to update, pass --name or --description")
		}

		if err := svc.UpdateTemplate(cmd.Context(), templateID, name, desc); err != nil {
			return fmt.Errorf("failed to update template: %w", err)
		}
		fmt.Println("Template updated")
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "rm [template]",
	Short: "Delete a template and all its versions",
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
		tmpl, err := svc.GetTemplate(templateID)
		if err != nil {
			return err
		}

		if !forceFlag {
			fmt.Printf("About to delete template %s (%s)\n", tmpl.ID.String()[:8], tmpl.Name)
			fmt.Print("Are you sure? [y/N] ")
			var response string
			fmt.Scanln(&response)

			response = strings.ToLower(strings.TrimSpace(response))
			if response != "y" && response != "yes" {
				fmt.Println("Operation cancelled")
				return nil
			}
		}

		if err := svc.DeleteTemplate(cmd.Context(), templateID); err != nil {
			return fmt.Errorf("failed to delete template: %w", err)
		}
		fmt.Println("Template deleted")
		return nil
	},
}

func init() {
	updateCmd.Flags().StringVar(&nameFlag, "name", "", "New template name")
	updateCmd.Flags().StringVar(&descFlag, "description", "", "New template description")
	deleteCmd.Flags().BoolVarP(&forceFlag, "force", "f", false, "Delete without confirmation")

	TemplateCmd.AddCommand(listCmd, showCmd, createCmd, updateCmd, deleteCmd, exportCmd, importCmd)
}
