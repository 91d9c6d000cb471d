package template

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/isaacphi/promptwheel/internal/shared"
	"github.com/isaacphi/promptwheel/internal/ui/cli/resolve"
	"github.com/isaacphi/promptwheel/internal/version"
)

var (
	versionName     string
	versionDesc     string
	versionBody     string
	versionFile     string
	versionVars     []string
	versionActivate bool
	versionAuthor   string
)

var VersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Manage template versions",
}

var versionListCmd = &cobra.Command{
	Use:   "ls [template]",
	Short: "List a template's versions",
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
		versions, err := svc.ListVersions(templateID)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "Seq\tID\tName\tActive\tCreated By\tCreated")
		for _, v := range versions {
			active := ""
			if v.Active {
				active = "*"
			}
			fmt.Fprintf(w, "v%d\t%s\t%s\t%s\t%s\t%s\n",
				v.Sequence,
				v.ID.String()[:8],
				v.Name,
				active,
				v.CreatedBy,
				v.CreatedAt.Format(time.RFC822),
			)
		}
		w.Flush()

		return nil
	},
}

var versionCreateCmd = &cobra.Command{
	Use:   "create [template]",
	Short: "Add a new version to a template",
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
		body, err := templateBody(versionBody, versionFile)
		if err != nil {
			return err
		}
		defaults, err := resolve.KeyValues(versionVars)
		if err != nil {
			return err
		}

		id, err := svc.CreateVersion(cmd.Context(), templateID, version.CreateVersionParams{
			Body:        body,
			Defaults:    defaults,
			Name:        versionName,
			Description: versionDesc,
			CreatedBy:   versionAuthor,
			SetActive:   versionActivate,
		})
		if err != nil {
			return fmt.Errorf("failed to create version: %w", err)
		}
		fmt.Printf("Created version %s\n", id)
		return nil
	},
}

var versionActivateCmd = &cobra.Command{
	Use:   "activate [template] [version]",
	Short: "Make a version the template's active one",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := shared.InitializePromptService(cmd.Context())
		if err != nil {
			return err
		}

		templateID, err := resolve.Template(svc, args[0])
		if err != nil {
			return err
		}
		versionID, err := resolve.Version(svc, templateID, args[1])
		if err != nil {
			return err
		}

		if err := svc.SetActiveVersion(cmd.Context(), templateID, versionID); err != nil {
			return fmt.Errorf("failed to activate version: %w", err)
		}
		fmt.Println("Version activated")
		return nil
	},
}

func init() {
	versionCreateCmd.Flags().StringVar(&versionName, "name", "", "Version name")
	versionCreateCmd.Flags().StringVar(&versionDesc, "description", "", "Version description")
	versionCreateCmd.Flags().StringVar(&versionBody, "body", "", "Version body with {{variable}} placeholders")
	versionCreateCmd.Flags().StringVar(&versionFile, "file", "", "Read the version body from a file")
	versionCreateCmd.Flags().StringArrayVar(&versionVars, "var", nil, "Default variable value as key=value (repeatable)")
	versionCreateCmd.Flags().BoolVar(&versionActivate, "activate", false, "Activate the new version immediately")
	versionCreateCmd.Flags().StringVar(&versionAuthor, "created-by", "", "Author to record for the version")

	VersionCmd.AddCommand(versionListCmd, versionCreateCmd, versionActivateCmd)
}
