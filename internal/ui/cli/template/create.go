package template

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/isaacphi/promptwheel/internal/shared"
	"github.com/isaacphi/promptwheel/internal/ui/cli/resolve"
)

var (
	createDesc string
	createBody string
	createFile string
	createVars []string
)

var createCmd = &cobra.Command{
	Use:   "create [name]",
	Short: "Create a template with its initial version",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := shared.InitializePromptService(cmd.Context())
		if err != nil {
			return err
		}

		body, err := templateBody(createBody, createFile)
		if err != nil {
			return err
		}
		defaults, err := resolve.KeyValues(createVars)
		if err != nil {
			return err
		}

		id, err := svc.CreateTemplate(cmd.Context(), args[0], createDesc, body, defaults)
		if err != nil {
			return fmt.Errorf("failed to create template: %w", err)
		}
		fmt.Printf("Created template %s\n", id)
		return nil
	},
}

// templateBody reads the body from --body or --file, exactly one of which
// must be given.
func templateBody(body, file string) (string, error) {
	switch {
	case body != "" && file != "":
		return "", fmt.Errorf("pass either --body or --file, not both")
	case body != "":
		return body, nil
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("failed to read body file: %w", err)
		}
		return string(data), nil
	default:
		return "", fmt.Errorf("a template body is required, pass --body or --file")
	}
}

func init() {
	createCmd.Flags().StringVar(&createDesc, "description", "", "Template description")
	createCmd.Flags().StringVar(&createBody, "body", "", "Template body with {{variable}} placeholders")
	createCmd.Flags().StringVar(&createFile, "file", "", "Read the template body from a file")
	createCmd.Flags().StringArrayVar(&createVars, "var", nil, "Default variable value as key=value (repeatable)")
}
