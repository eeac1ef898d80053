package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dlovans/formwalk/internal/loader"
	"github.com/dlovans/formwalk/pkg/lint"
)

// ErrLintFailed is returned when lint reports at least one error.
var ErrLintFailed = errors.New("lint failed")

func newLintCommand() *cobra.Command {
	var formPath string
	cmd := &cobra.Command{
		Use:   "lint [form]",
		Short: "Check a form definition for structural problems",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				formPath = args[0]
			}
			if formPath == "" {
				return fmt.Errorf("a form file is required (argument or --form)")
			}

			form, err := loader.LoadForm(formPath)
			if err != nil {
				return err
			}
			result := lint.Form(form)
			if err := getRenderer(cmd).Lint(result); err != nil {
				return err
			}
			if !result.Valid {
				errs := 0
				for _, issue := range result.Issues {
					if issue.Severity == "error" {
						errs++
					}
				}
				return fmt.Errorf("%w: %d error(s)", ErrLintFailed, errs)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&formPath, "form", "f", "", "Form definition file (JSON or YAML)")
	return cmd
}
