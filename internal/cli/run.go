package cli

import (
	"github.com/spf13/cobra"

	"github.com/dlovans/formwalk/internal/loader"
	"github.com/dlovans/formwalk/internal/store"
	"github.com/dlovans/formwalk/pkg/formwalk"
)

// inputs holds the file flags shared by the evaluating commands.
type inputs struct {
	Form     string
	Answers  string
	External string
}

func (in *inputs) register(cmd *cobra.Command, external bool) {
	cmd.Flags().StringVarP(&in.Form, "form", "f", "", "Form definition file (JSON or YAML)")
	cmd.Flags().StringVarP(&in.Answers, "answers", "a", "", "Answers file (JSON or YAML)")
	if external {
		cmd.Flags().StringVarP(&in.External, "external", "e", "", "External metadata bundle for the constructed view")
	}
	_ = cmd.MarkFlagRequired("form")
}

func newRunCommand() *cobra.Command {
	var (
		in   inputs
		save bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Walk a form against answers and print every projection",
		Example: `  # Print all projections as JSON
  formwalk run --form intake.yaml --answers answers.json

  # Show rendered answers as a table and keep a snapshot
  formwalk run -f intake.yaml -a answers.json -o table --save`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg := getConfig(ctx)

			form, err := loader.LoadForm(in.Form)
			if err != nil {
				return err
			}
			answers, err := loader.LoadAnswers(in.Answers)
			if err != nil {
				return err
			}
			external, err := loader.LoadExternal(in.External)
			if err != nil {
				return err
			}

			session := formwalk.NewSession(form, formwalk.WithLogger(getLogger(ctx)))
			result := session.Walk(answers, external)

			if save {
				s, err := store.Open(ctx, cfg.StorePath)
				if err != nil {
					return err
				}
				snap, err := s.Save(ctx, form.ID, answers, result, session.Required(answers))
				if closeErr := s.Close(); err == nil {
					err = closeErr
				}
				if err != nil {
					return err
				}
				getLogger(ctx).Info("snapshot saved", "id", snap.ID, "store", s.Path())
			}

			return getRenderer(cmd).Result(result)
		},
	}

	in.register(cmd, true)
	cmd.Flags().BoolVar(&save, "save", false, "Persist the result as a snapshot")
	cmd.Flags().String("store", "", "Snapshot database path")

	return cmd
}

func newRequiredCommand() *cobra.Command {
	var in inputs
	cmd := &cobra.Command{
		Use:   "required",
		Short: "List required fields that are currently visible",
		RunE: func(cmd *cobra.Command, _ []string) error {
			form, err := loader.LoadForm(in.Form)
			if err != nil {
				return err
			}
			answers, err := loader.LoadAnswers(in.Answers)
			if err != nil {
				return err
			}

			session := formwalk.NewSession(form, formwalk.WithLogger(getLogger(cmd.Context())))
			return getRenderer(cmd).Required(session.Required(answers))
		},
	}
	in.register(cmd, false)
	return cmd
}
