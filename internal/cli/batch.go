package cli

import (
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dlovans/formwalk/internal/loader"
	"github.com/dlovans/formwalk/internal/render"
	"github.com/dlovans/formwalk/pkg/formwalk"
)

func newBatchCommand() *cobra.Command {
	var formPath string
	cmd := &cobra.Command{
		Use:   "batch ANSWERS...",
		Short: "Evaluate many answer files against one form",
		Long: `Evaluate many answer files against one form concurrently.

Each file gets its own session; a failure in one file is reported in its
row and does not stop the others.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := getConfig(ctx)
			logger := getLogger(ctx)

			form, err := loader.LoadForm(formPath)
			if err != nil {
				return err
			}

			rows := make([]render.BatchRow, len(args))
			g, gctx := errgroup.WithContext(ctx)
			g.SetLimit(cfg.Batch.Workers)

			for i, path := range args {
				g.Go(func() error {
					if err := gctx.Err(); err != nil {
						return err
					}
					rows[i] = evaluateFile(form, path, formwalk.WithLogger(logger.With("file", path)))
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			return getRenderer(cmd).Batch(rows)
		},
	}
	cmd.Flags().StringVarP(&formPath, "form", "f", "", "Form definition file (JSON or YAML)")
	cmd.Flags().Int("workers", 0, "Number of files evaluated concurrently")
	_ = cmd.MarkFlagRequired("form")
	return cmd
}

func evaluateFile(form *formwalk.Form, path string, opts ...formwalk.SessionOption) render.BatchRow {
	row := render.BatchRow{File: path}
	answers, err := loader.LoadAnswers(path)
	if err != nil {
		row.Error = err.Error()
		return row
	}

	session := formwalk.NewSession(form, opts...)
	result := session.Walk(answers, nil)
	row.Required = len(session.Required(answers))
	row.Fields = len(result.Flat)
	row.Diagnostics = len(result.Diagnostics)
	return row
}
