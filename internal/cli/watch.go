package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/zeebo/xxh3"

	"github.com/dlovans/formwalk/internal/loader"
	"github.com/dlovans/formwalk/internal/watch"
	"github.com/dlovans/formwalk/pkg/formwalk"
)

func newWatchCommand() *cobra.Command {
	var in inputs
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-evaluate whenever the form or answers change",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg := getConfig(ctx)
			logger := getLogger(ctx)

			w, err := watch.New([]string{in.Form, in.Answers, in.External},
				time.Duration(cfg.Watch.DebounceMS)*time.Millisecond)
			if err != nil {
				return err
			}
			defer func() { _ = w.Close() }()

			ev := &watchEvaluator{in: in, cmd: cmd}
			logger.Info("watching", "files", w.Files())
			return watchLoop(ctx, w.Changes(), w.Errors(), ev.evaluate, func(err error) {
				logger.Warn("watch error", "error", err)
			})
		},
	}
	in.register(cmd, true)
	cmd.Flags().Int("debounce", 0, "Milliseconds to wait for writes to settle")
	return cmd
}

// watchEvaluator keeps one session across changes. Reloading the form starts
// a new session; changed answers reset the session's caches on their own.
type watchEvaluator struct {
	in       inputs
	cmd      *cobra.Command
	session  *formwalk.Session
	formHash uint64
}

func (e *watchEvaluator) evaluate() error {
	ctx := e.cmd.Context()

	data, err := loader.ReadJSON(e.in.Form)
	if err != nil {
		return err
	}
	if sum := xxh3.Hash(data); e.session == nil || sum != e.formHash {
		form, err := formwalk.ParseForm(data)
		if err != nil {
			return fmt.Errorf("decode form %s: %w", e.in.Form, err)
		}
		e.session = formwalk.NewSession(form, formwalk.WithLogger(getLogger(ctx)))
		e.formHash = sum
	}

	answers, err := loader.LoadAnswers(e.in.Answers)
	if err != nil {
		return err
	}
	external, err := loader.LoadExternal(e.in.External)
	if err != nil {
		return err
	}
	return getRenderer(e.cmd).Result(e.session.Walk(answers, external))
}

// watchLoop evaluates once, then again after every change until ctx is done.
// Evaluation failures are reported and do not end the loop.
func watchLoop(ctx context.Context, changes <-chan watch.Change, errs <-chan error, evaluate func() error, report func(error)) error {
	if err := evaluate(); err != nil {
		report(err)
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-changes:
			if !ok {
				return nil
			}
			if err := evaluate(); err != nil {
				report(err)
			}
		case err, ok := <-errs:
			if !ok {
				return nil
			}
			report(err)
		}
	}
}
