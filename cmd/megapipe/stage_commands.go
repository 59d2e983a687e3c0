package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dlops-io/mega-pipeline-aws/internal/pipeline"
	"github.com/dlops-io/mega-pipeline-aws/internal/stages"
	"github.com/dlops-io/mega-pipeline-aws/internal/workspace"
	"github.com/spf13/cobra"
)

// errItemsFailed makes the process exit non-zero so a re-run can pick up the
// failed items.
var errItemsFailed = errors.New("some items failed")

// Verbs.
const (
	verbDownload = "download"
	verbProcess  = "process"
	verbUpload   = "upload"
	verbRun      = "run"
)

type stageVerb func(ctx context.Context, s *session, definition stages.Definition, out io.Writer) (int, error)

func newStageCommand(cc *commandContext, definition stages.Definition) *cobra.Command {
	stageCmd := &cobra.Command{
		Use:   definition.Name,
		Short: definition.Description,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	verbs := []struct {
		name  string
		short string
		run   stageVerb
	}{
		{
			name:  verbDownload,
			short: fmt.Sprintf("Download %s artifacts from the bucket", definition.Input.Name),
			run:   runDownload,
		},
		{
			name:  verbProcess,
			short: fmt.Sprintf("Run %s on local %s artifacts", definition.ProcessVerb, definition.Input.Name),
			run:   runProcess,
		},
		{
			name:  verbUpload,
			short: fmt.Sprintf("Upload %s artifacts to the bucket", definition.Output.Name),
			run:   runUpload,
		},
		{
			name:  verbRun,
			short: "Download, process and upload in one go",
			run:   runAll,
		},
	}

	for _, verb := range verbs {
		stageCmd.AddCommand(&cobra.Command{
			Use:   verb.name,
			Short: verb.short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return cc.execute(cmd, definition, verb.run)
			},
		})
	}

	return stageCmd
}

func (c *commandContext) execute(cmd *cobra.Command, definition stages.Definition, verb stageVerb) error {
	s, err := c.openSession()
	if err != nil {
		return err
	}

	defer s.close()

	s.log.Info("Run %s: stage %s, command %s", s.runID, definition.Name, cmd.Name())

	failed, err := verb(cmd.Context(), s, definition, cmd.OutOrStdout())
	if err != nil {
		s.log.Error("Run %s: %s %s failed: %v", s.runID, definition.Name, cmd.Name(), err)

		return err
	}

	if failed > 0 {
		return fmt.Errorf("%w: %d item(s) in %s %s", errItemsFailed, failed, definition.Name, cmd.Name())
	}

	return nil
}

func runDownload(ctx context.Context, s *session, definition stages.Definition, out io.Writer) (int, error) {
	runner, err := pipeline.NewRunner(s.log, s.cfg.Runner.Workers)
	if err != nil {
		return 0, err
	}

	remote, err := s.remoteStore(ctx)
	if err != nil {
		return 0, err
	}

	report, err := runner.SyncDown(ctx, remote, s.local, definition.Input, definition.ClearOnDownload)
	if err != nil {
		return 0, err
	}

	printSyncReport(out, verbDownload, report)

	return len(report.Failures), nil
}

func runProcess(ctx context.Context, s *session, definition stages.Definition, out io.Writer) (int, error) {
	lock, err := workspace.Acquire(s.local.Root(), definition.Name)
	if err != nil {
		return 0, err
	}

	defer func() {
		releaseErr := lock.Release()
		if releaseErr != nil {
			s.log.Warn("Run %s: %v", s.runID, releaseErr)
		}
	}()

	transform, err := definition.NewTransform(ctx, s.cfg, s.log)
	if err != nil {
		return 0, fmt.Errorf("failed to set up %s: %w", definition.Name, err)
	}

	runner, err := pipeline.NewRunner(s.log, s.cfg.Runner.Workers)
	if err != nil {
		return 0, err
	}

	report, err := runner.Run(ctx, definition.Stage(transform), s.local, s.local)
	if err != nil {
		return 0, err
	}

	printRunReport(out, report)

	return len(report.Failures), nil
}

func runUpload(ctx context.Context, s *session, definition stages.Definition, out io.Writer) (int, error) {
	runner, err := pipeline.NewRunner(s.log, s.cfg.Runner.Workers)
	if err != nil {
		return 0, err
	}

	remote, err := s.remoteStore(ctx)
	if err != nil {
		return 0, err
	}

	opts, err := s.uploadOptions()
	if err != nil {
		return 0, err
	}

	report, err := runner.SyncUp(ctx, s.local, remote, definition.Output, opts...)
	if err != nil {
		return 0, err
	}

	printSyncReport(out, verbUpload, report)

	return len(report.Failures), nil
}

func runAll(ctx context.Context, s *session, definition stages.Definition, out io.Writer) (int, error) {
	total := 0

	for _, verb := range []stageVerb{runDownload, runProcess, runUpload} {
		failed, err := verb(ctx, s, definition, out)
		if err != nil {
			return total, err
		}

		total += failed
	}

	return total, nil
}
