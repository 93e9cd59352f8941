package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/475519905/Autodesk-Max-File-Import-Export/internal/pipeline"
	"github.com/475519905/Autodesk-Max-File-Import-Export/internal/scene"
)

func exportCmd() *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Convert a host scene descriptor to a .max file",
		ArgsUsage: "<scene-file> <dest.max>",
		Flags: append(optionFlags(),
			&cli.BoolFlag{Name: "selected-only", Usage: "Only convert objects marked selected"},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 2 {
				return fmt.Errorf("expected <scene-file> <dest.max>, got %d arguments", cmd.Args().Len())
			}
			st, err := buildStack(cmd)
			if err != nil {
				return err
			}
			defer st.close()

			objects, err := scene.Load(cmd.Args().Get(0))
			if err != nil {
				return err
			}

			opts := jobOptions(cmd, st.cfg)
			opts.SelectedOnly = cmd.Bool("selected-only")

			job, err := st.orch.Submit(ctx, pipeline.Request{
				Direction: scene.DirectionExport,
				Options:   opts,
				Scene:     objects,
				DestPath:  cmd.Args().Get(1),
			})
			if err != nil {
				return err
			}
			return waitJob(ctx, st, job)
		},
	}
}

// waitJob blocks on the job and translates Ctrl-C into a cancellation
// request so the child process gets killed and staging gets cleaned up.
func waitJob(ctx context.Context, st *stack, job *pipeline.Job) error {
	go func() {
		<-ctx.Done()
		if err := st.orch.Cancel(job.ID); err != nil && !errors.Is(err, pipeline.ErrNoActiveJob) {
			log.Warn().Err(err).Msg("cancel request")
		}
	}()

	err := job.Wait(context.Background())
	if errors.Is(err, pipeline.ErrCancelled) {
		log.Warn().Str("job_id", job.ID).Msg("conversion cancelled")
		return nil
	}
	return err
}
