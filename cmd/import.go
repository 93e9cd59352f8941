package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/475519905/Autodesk-Max-File-Import-Export/internal/pipeline"
	"github.com/475519905/Autodesk-Max-File-Import-Export/internal/scene"
)

func importCmd() *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Convert a .max file to a host scene descriptor",
		ArgsUsage: "<source.max> <scene-file>",
		Flags:     optionFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 2 {
				return fmt.Errorf("expected <source.max> <scene-file>, got %d arguments", cmd.Args().Len())
			}
			st, err := buildStack(cmd)
			if err != nil {
				return err
			}
			defer st.close()

			job, err := st.orch.Submit(ctx, pipeline.Request{
				Direction:  scene.DirectionImport,
				Options:    jobOptions(cmd, st.cfg),
				SourcePath: cmd.Args().Get(0),
				Builder:    scene.FileBuilder(cmd.Args().Get(1)),
			})
			if err != nil {
				return err
			}
			return waitJob(ctx, st, job)
		},
	}
}
