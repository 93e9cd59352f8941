package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

func locateCmd() *cli.Command {
	return &cli.Command{
		Name:  "locate",
		Usage: "Resolve the 3ds Max installation the pipeline would use",
		Action: func(_ context.Context, cmd *cli.Command) error {
			st, err := buildStack(cmd)
			if err != nil {
				return err
			}
			defer st.close()

			inst, err := st.locator.Resolve()
			if err != nil {
				return err
			}
			fmt.Printf("version: %s\nroot:    %s\nengine:  %s\n", inst.VersionTag, inst.Root, inst.Engine)
			return nil
		},
	}
}

func sweepCmd() *cli.Command {
	return &cli.Command{
		Name:  "sweep",
		Usage: "Remove leftover staging directories from the conversion cache",
		Action: func(_ context.Context, cmd *cli.Command) error {
			st, err := buildStack(cmd)
			if err != nil {
				return err
			}
			defer st.close()

			n, err := st.workspaces.Sweep()
			if err != nil {
				return err
			}
			fmt.Printf("removed %d staging directories\n", n)
			return nil
		},
	}
}
