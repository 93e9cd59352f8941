package cmd

import (
	"github.com/urfave/cli/v3"
)

var version = "dev"

func App() *cli.Command {
	return &cli.Command{
		Name:    "maxbridge",
		Version: version,
		Usage:   "Scene conversion bridge between a host 3D application and Autodesk 3ds Max",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to TOML config file",
				Sources: cli.EnvVars("MAXBRIDGE_CONFIG_PATH"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("MAXBRIDGE_LOGGING_LEVEL"),
			},
		},
		Commands: []*cli.Command{
			exportCmd(),
			importCmd(),
			locateCmd(),
			sweepCmd(),
			serveCmd(),
		},
	}
}
