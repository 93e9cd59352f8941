package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/475519905/Autodesk-Max-File-Import-Export/internal/server"
)

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the conversion API server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "listen",
				Usage:   "Listen address (host:port), overrides config",
				Sources: cli.EnvVars("MAXBRIDGE_SERVER_LISTEN"),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			st, err := buildStack(cmd)
			if err != nil {
				return err
			}
			defer st.close()

			e := echo.New()
			e.HideBanner = true
			server.SetupRouter(e, server.RouterConfig{
				Orchestrator: st.orch,
				Locator:      st.locator,
				Workspaces:   st.workspaces,
			})

			addr := cmd.String("listen")
			if addr == "" {
				addr = fmt.Sprintf("%s:%d", st.cfg.Server.Host, st.cfg.Server.Port)
			}

			// Staging directories from a previous crash are safe to clear
			// before accepting jobs.
			if n, err := st.workspaces.Sweep(); err != nil {
				log.Warn().Err(err).Msg("startup cache sweep incomplete")
			} else if n > 0 {
				log.Info().Int("removed", n).Msg("cleared leftover staging directories")
			}

			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			go func() {
				log.Info().Str("addr", addr).Msg("conversion API listening")
				if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal().Err(err).Msg("HTTP server failed")
				}
			}()

			<-ctx.Done()
			log.Info().Msg("shutting down...")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := st.orch.Cancel(""); err == nil {
				log.Info().Msg("cancelled active job")
			}
			if err := e.Shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("server shutdown error")
			}
			return nil
		},
	}
}
