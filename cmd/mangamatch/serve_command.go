package main

import (
	"context"
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"mangamatch/internal/httpapi"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the matching API over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if strings.TrimSpace(bind) != "" {
				cfg.Server.Bind = strings.TrimSpace(bind)
			}

			runCtx, cancel := signalContext(cmd)
			defer cancel()

			rt, err := ctx.openRuntime(runCtx)
			if err != nil {
				return err
			}
			defer rt.Close(context.WithoutCancel(runCtx))

			handler := httpapi.NewHandler(httpapi.Options{
				Matcher:      rt.Matcher,
				Results:      rt.Store,
				CatalogToken: rt.Token(),
				AuthToken:    cfg.Server.Token,
				Logger:       rt.Logger,
			})
			rt.Logger.Info("api server starting", "bind", cfg.Server.Bind, "auth", cfg.Server.Token != "")
			err = httpapi.ListenAndServe(runCtx, cfg.Server.Bind, handler, rt.Logger)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().StringVar(&bind, "bind", "", "Listen address (default from config)")
	return cmd
}
