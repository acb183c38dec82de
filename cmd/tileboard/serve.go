package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mdp/qrterminal/v3"
	"github.com/spf13/cobra"

	"pkt.systems/pslog"
	"pkt.systems/tileboard"
	"pkt.systems/tileboard/internal/appconfig"
)

func newServeCmd() *cobra.Command {
	var cfgPath string
	var noBanner bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the tileboard hub",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := pslog.Ctx(cmd.Context())
			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}

			srv, err := tileboard.New(tileboard.ServerConfig{
				Addr:                cfg.HTTP.Addr,
				BaseURL:             cfg.HTTP.BaseURL,
				SessionFile:         cfg.Session.File,
				SaveDebounce:        time.Duration(cfg.Session.SaveDebounceMs) * time.Millisecond,
				Language:            cfg.Board.Language,
				TeacherPassword:     cfg.Auth.TeacherPassword,
				TeacherPasswordHash: cfg.Auth.TeacherPasswordHash,
			}, logger)
			if err != nil {
				return err
			}

			logMode := strings.ToLower(strings.TrimSpace(os.Getenv("LOG_MODE")))
			showBanner := !noBanner && logMode != "json" && logMode != "structured"
			if showBanner && cfg.HTTP.BaseURL != "" {
				out := cmd.OutOrStdout()
				_, _ = fmt.Fprintf(out, "Join the session at %s\n", cfg.HTTP.BaseURL)
				qrterminal.GenerateHalfBlock(cfg.HTTP.BaseURL, qrterminal.L, out)
			}

			if err := srv.Start(cmd.Context()); err != nil {
				return err
			}
			waitErr := srv.Wait()
			stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Stop(stopCtx)
			return waitErr
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	cmd.Flags().BoolVar(&noBanner, "no-banner", false, "suppress the join banner and QR code")
	return cmd
}
