package main

import (
	"net"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/theimaginaryfoundation/remember-o-bot/internal/server"
	"github.com/theimaginaryfoundation/remember-o-bot/persona"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve train/generate/active-message over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !strings.EqualFold(a.cfg.Logging.Level, "debug") {
				gin.SetMode(gin.ReleaseMode)
			}
			gen, err := a.generator()
			if err != nil {
				return err
			}
			srv, err := server.New(server.Options{
				Generator:   gen,
				Clock:       a.clock,
				Logger:      a.logger,
				MinMessages: a.cfg.MinMessages,
				Profile:     persona.ProfileOptions{HowWeMet: persona.HowWeMetPolicy(a.cfg.HowWeMet)},
				CORSOrigins: a.cfg.ServerCORSOrigins,
			})
			if err != nil {
				return err
			}
			addr := net.JoinHostPort(a.cfg.ServerBind, strconv.Itoa(a.cfg.ServerPort))
			return srv.ListenAndServe(cmd.Context(), addr)
		},
	}

	f := cmd.Flags()
	f.String("bind", "127.0.0.1", "Bind address.")
	f.Int("port", 3002, "HTTP port to listen on.")
	f.StringSlice("cors-origin", nil, "Browser origin allowed to call the API (repeatable; default any).")
	_ = a.v.BindPFlag("server.bind", f.Lookup("bind"))
	_ = a.v.BindPFlag("server.port", f.Lookup("port"))
	_ = a.v.BindPFlag("server.cors_origins", f.Lookup("cors-origin"))

	return cmd
}
