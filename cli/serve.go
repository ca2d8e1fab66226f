package cli

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"glacier/server"
)

func (a *app) serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve model runs to websocket clients",
		Long: `serve accepts websocket connections on /ws. Clients set parameters,
push forcing samples and request runs and sweeps; replies are JSON, or
MessagePack when the client connects with ?format=msgpack.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd)
		},
	}
	addOptions(cmd.Flags(), modelOptions)
	cmd.Flags().String("addr", "", "listen address")
	cmd.Flags().Int("window", 0, "forcing samples kept per connection")
	return cmd
}

func (a *app) serve(cmd *cobra.Command) error {
	cfg := a.cfg
	s := cfg.NewSite()
	tgt, err := loadTarget(cfg, s)
	if err != nil {
		return err
	}

	dt := cfg.Forcing.Dt
	if dt <= 0 {
		dt = cfg.Forcing.Step
	}
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
	srv := server.NewServer(server.Options{
		Addr:    cfg.Server.Addr,
		Site:    s.Name,
		Params:  cfg.Model,
		Workers: cfg.Workers,
		Domain:  tgt.domain,
		Dt:      dt,
		Window:  cfg.Server.Window,
	}, upgrader, server.NewMetrics())
	return srv.Serve(cmd.Context())
}
