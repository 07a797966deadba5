package commands

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/codexlabs/emotion-analyzer/orchestrator"
	"github.com/codexlabs/emotion-analyzer/server"
)

const shutdownGrace = 10 * time.Second

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the analysis API for the web recorder",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := orchestrator.NewSession(a.conf, a.classifier(), a.log)
			if err != nil {
				return err
			}
			defer sess.Close()

			access := a.log.WriterLevel(logrus.InfoLevel)
			defer access.Close()

			srv := &http.Server{
				Handler:           server.New(sess, a.conf, server.Options{Logger: a.log, AccessLog: access}).Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}
			ln, err := net.Listen("tcp", a.conf.Server.Addr)
			if err != nil {
				return err
			}
			a.log.WithFields(logrus.Fields{
				"addr":       ln.Addr().String(),
				"session_id": sess.ID,
			}).Info("emotion api listening")

			errc := make(chan error, 1)
			go func() { errc <- srv.Serve(ln) }()

			select {
			case err := <-errc:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			case <-cmd.Context().Done():
			}

			a.log.Info("shutting down")
			ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
			defer cancel()
			return srv.Shutdown(ctx)
		},
	}
	cmd.Flags().String("addr", "", "listen address (overrides server.addr)")
	_ = a.v.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))
	return cmd
}
