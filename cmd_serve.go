package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/PixPMusic/mixerconf/internal/api"
	"github.com/PixPMusic/mixerconf/internal/session"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the configuration session over HTTP",
		Long: `Run the session continuously, watching for MIDI port changes, and
expose it as a JSON API. Use --emulate to serve without hardware.`,
		Example: `  mixerconf serve --addr 127.0.0.1:8710`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if handleHelpArg(cmd, args) {
				return nil
			}
			if addr == "" {
				addr = a.cfg.HTTPAddr
			}
			return runServe(cmd.Context(), a, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config)")
	return cmd
}

func runServe(ctx context.Context, a *app, addr string) error {
	status := api.NewStatus(a.model)
	c, err := a.connect(ctx, status)
	if err != nil {
		return err
	}
	defer c.Close()
	// runs before Close so no refresh touches a released host
	defer c.watch(ctx, a.cfg.PollInterval.Duration)()

	srv := api.NewServer(c.loop, c.host, a.model, status)
	srv.Version = version
	h := &http.Server{Addr: addr, Handler: srv}

	errc := make(chan error, 1)
	go func() { errc <- h.ListenAndServe() }()
	log.Infof("Serving on http://%s", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()
	if err := h.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// watch polls the host's ports in the background. The returned func stops
// polling and waits until the last refresh has finished.
func (c *conn) watch(ctx context.Context, interval time.Duration) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		session.Watch(ctx, c.host, c.loop, interval)
	}()
	return func() {
		cancel()
		<-done
	}
}
