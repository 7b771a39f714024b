package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/stompd/stomp"
	"github.com/stompd/stomp/broker"
)

func serveCmd() *cobra.Command {
	var addr, mode, httpAddr string
	var quiet bool
	//
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the broker",
		RunE: func(cmd *cobra.Command, args []string) error {
			var log stomp.Logger = stomp.ColorLogger
			if quiet {
				log = stomp.NilLogger
			}
			//
			switch broker.Mode(mode) {
			case broker.ModeThreadPerConn, broker.ModeReactor:
			default:
				return fmt.Errorf("unknown mode %q: want %q or %q", mode, broker.ModeThreadPerConn, broker.ModeReactor)
			}
			//
			srv := &broker.Server{
				Addr:   addr,
				Mode:   broker.Mode(mode),
				Logger: log,
			}
			if err := srv.ListenAndServe(); err != nil {
				return err
			}
			log.Infof("stompd: listening on %v (%v mode)", srv.Addr, srv.Mode)
			//
			var httpSrv *http.Server
			if httpAddr != "" {
				httpSrv = &http.Server{
					Addr:    httpAddr,
					Handler: srv.HTTPHandler(),
				}
				go func() {
					if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						log.Infof("stompd: http: %v", err)
					}
				}()
				log.Infof("stompd: websocket and metrics on %v", httpAddr)
			}
			//
			sig := make(chan os.Signal, 1)
			signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
			<-sig
			log.Infof("stompd: shutting down")
			if httpSrv != nil {
				_ = httpSrv.Close()
			}
			return srv.Shutdown()
		},
	}
	//
	cmd.Flags().StringVar(&addr, "addr", ":61613", "TCP listen address")
	cmd.Flags().StringVar(&mode, "mode", string(broker.ModeThreadPerConn), "scheduling mode: tpc or reactor")
	cmd.Flags().StringVar(&httpAddr, "http", "", "optional HTTP listen address for websocket transport and metrics")
	cmd.Flags().BoolVar(&quiet, "quiet", false, "disable logging")
	//
	return cmd
}
