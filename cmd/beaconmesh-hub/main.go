// beaconmesh-hub runs the shared-medium simulator: every datagram a client
// sends is rebroadcast to all other clients, like beacons on open air.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"beaconmesh/internal/pprofutil"
	"beaconmesh/internal/radiosim"
)

func main() {
	listen := pflag.String("listen", ":7447", "UDP address the hub listens on")
	pflag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := pprofutil.StartFromEnv(os.Stderr); err != nil {
		logger.Warn().Err(err).Msg("pprof not started")
	}

	hub := radiosim.NewHub(logger)
	if err := hub.ListenAndServe(ctx, *listen); err != nil {
		logger.Fatal().Err(err).Msg("hub failed")
	}
}
