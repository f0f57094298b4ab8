// beaconmesh-node is an interactive chat node on the simulated medium.
// It joins channels, sends lines typed as "channel text", and prints
// delivered messages, presence sightings and control events.
package main

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"beaconmesh/internal/debuglog"
	"beaconmesh/internal/engine"
	"beaconmesh/internal/mesh"
	"beaconmesh/internal/pprofutil"
	"beaconmesh/internal/radiosim"
	"beaconmesh/internal/telemetry"
)

func main() {
	hubAddr := pflag.String("hub", "127.0.0.1:7447", "radio hub address")
	senderID := pflag.String("id", "", "sender id, at most 4 bytes on the wire")
	nick := pflag.String("nick", "anon", "display name")
	channels := pflag.StringSlice("channels", []string{"general"}, "channels to join")
	metricsAddr := pflag.String("metrics", "", "serve prometheus metrics on this address")
	rssi := pflag.Int("rssi", -60, "simulated signal strength in dBm")
	pflag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()
	debuglog.SetLogger(logger)
	if err := pprofutil.StartFromEnv(os.Stderr); err != nil {
		logger.Warn().Err(err).Msg("pprof not started")
	}

	id := *senderID
	if id == "" {
		id = defaultSenderID()
	}

	ctx := context.Background()
	rad, err := radiosim.Dial(ctx, radiosim.Options{HubAddr: *hubAddr, RSSI: *rssi, Log: logger})
	if err != nil {
		logger.Fatal().Err(err).Msg("hub unreachable")
	}
	defer rad.Close()

	ui := &console{log: logger, lastSeen: make(map[string]time.Time)}
	eng, err := engine.New(engine.Options{
		SenderID: id,
		Nickname: *nick,
		Radio:    rad,
		Upstream: ui,
		Peers:    ui,
		Logger:   logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("engine setup failed")
	}
	for _, ch := range *channels {
		hash := eng.JoinChannel(ch)
		logger.Info().Str("channel", ch).Uint16("hash", hash).Msg("joined")
	}
	if err := eng.Start(); err != nil {
		logger.Fatal().Err(err).Msg("engine start failed")
	}
	defer eng.Stop()

	if *metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", telemetry.Handler())
		go func() {
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				logger.Error().Err(err).Msg("metrics server failed")
			}
		}()
		logger.Info().Str("addr", *metricsAddr).Msg("metrics served")
	}

	logger.Info().Str("id", id).Str("nick", *nick).Msg("node up; type 'channel text', /join, /leave, /invite, /delete or /quit")
	repl(eng, id, *nick, logger)
}

func repl(eng *engine.Engine, id, nick string, logger zerolog.Logger) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			if !command(eng, line, logger) {
				return
			}
			continue
		}
		channelID, text, ok := strings.Cut(line, " ")
		if !ok {
			logger.Warn().Msg("usage: channel text")
			continue
		}
		if !eng.Joined(channelID) {
			logger.Warn().Str("channel", channelID).Msg("not joined")
			continue
		}
		eng.Send(mesh.New(channelID, id, nick, text))
	}
}

// command handles a /-prefixed REPL line; returns false to quit.
func command(eng *engine.Engine, line string, logger zerolog.Logger) bool {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit":
		return false
	case "/join":
		if len(fields) == 2 {
			hash := eng.JoinChannel(fields[1])
			logger.Info().Str("channel", fields[1]).Uint16("hash", hash).Msg("joined")
		}
	case "/leave":
		if len(fields) == 2 {
			eng.LeaveChannel(fields[1])
			logger.Info().Str("channel", fields[1]).Msg("left")
		}
	case "/invite":
		if len(fields) == 3 {
			eng.SendInvite(fields[1], fields[2])
		}
	case "/delete":
		if len(fields) == 2 {
			eng.SendDeletion(fields[1])
		}
	default:
		logger.Warn().Str("cmd", fields[0]).Msg("unknown command")
	}
	return true
}

// console is both the upstream router and the peer tracker for the demo:
// messages go to stdout, presence sightings are deduplicated so the
// repeating medium does not flood the terminal.
type console struct {
	log      zerolog.Logger
	mu       sync.Mutex
	lastSeen map[string]time.Time
}

func (c *console) OnMeshMessageReceived(msg mesh.Message, rssi int) {
	fmt.Printf("[%s] <%s> %s  (rssi %d)\n", msg.ChannelID, msg.SenderID, msg.Content, rssi)
}

func (c *console) OnChannelInviteReceived(hash uint16, name, senderID string) {
	c.log.Info().Str("from", senderID).Str("name", name).Uint16("hash", hash).Msg("channel invite")
}

func (c *console) OnChannelDeletionReceived(name, senderID string) {
	c.log.Info().Str("from", senderID).Str("name", name).Msg("channel deleted")
}

func (c *console) ResolveChannelByHash(uint16) (string, bool) {
	return "", false
}

func (c *console) OnPeerSeen(peerID string, rssi int) {
	c.mu.Lock()
	last := c.lastSeen[peerID]
	now := time.Now()
	c.lastSeen[peerID] = now
	c.mu.Unlock()
	if now.Sub(last) > 30*time.Second {
		c.log.Info().Str("peer", peerID).Int("rssi", rssi).Msg("peer nearby")
	}
}

func defaultSenderID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return fmt.Sprintf("%04x", os.Getpid()&0xFFFF)
	}
	if len(host) > 4 {
		host = host[:4]
	}
	return host
}
