// Package radiosim emulates the shared broadcast medium so engines can be
// exercised without radio hardware: a hub process accepts QUIC connections
// and rebroadcasts every datagram it receives to all other clients. QUIC
// datagrams are unreliable and unordered, the same delivery contract the
// real medium offers.
package radiosim

import (
	"context"
	"sync"

	quic "github.com/quic-go/quic-go"
	"github.com/rs/zerolog"
)

type Hub struct {
	log   zerolog.Logger
	mu    sync.Mutex
	conns map[*quic.Conn]struct{}
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		log:   log,
		conns: make(map[*quic.Conn]struct{}),
	}
}

// ListenAndServe accepts clients until ctx is cancelled. Every datagram
// from one client is fanned out to every other client; the sender does not
// hear its own broadcast, mirroring a radio that cannot receive while
// transmitting.
func (h *Hub) ListenAndServe(ctx context.Context, addr string) error {
	tlsConf, err := serverTLSConfig()
	if err != nil {
		return err
	}
	listener, err := quic.ListenAddr(addr, tlsConf, &quic.Config{EnableDatagrams: true})
	if err != nil {
		return err
	}
	defer listener.Close()
	h.log.Info().Str("addr", addr).Msg("radio hub listening")

	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	for {
		conn, err := listener.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		h.add(conn)
		go h.serve(ctx, conn)
	}
}

func (h *Hub) add(conn *quic.Conn) {
	h.mu.Lock()
	h.conns[conn] = struct{}{}
	n := len(h.conns)
	h.mu.Unlock()
	h.log.Info().Str("remote", conn.RemoteAddr().String()).Int("clients", n).Msg("client joined medium")
}

func (h *Hub) remove(conn *quic.Conn) {
	h.mu.Lock()
	delete(h.conns, conn)
	n := len(h.conns)
	h.mu.Unlock()
	h.log.Info().Str("remote", conn.RemoteAddr().String()).Int("clients", n).Msg("client left medium")
}

func (h *Hub) serve(ctx context.Context, conn *quic.Conn) {
	defer h.remove(conn)
	defer conn.CloseWithError(0, "hub closed")
	for {
		data, err := conn.ReceiveDatagram(ctx)
		if err != nil {
			return
		}
		h.broadcast(conn, data)
	}
}

func (h *Hub) broadcast(from *quic.Conn, data []byte) {
	h.mu.Lock()
	targets := make([]*quic.Conn, 0, len(h.conns))
	for c := range h.conns {
		if c != from {
			targets = append(targets, c)
		}
	}
	h.mu.Unlock()
	for _, c := range targets {
		// Datagram loss is part of the medium being simulated.
		_ = c.SendDatagram(data)
	}
}
