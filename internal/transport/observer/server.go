// Package observer streams grid frames to read-only websocket clients.
package observer

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"cellworld.sim/internal/observerproto"
	"cellworld.sim/internal/sim/encoding"
	"cellworld.sim/internal/sim/world"
)

const balanceLevels = 256

// Hub is a world.FrameSink. It keeps only the newest frame per world and per
// client, so a slow observer never holds back the simulation.
type Hub struct {
	runID  string
	worlds []*world.World
	log    *log.Logger

	upgrader websocket.Upgrader

	mu      sync.Mutex
	latest  map[string]world.Frame
	clients map[*client]struct{}
}

func NewHub(runID string, worlds []*world.World, logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Hub{
		runID:  runID,
		worlds: worlds,
		log:    logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // loopback only, see isLoopbackRemote
		},
		latest:  map[string]world.Frame{},
		clients: map[*client]struct{}{},
	}
}

// PublishFrame is called from a world's tick barrier.
func (h *Hub) PublishFrame(f world.Frame) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.latest[f.WorldID] = f
	for c := range h.clients {
		c.offer(f)
	}
}

func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) info() []observerproto.WorldInfo {
	out := make([]observerproto.WorldInfo, 0, len(h.worlds))
	for _, w := range h.worlds {
		cfg := w.Config()
		out = append(out, observerproto.WorldInfo{
			ID:     cfg.ID,
			Width:  cfg.Width,
			Height: cfg.Height,
			NLev:   cfg.Params.NLev,
			Seed:   cfg.Seed,
			Tick:   w.GetUpdate(),
		})
	}
	return out
}

func (h *Hub) BootstrapHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(observerproto.BootstrapResponse{
			ProtocolVersion: observerproto.Version,
			RunID:           h.runID,
			Worlds:          h.info(),
		})
	}
}

func (h *Hub) WSHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		conn, err := h.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		// Handshake: must send SUBSCRIBE first.
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		sub, ok := readSubscribe(conn)
		if !ok {
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected SUBSCRIBE"), time.Now().Add(time.Second))
			return
		}

		c := &client{
			id:      uuid.NewString(),
			sub:     sub,
			wake:    make(chan struct{}, 1),
			pending: map[string]world.Frame{},
			sent:    map[string]uint64{},
		}
		// Register before HELLO so no frame published after it is missed.
		h.mu.Lock()
		h.clients[c] = struct{}{}
		for _, f := range h.latest {
			c.offer(f)
		}
		h.mu.Unlock()
		defer func() {
			h.mu.Lock()
			delete(h.clients, c)
			h.mu.Unlock()
			h.log.Printf("observer %s: left", c.id)
		}()

		hello, _ := json.Marshal(observerproto.HelloMsg{
			Type:            observerproto.TypeHello,
			ProtocolVersion: observerproto.Version,
			SessionID:       c.id,
			RunID:           h.runID,
			Worlds:          h.info(),
		})
		_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, hello); err != nil {
			return
		}
		h.log.Printf("observer %s: joined worlds=%v every=%d", c.id, sub.WorldIDs, sub.EveryTicks)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()
		writeErr := make(chan error, 1)
		go func() { writeErr <- c.writeLoop(ctx, conn) }()

		// Reader loop: allow SUBSCRIBE updates.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			sub, ok := readSubscribe(conn)
			if !ok {
				break
			}
			c.mu.Lock()
			c.sub = sub
			c.mu.Unlock()
		}

		cancel()
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))

		// Best-effort wait for the writer to stop so it doesn't outlive conn.
		select {
		case <-writeErr:
		case <-time.After(500 * time.Millisecond):
		}
	}
}

// readSubscribe returns false on read errors and on malformed messages.
func readSubscribe(conn *websocket.Conn) (observerproto.SubscribeMsg, bool) {
	var sub observerproto.SubscribeMsg
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return sub, false
	}
	if err := json.Unmarshal(msg, &sub); err != nil {
		return sub, false
	}
	if sub.Type != observerproto.TypeSubscribe || sub.ProtocolVersion != observerproto.Version {
		return sub, false
	}
	if sub.EveryTicks < 1 {
		sub.EveryTicks = 1
	}
	return sub, true
}

type client struct {
	id   string
	wake chan struct{}

	mu      sync.Mutex
	sub     observerproto.SubscribeMsg
	pending map[string]world.Frame
	sent    map[string]uint64 // world id -> tick+1 of the last frame sent
}

// offer replaces any unsent frame of the same world.
func (c *client) offer(f world.Frame) {
	c.mu.Lock()
	c.pending[f.WorldID] = f
	c.mu.Unlock()
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// take drains pending frames the subscription wants, in world id order.
func (c *client) take() ([]world.Frame, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []world.Frame
	for id, f := range c.pending {
		delete(c.pending, id)
		if len(c.sub.WorldIDs) > 0 && !slices.Contains(c.sub.WorldIDs, id) {
			continue
		}
		if last, ok := c.sent[id]; ok && f.Tick+1 < last+uint64(c.sub.EveryTicks) {
			continue
		}
		c.sent[id] = f.Tick + 1
		out = append(out, f)
	}
	slices.SortFunc(out, func(a, b world.Frame) int { return strings.Compare(a.WorldID, b.WorldID) })
	return out, c.sub.Balance
}

func (c *client) writeLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.wake:
		}
		frames, balance := c.take()
		for _, f := range frames {
			b, err := json.Marshal(EncodeFrame(f, balance))
			if err != nil {
				return err
			}
			_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return err
			}
		}
	}
}

// EncodeFrame builds the wire message for f.
func EncodeFrame(f world.Frame, balance bool) observerproto.FrameMsg {
	m := observerproto.FrameMsg{
		Type:            observerproto.TypeFrame,
		ProtocolVersion: observerproto.Version,
		WorldID:         f.WorldID,
		Tick:            f.Tick,
		Width:           f.Width,
		Height:          f.Height,
		Encoding:        encoding.KinRLE,
		Kin:             encoding.EncodeRLE(f.Kin),
	}
	if balance {
		q, scale := encoding.Quantize(f.Balance, balanceLevels)
		m.Balance = encoding.EncodeRLE(q)
		m.BalanceScale = scale
	}
	return m
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
