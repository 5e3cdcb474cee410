// Package observer streams tick summaries to websocket clients.
package observer

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"hivectl.ai/internal/observerproto"
	"hivectl.ai/internal/sim/controller"
)

const outBuffer = 64

type Server struct {
	log zerolog.Logger

	upgrader websocket.Upgrader
	nextID   atomic.Uint64
	dropped  atomic.Uint64
	tick     atomic.Uint64

	mu   sync.Mutex
	subs map[string]*session
}

type session struct {
	id  string
	out chan []byte

	mu  sync.Mutex
	sub observerproto.SubscribeMsg
}

func NewServer(log zerolog.Logger) *Server {
	return &Server{
		log:  log,
		subs: map[string]*session{},
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // loopback only
		},
	}
}

// Mount registers the bootstrap and websocket endpoints on mux.
func (s *Server) Mount(mux *http.ServeMux) {
	mux.HandleFunc("/observer/bootstrap", s.BootstrapHandler())
	mux.HandleFunc("/observer/ws", s.WSHandler())
}

func (s *Server) Observers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// Dropped counts messages discarded because a client fell behind.
func (s *Server) Dropped() uint64 { return s.dropped.Load() }

func (s *Server) WriteTick(e controller.TickLogEntry) error {
	s.tick.Store(e.Tick)
	s.broadcast(func(sub observerproto.SubscribeMsg) any { return tickMsg(e, sub) })
	return nil
}

func (s *Server) WriteFailure(f controller.FailureEntry) error {
	msg := observerproto.FailureMsg{
		Type:            observerproto.TypeFailure,
		ProtocolVersion: observerproto.Version,
		Tick:            f.Tick,
		Kind:            f.Kind,
		Error:           f.Error,
	}
	s.broadcast(func(observerproto.SubscribeMsg) any { return msg })
	return nil
}

func (s *Server) broadcast(build func(observerproto.SubscribeMsg) any) {
	s.mu.Lock()
	sessions := make([]*session, 0, len(s.subs))
	for _, ss := range s.subs {
		sessions = append(sessions, ss)
	}
	s.mu.Unlock()

	for _, ss := range sessions {
		ss.mu.Lock()
		sub := ss.sub
		ss.mu.Unlock()

		b, err := json.Marshal(build(sub))
		if err != nil {
			s.log.Error().Err(err).Str("session", ss.id).Msg("encode observer message")
			continue
		}
		select {
		case ss.out <- b:
		default:
			s.dropped.Add(1)
		}
	}
}

func tickMsg(e controller.TickLogEntry, sub observerproto.SubscribeMsg) observerproto.TickMsg {
	msg := observerproto.TickMsg{
		Type:            observerproto.TypeTick,
		ProtocolVersion: observerproto.Version,
		Tick:            e.Tick,
		Agents:          e.Agents,
		Writes:          e.Writes,
		ConfigError:     e.ConfigError,
		Reclaimed:       e.Reclaimed,
		Skipped:         e.Skipped,
		Errors:          e.Errors,
	}
	for _, sp := range e.Spawns {
		if len(sub.Rooms) > 0 && !slices.Contains(sub.Rooms, sp.Room) {
			continue
		}
		msg.Spawns = append(msg.Spawns, observerproto.SpawnMsg{
			Room: sp.Room, Spawn: sp.Spawn, Name: sp.Name, Role: sp.Role, Code: sp.Code, Skip: sp.Skip,
		})
	}
	if sub.SkipActions {
		return msg
	}
	for _, a := range e.Actions {
		if len(sub.Agents) > 0 && !slices.Contains(sub.Agents, a.Agent) {
			continue
		}
		msg.Actions = append(msg.Actions, observerproto.ActionMsg{
			Agent: a.Agent, Kind: a.Kind, Outcome: a.Outcome, Code: a.Code, Injected: a.Injected,
		})
	}
	return msg
}

func (s *Server) BootstrapHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		resp := observerproto.BootstrapResponse{
			ProtocolVersion: observerproto.Version,
			Tick:            s.tick.Load(),
			Observers:       s.Observers(),
			Dropped:         s.Dropped(),
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(resp)
	}
}

func (s *Server) WSHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		// Handshake: must send SUBSCRIBE first.
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		sub, ok := parseSubscribe(raw)
		if !ok {
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected SUBSCRIBE"), time.Now().Add(time.Second))
			return
		}

		ss := &session{
			id:  fmt.Sprintf("O%d", s.nextID.Add(1)),
			out: make(chan []byte, outBuffer),
			sub: sub,
		}
		hello, _ := json.Marshal(observerproto.HelloMsg{
			Type:            observerproto.TypeHello,
			ProtocolVersion: observerproto.Version,
			SessionID:       ss.id,
			Tick:            s.tick.Load(),
		})
		ss.out <- hello

		s.mu.Lock()
		s.subs[ss.id] = ss
		s.mu.Unlock()
		defer func() {
			s.mu.Lock()
			delete(s.subs, ss.id)
			s.mu.Unlock()
		}()
		log := s.log.With().Str("session", ss.id).Logger()
		log.Debug().Str("remote", r.RemoteAddr).Msg("observer joined")

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Writer goroutine.
		writeErr := make(chan error, 1)
		go func() {
			for {
				select {
				case <-ctx.Done():
					writeErr <- ctx.Err()
					return
				case b := <-ss.out:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						writeErr <- err
						cancel()
						return
					}
				}
			}
		}()

		// Reader loop: allow SUBSCRIBE updates.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, raw, err := conn.ReadMessage()
			if err != nil {
				break
			}
			if sub, ok := parseSubscribe(raw); ok {
				ss.mu.Lock()
				ss.sub = sub
				ss.mu.Unlock()
			}
		}

		cancel()
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))

		// Best-effort wait for the writer to stop so it doesn't outlive conn.
		select {
		case <-writeErr:
		case <-time.After(500 * time.Millisecond):
		}
		log.Debug().Msg("observer left")
	}
}

func parseSubscribe(raw []byte) (observerproto.SubscribeMsg, bool) {
	var sub observerproto.SubscribeMsg
	if err := json.Unmarshal(raw, &sub); err != nil {
		return sub, false
	}
	if sub.Type != observerproto.TypeSubscribe || sub.ProtocolVersion != observerproto.Version {
		return sub, false
	}
	return sub, true
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
