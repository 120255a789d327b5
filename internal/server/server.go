// Copyright 2021 Clayton Craft <clayton@craftyguy.net>
// SPDX-License-Identifier: GPL-3.0-or-later

package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/user"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"gitlab.com/postmarketOS/gnss_cloud/internal/geo"
	"gitlab.com/postmarketOS/gnss_cloud/internal/nmea"
	"gitlab.com/postmarketOS/gnss_cloud/internal/pool"
	"gitlab.com/postmarketOS/gnss_cloud/internal/scene"
)

const writeTimeout = 10 * time.Second

// Frames is what the server exposes to renderers.
type Frames interface {
	Frame() (scene.Frame, error)
	Summary() (geo.Summary, error)
	Stats() nmea.Stats
}

type Server struct {
	listen    string
	socket    string
	sockGroup string
	connPool  *pool.Pool
	frames    Frames
	upgrader  websocket.Upgrader
	logger    zerolog.Logger

	// guards sock
	mu   sync.Mutex
	sock net.Listener
}

// Create a new Server. When socket is set the server listens on that unix
// socket, owned by sockGroup, instead of the TCP address listen. Frames
// broadcast on connPool are forwarded to every /stream client.
func New(listen, socket, sockGroup string, frames Frames, connPool *pool.Pool) (s *Server) {
	s = &Server{
		listen:    listen,
		socket:    socket,
		sockGroup: sockGroup,
		frames:    frames,
		connPool:  connPool,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 64 * 1024,
			// renderers are served from arbitrary local origins
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: log.With().Str("module", "server").Logger(),
	}

	return
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/frame", s.serveFrame)
	r.Get("/summary", s.serveSummary)
	r.Get("/stats", s.serveStats)
	r.Get("/stream", s.serveStream)
	return r
}

func (s *Server) Start() (err error) {
	var sock net.Listener
	if s.socket != "" {
		sock, err = s.listenUnix()
	} else {
		sock, err = net.Listen("tcp", s.listen)
	}
	if err != nil {
		return fmt.Errorf("server.Start: %w", err)
	}
	defer sock.Close()

	s.mu.Lock()
	s.sock = sock
	s.mu.Unlock()

	s.logger.Info().Str("addr", sock.Addr().String()).Msg("accepting renderer connections")
	err = http.Serve(sock, s.Handler())
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return fmt.Errorf("server.Start: %w", err)
}

func (s *Server) listenUnix() (sock net.Listener, err error) {
	if err = os.RemoveAll(s.socket); err != nil {
		return
	}

	sock, err = net.Listen("unix", s.socket)
	if err != nil {
		return
	}

	if err = s.chownSocket(); err != nil {
		sock.Close()
		sock = nil
	}
	return
}

func (s *Server) chownSocket() error {
	if err := os.Chmod(s.socket, 0660); err != nil {
		return err
	}
	if s.sockGroup == "" {
		return nil
	}

	group, err := user.LookupGroup(s.sockGroup)
	if err != nil {
		return err
	}

	gid, err := strconv.ParseInt(group.Gid, 10, 32)
	if err != nil {
		return err
	}

	return os.Chown(s.socket, -1, int(gid))
}

// Close stops accepting connections.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sock == nil {
		return nil
	}
	return s.sock.Close()
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, geo.ErrNoFixes) {
		status = http.StatusNotFound
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) serveFrame(w http.ResponseWriter, r *http.Request) {
	f, err := s.frames.Frame()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (s *Server) serveSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.frames.Summary()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) serveStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.frames.Stats())
}

// Routine run for each renderer connection
func (s *Server) serveStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	c := pool.NewClient()
	s.connPool.Register <- c

	// renderers only listen; a read error means the peer went away
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				s.connPool.Unregister <- c
				return
			}
		}
	}()

	if f, err := s.frames.Frame(); err == nil {
		if msg, err := json.Marshal(f); err == nil {
			if !s.write(conn, c, msg) {
				return
			}
		}
	}

	for msg := range c.Send {
		if !s.write(conn, c, msg) {
			return
		}
	}
}

func (s *Server) write(conn *websocket.Conn, c *pool.Client, msg []byte) bool {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
		s.logger.Debug().Err(err).Str("client", c.ID.String()).Msg("write failed")
		s.connPool.Unregister <- c
		return false
	}
	return true
}
