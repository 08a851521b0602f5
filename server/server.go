package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/wfunc/trexbooth/logger"
	"github.com/wfunc/trexbooth/monitor"
	"github.com/wfunc/trexbooth/network"
	gameserver_rpc "github.com/wfunc/trexbooth/rpc"
	"github.com/wfunc/trexbooth/session"
)

const (
	defaultHeartbeat = 30 * time.Second

	readTimeout  = 15 * time.Second
	writeTimeout = 60 * time.Second
)

type Options struct {
	Address    string
	RPCAddress string
	StaticDir  string
	Heartbeat  time.Duration

	Game     Game
	Genie    Asker
	Sessions *session.Manager
	Monitor  *monitor.Monitor
}

type GameServer struct {
	httpServer     *http.Server
	upgrader       websocket.Upgrader
	game           Game
	genie          Asker
	sessionManager *session.Manager
	monitor        *monitor.Monitor
	rpcServer      *gameserver_rpc.Server
	staticDir      string
	heartbeat      time.Duration
	shutdownOnce   sync.Once
	shutdownChan   chan struct{}
}

// NewGameServer builds the HTTP server and, when RPCAddress is set, starts
// listening for RPC clients.
func NewGameServer(opts Options) (*GameServer, error) {
	s := &GameServer{
		game:           opts.Game,
		genie:          opts.Genie,
		sessionManager: opts.Sessions,
		monitor:        opts.Monitor,
		staticDir:      opts.StaticDir,
		heartbeat:      opts.Heartbeat,
		shutdownChan:   make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // 允许所有跨域请求
			},
		},
	}
	if s.sessionManager == nil {
		s.sessionManager = session.NewManager()
	}
	if s.heartbeat <= 0 {
		s.heartbeat = defaultHeartbeat
	}

	s.httpServer = &http.Server{
		Addr:         opts.Address,
		Handler:      s.Handler(),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}

	// 初始化RPC服务器
	if opts.RPCAddress != "" {
		rpcServer, err := gameserver_rpc.NewServer(opts.RPCAddress, gameserver_rpc.NewScoreService(opts.Game))
		if err != nil {
			return nil, err
		}
		s.rpcServer = rpcServer
	}

	return s, nil
}

func (s *GameServer) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(recovery)
	r.Use(logging(s.monitor))

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/register", s.handleRegister).Methods(http.MethodPost)
	api.HandleFunc("/score", s.handleScore).Methods(http.MethodPost)
	api.HandleFunc("/leaderboard", s.handleLeaderboard).Methods(http.MethodGet)
	api.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)
	api.HandleFunc("/genie/ask", s.handleGenieAsk).Methods(http.MethodPost)

	r.HandleFunc("/metrics", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/ws/feed", s.handleWebSocket).Methods(http.MethodGet)

	if info, err := os.Stat(s.staticDir); err == nil && info.IsDir() {
		r.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(http.Dir(s.staticDir))))
		r.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			http.ServeFile(w, r, filepath.Join(s.staticDir, "index.html"))
		}).Methods(http.MethodGet)
	} else if s.staticDir != "" {
		logger.Log.Warnw("static directory not found, client will not be served", "dir", s.staticDir)
	}

	return r
}

func (s *GameServer) Start() error {
	if s.rpcServer != nil {
		go s.rpcServer.Start()
	}

	logger.Log.Infof("Game server listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, disconnects feed watchers and waits for
// in-flight requests until ctx expires.
func (s *GameServer) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(func() { close(s.shutdownChan) })
	if s.rpcServer != nil {
		s.rpcServer.Stop()
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *GameServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}
	s.handleConnection(network.NewWSConnection(conn), r.URL.Query().Get("screen"))
}

// handleConnection registers a feed watcher and blocks until it disconnects.
// Watchers only receive; anything they send just counts as activity.
func (s *GameServer) handleConnection(conn network.Connection, screen string) {
	conn.SetHeartbeat(s.heartbeat)
	sess := session.NewSession(uuid.New().String(), conn)
	sess.Screen = screen
	s.sessionManager.Add(sess)
	s.monitor.IncFeedWatchers()

	logger.Log.Infof("New feed watcher from %s, session ID: %s", conn.RemoteAddr(), sess.GetID())

	done := make(chan struct{})
	defer func() {
		close(done)
		logger.Log.Infof("Feed watcher disconnected from %s, session ID: %s", conn.RemoteAddr(), sess.GetID())
		s.sessionManager.Remove(sess.GetID())
		s.monitor.DecFeedWatchers()
		conn.Close()
	}()

	go s.keepAlive(conn, done)

	for {
		if _, err := conn.ReadFrame(); err != nil {
			return
		}
		sess.Touch()
	}
}

func (s *GameServer) keepAlive(conn network.Connection, done <-chan struct{}) {
	ticker := time.NewTicker(s.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-s.shutdownChan:
			conn.Close()
			return
		case <-ticker.C:
			if err := conn.Ping(); err != nil {
				conn.Close()
				return
			}
		}
	}
}
