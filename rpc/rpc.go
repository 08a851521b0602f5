package rpc

import (
	"context"
	"errors"
	"net"
	"net/rpc"

	"github.com/wfunc/trexbooth/logger"
	"github.com/wfunc/trexbooth/models"
)

// Server manages the RPC listener.
type Server struct {
	listener net.Listener
	address  string
	rpc      *rpc.Server
}

// NewServer listens on addr and registers service under its type name.
func NewServer(addr string, service interface{}) (*Server, error) {
	srv := rpc.NewServer()
	if err := srv.Register(service); err != nil {
		return nil, err
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		address:  listener.Addr().String(),
		rpc:      srv,
	}, nil
}

func (s *Server) Addr() string {
	return s.address
}

// Start begins listening for RPC requests.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.address)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go s.rpc.ServeConn(conn)
	}
}

// Stop closes the RPC listener.
func (s *Server) Stop() {
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
	}
}

type Scoreboard interface {
	Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error)
	Stats(ctx context.Context) (*models.Stats, error)
}

// ScoreService is the struct that exposes RPC methods.
type ScoreService struct {
	scores Scoreboard
}

func NewScoreService(scores Scoreboard) *ScoreService {
	return &ScoreService{scores: scores}
}

type LeaderboardArgs struct {
	Limit int
}

type LeaderboardReply struct {
	Entries []models.LeaderboardEntry
}

// Leaderboard must follow the net/rpc signature: exported method, exported
// arguments, second argument is a pointer, return type is error.
func (s *ScoreService) Leaderboard(args *LeaderboardArgs, reply *LeaderboardReply) error {
	entries, err := s.scores.Leaderboard(context.Background(), args.Limit)
	if err != nil {
		return err
	}
	reply.Entries = entries
	return nil
}

// Stats ignores its argument.
func (s *ScoreService) Stats(_ int, reply *models.Stats) error {
	stats, err := s.scores.Stats(context.Background())
	if err != nil {
		return err
	}
	*reply = *stats
	return nil
}
