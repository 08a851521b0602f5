// services/game_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/wfunc/trexbooth/logger"
	"github.com/wfunc/trexbooth/models"
	"github.com/wfunc/trexbooth/network"
)

const MaxLeaderboardLimit = 500

// MaxScore keeps scores inside the INTEGER columns and away from overflow in the opponent.
const MaxScore = math.MaxInt32

var ErrInvalidRequest = errors.New("invalid request")

type Store interface {
	UpsertPlayer(ctx context.Context, name, email, company string) (int64, error)
	RecordSession(ctx context.Context, playerID int64, humanScore, aiScore int, humanWon bool, commentary string) (int64, error)
	Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error)
	Stats(ctx context.Context) (*models.Stats, error)
}

type OpponentScorer interface {
	Score(humanScore int) int
}

type Commentator interface {
	Commentary(ctx context.Context, humanScore, aiScore int, playerName string) string
}

// Notifier receives live feed events. Delivery is best effort.
type Notifier interface {
	BroadcastToAll(event string, payload interface{}) error
}

type ScoreRecorder interface {
	RecordScore(humanWon bool)
}

type GameService struct {
	store      Store
	opponent   OpponentScorer
	commentary Commentator
	notifier   Notifier
	metrics    ScoreRecorder
}

// NewGameService wires the service. notifier and metrics may be nil.
func NewGameService(store Store, opponent OpponentScorer, commentary Commentator, notifier Notifier, metrics ScoreRecorder) *GameService {
	return &GameService{
		store:      store,
		opponent:   opponent,
		commentary: commentary,
		notifier:   notifier,
		metrics:    metrics,
	}
}

// PlayerRegistered 注册事件
type PlayerRegistered struct {
	PlayerID int64  `json:"player_id"`
	Name     string `json:"name"`
	Company  string `json:"company"`
}

// SessionRecorded 对局事件
type SessionRecorded struct {
	PlayerName string `json:"player_name"`
	HumanScore int    `json:"human_score"`
	AIScore    int    `json:"ai_score"`
	HumanWon   bool   `json:"human_won"`
	Commentary string `json:"commentary"`
}

// Register creates the player or updates the existing one with the same email.
func (s *GameService) Register(ctx context.Context, name, email, company string) (int64, error) {
	if strings.TrimSpace(name) == "" || strings.TrimSpace(email) == "" {
		return 0, fmt.Errorf("%w: name and email are required", ErrInvalidRequest)
	}

	id, err := s.store.UpsertPlayer(ctx, name, email, company)
	if err != nil {
		return 0, err
	}
	logger.Log.Infow("player registered", "player_id", id)

	s.notify(network.EventPlayerRegistered, PlayerRegistered{PlayerID: id, Name: name, Company: company})
	return id, nil
}

// SubmitScore plays one round against the simulated opponent and records it.
func (s *GameService) SubmitScore(ctx context.Context, playerID int64, playerName string, humanScore int) (*models.ScoreResult, error) {
	if humanScore < 0 {
		return nil, fmt.Errorf("%w: score must be non-negative", ErrInvalidRequest)
	}
	if humanScore > MaxScore {
		return nil, fmt.Errorf("%w: score must not exceed %d", ErrInvalidRequest, MaxScore)
	}

	aiScore := s.opponent.Score(humanScore)
	humanWon := models.HumanWon(humanScore, aiScore)
	text := s.commentary.Commentary(ctx, humanScore, aiScore, playerName)

	sessionID, err := s.store.RecordSession(ctx, playerID, humanScore, aiScore, humanWon, text)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.RecordScore(humanWon)
	}
	logger.Log.Infow("game session recorded",
		"session_id", sessionID,
		"player_id", playerID,
		"human_score", humanScore,
		"ai_score", aiScore,
		"human_won", humanWon,
	)

	s.notify(network.EventSessionRecorded, SessionRecorded{
		PlayerName: playerName,
		HumanScore: humanScore,
		AIScore:    aiScore,
		HumanWon:   humanWon,
		Commentary: text,
	})

	return &models.ScoreResult{
		SessionID:  sessionID,
		HumanScore: humanScore,
		AIScore:    aiScore,
		HumanWon:   humanWon,
		Commentary: text,
	}, nil
}

// Leaderboard clamps limit to (0, MaxLeaderboardLimit]; 0 or less means the store default.
func (s *GameService) Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	if limit > MaxLeaderboardLimit {
		limit = MaxLeaderboardLimit
	}
	entries, err := s.store.Leaderboard(ctx, limit)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []models.LeaderboardEntry{}
	}
	return entries, nil
}

func (s *GameService) Stats(ctx context.Context) (*models.Stats, error) {
	return s.store.Stats(ctx)
}

func (s *GameService) notify(event string, payload interface{}) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.BroadcastToAll(event, payload); err != nil {
		logger.Log.Warnw("failed to publish feed event", "event", event, "error", err)
	}
}
