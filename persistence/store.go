// persistence/store.go
package persistence

import (
	"context"
	"fmt"
	"math"
	"time"

	"gorm.io/gorm"

	"github.com/wfunc/trexbooth/credentials"
	"github.com/wfunc/trexbooth/logger"
	"github.com/wfunc/trexbooth/models"
)

const (
	DefaultLeaderboardLimit = 50

	maxConnectAttempts = 2
)

// Store persists players and game sessions. Every operation opens its own
// connection with the cached credential and closes it afterwards; a failed
// connect is retried exactly once with a refreshed credential.
type Store struct {
	creds    *credentials.Provider
	open     Opener
	observer ConnectObserver
}

func NewStore(creds *credentials.Provider, open Opener, observer ConnectObserver) *Store {
	return &Store{creds: creds, open: open, observer: observer}
}

func (s *Store) connect(ctx context.Context) (*gorm.DB, error) {
	var lastErr error
	for attempt := 1; attempt <= maxConnectAttempts; attempt++ {
		cred, err := s.credential(ctx, attempt)
		if err != nil {
			return nil, err
		}

		db, err := s.open(ctx, cred)
		if err == nil {
			s.observe(OutcomeOK)
			return db, nil
		}

		outcome := classifyConnectError(err)
		s.observe(outcome)
		logger.Log.Warnw("database connection failed",
			"attempt", attempt,
			"reason", outcome,
			"error", err,
		)
		lastErr = err
	}
	return nil, &ConnectError{Attempts: maxConnectAttempts, Err: lastErr}
}

// credential returns the cached credential on the first attempt and a fresh
// one on the retry.
func (s *Store) credential(ctx context.Context, attempt int) (credentials.Credential, error) {
	if attempt == 1 {
		return s.creds.Get(ctx)
	}
	logger.Log.Info("refreshing database credential and retrying")
	return s.creds.Refresh(ctx)
}

func (s *Store) observe(outcome string) {
	if s.observer != nil {
		s.observer.ObserveConnectAttempt(outcome)
	}
}

func (s *Store) withConn(ctx context.Context, fn func(db *gorm.DB) error) error {
	db, err := s.connect(ctx)
	if err != nil {
		return err
	}
	defer release(db)

	return fn(db.WithContext(ctx))
}

// read runs fn outside a transaction.
func (s *Store) read(ctx context.Context, fn func(db *gorm.DB) error) error {
	return s.withConn(ctx, fn)
}

// write runs fn in a transaction that commits when fn returns nil.
func (s *Store) write(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return s.withConn(ctx, func(db *gorm.DB) error {
		return db.Transaction(fn)
	})
}

func release(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		logger.Log.Warnw("failed to close database connection", "error", err)
	}
}

// InitSchema 自动迁移表结构. AutoMigrate also adds the players_email_key
// unique constraint when an older players table lacks it.
func (s *Store) InitSchema(ctx context.Context) error {
	return s.withConn(ctx, func(db *gorm.DB) error {
		if err := db.AutoMigrate(&models.Player{}, &models.GameSession{}); err != nil {
			return fmt.Errorf("migrate schema: %w", err)
		}
		return nil
	})
}

// UpsertPlayer 使用UPSERT操作. Returns the id of the new or existing row.
func (s *Store) UpsertPlayer(ctx context.Context, name, email, company string) (int64, error) {
	var id int64
	err := s.write(ctx, func(tx *gorm.DB) error {
		return tx.Raw(`
			INSERT INTO players (name, email, company, created_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (email)
			DO UPDATE SET name = excluded.name, company = excluded.company
			RETURNING id`,
			name, email, company, time.Now().UTC(),
		).Scan(&id).Error
	})
	if err != nil {
		return 0, fmt.Errorf("upsert player %s: %w", email, err)
	}
	return id, nil
}

// RecordSession 保存游戏记录
func (s *Store) RecordSession(ctx context.Context, playerID int64, humanScore, aiScore int, humanWon bool, commentary string) (int64, error) {
	if humanScore < 0 {
		return 0, ErrInvalidScore
	}
	if humanWon != models.HumanWon(humanScore, aiScore) {
		return 0, ErrInconsistentOutcome
	}

	session := models.GameSession{
		PlayerID:   playerID,
		HumanScore: humanScore,
		AIScore:    aiScore,
		HumanWon:   humanWon,
		Commentary: commentary,
		CreatedAt:  time.Now().UTC(),
	}
	err := s.write(ctx, func(tx *gorm.DB) error {
		return tx.Omit("Player").Create(&session).Error
	})
	if err != nil {
		if isForeignKeyViolation(err) {
			return 0, ErrPlayerNotFound
		}
		return 0, fmt.Errorf("record session for player %d: %w", playerID, err)
	}
	return session.ID, nil
}

// Leaderboard returns the best sessions by human score. Equal scores keep
// the order they were played in.
func (s *Store) Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = DefaultLeaderboardLimit
	}

	entries := make([]models.LeaderboardEntry, 0, limit)
	err := s.read(ctx, func(db *gorm.DB) error {
		return db.Table("game_sessions AS gs").
			Select("p.name, COALESCE(p.company, '') AS company, gs.human_score AS score, gs.ai_score, gs.human_won, gs.created_at").
			Joins("JOIN players p ON p.id = gs.player_id").
			Order("gs.human_score DESC, gs.created_at ASC, gs.id ASC").
			Limit(limit).
			Scan(&entries).Error
	})
	if err != nil {
		return nil, fmt.Errorf("load leaderboard: %w", err)
	}
	return entries, nil
}

// Stats 汇总统计
func (s *Store) Stats(ctx context.Context) (*models.Stats, error) {
	var stats models.Stats
	err := s.read(ctx, func(db *gorm.DB) error {
		if err := db.Model(&models.Player{}).Count(&stats.TotalPlayers).Error; err != nil {
			return err
		}
		if err := db.Model(&models.GameSession{}).Count(&stats.TotalGames).Error; err != nil {
			return err
		}
		if err := db.Model(&models.GameSession{}).Where("human_won = ?", true).Count(&stats.HumanWins).Error; err != nil {
			return err
		}
		return db.Model(&models.GameSession{}).
			Select("COALESCE(MAX(human_score), 0)").
			Row().
			Scan(&stats.BestScore)
	})
	if err != nil {
		return nil, fmt.Errorf("load stats: %w", err)
	}

	stats.WinRate = WinRate(stats.HumanWins, stats.TotalGames)
	return &stats, nil
}

// WinRate is wins/games as a percentage rounded to one decimal; 0 without games.
func WinRate(wins, games int64) float64 {
	if games == 0 {
		return 0
	}
	return math.Round(float64(wins)/float64(games)*1000) / 10
}
