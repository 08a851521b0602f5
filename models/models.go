// models/models.go
package models

import (
	"time"
)

// Player 玩家。email 唯一，重复注册时更新 name/company。
type Player struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	Email     string    `gorm:"size:255;not null;unique" json:"email"`
	Company   string    `gorm:"size:200" json:"company"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// GameSession 一局游戏记录，创建后不可修改
type GameSession struct {
	ID         int64     `gorm:"primaryKey" json:"id"`
	PlayerID   int64     `gorm:"not null;index" json:"player_id"`
	Player     *Player   `gorm:"foreignKey:PlayerID" json:"-"`
	HumanScore int       `gorm:"not null" json:"human_score"`
	AIScore    int       `gorm:"column:ai_score;not null" json:"ai_score"`
	HumanWon   bool      `gorm:"not null" json:"human_won"`
	Commentary string    `gorm:"column:llm_commentary;type:text" json:"commentary"`
	CreatedAt  time.Time `gorm:"not null;default:CURRENT_TIMESTAMP;index" json:"created_at"`
}

// HumanWon reports the outcome of a round. Ties go to the AI.
func HumanWon(humanScore, aiScore int) bool {
	return humanScore > aiScore
}

// LeaderboardEntry 排行榜条目
type LeaderboardEntry struct {
	Name      string    `json:"name"`
	Company   string    `json:"company"`
	Score     int       `json:"score"`
	AIScore   int       `gorm:"column:ai_score" json:"ai_score"`
	HumanWon  bool      `json:"human_won"`
	CreatedAt time.Time `json:"created_at"`
}

// Stats 汇总统计
type Stats struct {
	TotalPlayers int64   `json:"total_players"`
	TotalGames   int64   `json:"total_games"`
	HumanWins    int64   `json:"human_wins"`
	WinRate      float64 `json:"win_rate"`
	BestScore    int64   `json:"best_score"`
}

// ScoreResult is returned to the player after submitting a score.
type ScoreResult struct {
	SessionID  int64  `json:"-"`
	HumanScore int    `json:"human_score"`
	AIScore    int    `json:"ai_score"`
	HumanWon   bool   `json:"human_won"`
	Commentary string `json:"commentary"`
}
