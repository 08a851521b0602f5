package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/wfunc/trexbooth/genie"
	"github.com/wfunc/trexbooth/logger"
	"github.com/wfunc/trexbooth/models"
	"github.com/wfunc/trexbooth/services"
)

const maxBodyBytes = 1 << 20

type Game interface {
	Register(ctx context.Context, name, email, company string) (int64, error)
	SubmitScore(ctx context.Context, playerID int64, playerName string, humanScore int) (*models.ScoreResult, error)
	Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error)
	Stats(ctx context.Context) (*models.Stats, error)
}

type Asker interface {
	Ask(ctx context.Context, question, conversationID string) (*genie.Answer, error)
}

type RegisterRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Company string `json:"company"`
}

type RegisterResponse struct {
	PlayerID int64  `json:"player_id"`
	Name     string `json:"name"`
}

type ScoreRequest struct {
	PlayerID   *int64 `json:"player_id"`
	PlayerName string `json:"player_name"`
	Score      *int   `json:"score"`
}

type GenieRequest struct {
	Question       string `json:"question"`
	ConversationID string `json:"conversation_id"`
}

type GenieError struct {
	Error string `json:"error"`
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return newInvalidRequestError("invalid request body")
	}
	return nil
}

// POST /api/register
func (s *GameServer) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	id, err := s.game.Register(r.Context(), req.Name, req.Email, req.Company)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, RegisterResponse{PlayerID: id, Name: req.Name})
}

// POST /api/score
func (s *GameServer) handleScore(w http.ResponseWriter, r *http.Request) {
	var req ScoreRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.PlayerID == nil || req.Score == nil || strings.TrimSpace(req.PlayerName) == "" {
		writeError(w, newInvalidRequestError("player_id, player_name and score are required"))
		return
	}
	if *req.Score > services.MaxScore {
		writeError(w, newInvalidRequestError(fmt.Sprintf("score must not exceed %d", services.MaxScore)))
		return
	}

	result, err := s.game.SubmitScore(r.Context(), *req.PlayerID, req.PlayerName, *req.Score)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// GET /api/leaderboard[?limit=N]
func (s *GameServer) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, newInvalidRequestError("limit must be a positive integer"))
			return
		}
		limit = n
	}

	entries, err := s.game.Leaderboard(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, entries)
}

// GET /api/stats
func (s *GameServer) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.game.Stats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// GET /metrics, polled by the Databricks Apps proxy.
func (s *GameServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// POST /api/genie/ask. Genie failures are reported in the body with a 200
// so the booth client can show them inline.
func (s *GameServer) handleGenieAsk(w http.ResponseWriter, r *http.Request) {
	var req GenieRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Question == "" {
		writeError(w, newInvalidRequestError("question is required"))
		return
	}

	if s.genie == nil {
		writeJSON(w, http.StatusOK, GenieError{Error: "Erro ao consultar o Genie: genie não configurado"})
		return
	}

	answer, err := s.genie.Ask(r.Context(), req.Question, req.ConversationID)
	if err != nil {
		logger.Log.Errorw("genie request failed", "error", err)
		writeJSON(w, http.StatusOK, GenieError{Error: fmt.Sprintf("Erro ao consultar o Genie: %v", err)})
		return
	}

	writeJSON(w, http.StatusOK, answer)
}
