// Package commentary narrates the outcome of a round for the player.
package commentary

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wfunc/trexbooth/logger"
	"github.com/wfunc/trexbooth/models"
)

var errEmptyCompletion = errors.New("empty completion")

// Completer sends a single-turn chat prompt and returns the generated text.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// FallbackObserver is told whenever the canned text replaces a generated one.
type FallbackObserver interface {
	IncCommentaryFallbacks()
}

// Generator never fails: when the completer is missing or errors it returns
// a templated sentence instead.
type Generator struct {
	completer Completer
	observer  FallbackObserver
}

func New(completer Completer, observer FallbackObserver) *Generator {
	return &Generator{completer: completer, observer: observer}
}

func (g *Generator) Commentary(ctx context.Context, humanScore, aiScore int, playerName string) string {
	text, err := g.generate(ctx, humanScore, aiScore, playerName)
	if err == nil {
		return text
	}

	logger.Log.Errorw("commentary generation failed, using fallback",
		"player", playerName,
		"error", err,
	)
	if g.observer != nil {
		g.observer.IncCommentaryFallbacks()
	}
	return Fallback(humanScore, aiScore, playerName)
}

func (g *Generator) generate(ctx context.Context, humanScore, aiScore int, playerName string) (string, error) {
	if g.completer == nil {
		return "", errors.New("no completer configured")
	}

	text, err := g.completer.Complete(ctx, Prompt(humanScore, aiScore, playerName))
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errEmptyCompletion
	}
	return text, nil
}

// Prompt builds the narrator instructions. The booth runs in Brazil, so the
// model is asked to answer in Brazilian Portuguese.
func Prompt(humanScore, aiScore int, playerName string) string {
	humanWon := models.HumanWon(humanScore, aiScore)

	return fmt.Sprintf(`Você é um narrador divertido e carismático em um stand de conferência de tecnologia com um jogo do dinossauro T-Rex.
Um jogador acabou de jogar contra um oponente de IA. Gere um comentário curto e divertido (2-3 frases no máximo).

Nome do jogador: %s
Pontuação do humano: %d
Pontuação da IA: %d
Humano venceu: %t

Regras:
- Se o humano venceu, parabenize com entusiasmo e mencione que ele ganhou um brinde!
- Se a IA venceu, seja brincalhão e encorajador - diga que as máquinas tiveram sorte dessa vez.
- Mantenha divertido, apropriado para conferência e energético.
- Use o nome do jogador.
- Não use hashtags ou emojis.
- Responda SEMPRE em português brasileiro.
- Máximo de 280 caracteres.`, playerName, humanScore, aiScore, humanWon)
}

// Fallback is the canned commentary for the same outcome.
func Fallback(humanScore, aiScore int, playerName string) string {
	if models.HumanWon(humanScore, aiScore) {
		return fmt.Sprintf("Incrível, %s! Você fez %d pontos e destruiu a IA com %d. "+
			"As máquinas não estão prontas para você, vá buscar seu brinde!", playerName, humanScore, aiScore)
	}
	return fmt.Sprintf("Foi por pouco, %s! A IA venceu com %d contra seus %d. "+
		"Os robôs tiveram sorte dessa vez, tente novamente!", playerName, aiScore, humanScore)
}
