// Package trivia runs the quiz game session behind the trivia modal.
package trivia

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/oni-labs/go-buddy/pkg/gateway"
)

var (
	// ErrNoQuestion reports an answer with no question on screen.
	ErrNoQuestion = errors.New("trivia: no question loaded")
	// ErrAlreadyAnswered reports a second answer to the same question.
	ErrAlreadyAnswered = errors.New("trivia: question already answered")
)

// Source fetches questions, typically the backend gateway.
type Source interface {
	TriviaQuestion(ctx context.Context, topic string) (*gateway.TriviaQuestion, error)
}

// Result is the outcome of answering one question.
type Result struct {
	Correct       bool
	CorrectAnswer string
	FunFact       string
	Score         int
}

// Game is one quiz session: a topic, a running score, and the question
// currently on screen. Each question takes exactly one answer.
type Game struct {
	mu       sync.Mutex
	source   Source
	logger   *slog.Logger
	topic    string
	score    int
	current  *gateway.TriviaQuestion
	answered bool
}

// NewGame creates an idle session backed by source.
func NewGame(source Source) *Game {
	return &Game{
		source: source,
		logger: slog.Default().With("component", "trivia"),
	}
}

// Start begins a fresh session on topic, resetting the score, and
// fetches the first question.
func (g *Game) Start(ctx context.Context, topic string) (*gateway.TriviaQuestion, error) {
	g.mu.Lock()
	g.topic = topic
	g.score = 0
	g.current = nil
	g.answered = false
	g.mu.Unlock()

	g.logger.Info("trivia started", "topic", topic)
	return g.NextQuestion(ctx)
}

// NextQuestion fetches and installs the next question. A fetch failure
// leaves the previous question in place.
func (g *Game) NextQuestion(ctx context.Context) (*gateway.TriviaQuestion, error) {
	g.mu.Lock()
	topic := g.topic
	g.mu.Unlock()

	q, err := g.source.TriviaQuestion(ctx, topic)
	if err != nil {
		g.logger.Warn("question fetch failed", "topic", topic, "error", err)
		return nil, err
	}

	g.mu.Lock()
	g.current = q
	g.answered = false
	g.mu.Unlock()
	return q, nil
}

// Answer scores option against the current question. A correct answer
// increments the score; either way the question is spent and the fun
// fact is revealed.
func (g *Game) Answer(option string) (*Result, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.current == nil {
		return nil, ErrNoQuestion
	}
	if g.answered {
		return nil, ErrAlreadyAnswered
	}
	g.answered = true

	correct := option == g.current.CorrectAnswer
	if correct {
		g.score++
	}
	return &Result{
		Correct:       correct,
		CorrectAnswer: g.current.CorrectAnswer,
		FunFact:       g.current.FunFact,
		Score:         g.score,
	}, nil
}

// Score reports the running score.
func (g *Game) Score() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.score
}

// Topic reports the active topic.
func (g *Game) Topic() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.topic
}
