package application

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"voice-qa/internal/domain"
)

type Outcome string

const (
	OutcomeIgnored  Outcome = "ignored"
	OutcomeExit     Outcome = "exit"
	OutcomeWake     Outcome = "wake"
	OutcomeSleep    Outcome = "sleep"
	OutcomeAnswered Outcome = "answered"
	OutcomeUnknown  Outcome = "unknown"
)

type HotwordPatterns struct {
	Exit  string
	Wake  string
	Sleep string
}

func DefaultHotwordPatterns() HotwordPatterns {
	return HotwordPatterns{
		Exit:  `(exit|restart)`,
		Wake:  `(hello|hey|hi) charlie`,
		Sleep: `(goodbye) charlie`,
	}
}

type Hotwords struct {
	Exit  *regexp.Regexp
	Wake  *regexp.Regexp
	Sleep *regexp.Regexp
}

func CompileHotwords(p HotwordPatterns) (Hotwords, error) {
	var h Hotwords
	var err error
	if h.Exit, err = compilePattern(p.Exit); err != nil {
		return Hotwords{}, fmt.Errorf("compiling exit hotword: %w", err)
	}
	if h.Wake, err = compilePattern(p.Wake); err != nil {
		return Hotwords{}, fmt.Errorf("compiling wake hotword: %w", err)
	}
	if h.Sleep, err = compilePattern(p.Sleep); err != nil {
		return Hotwords{}, fmt.Errorf("compiling sleep hotword: %w", err)
	}
	return h, nil
}

// Replies are the canned phrases. Greeting and Farewell take the corpus
// profile name as their only verb.
type Replies struct {
	Greeting string
	Farewell string
	Fallback string
}

func DefaultReplies() Replies {
	return Replies{
		Greeting: "Hello %s",
		Farewell: "Goodbye %s",
		Fallback: "Sorry, I don't know the answer to that. Try asking your parents.",
	}
}

type Speaker interface {
	Speak(ctx context.Context, text string, resume bool)
}

type AnswerSource interface {
	Current() *AnswerTable
}

// Controller is the hotword-gated state machine. It must only be driven from
// the goroutine that owns state.
type Controller struct {
	hotwords Hotwords
	replies  Replies
	answers  AnswerSource
	speaker  Speaker
	state    *SessionState
	metrics  Metrics
	logger   *slog.Logger
}

func NewController(
	hotwords Hotwords,
	replies Replies,
	answers AnswerSource,
	speaker Speaker,
	state *SessionState,
	metrics Metrics,
	logger *slog.Logger,
) *Controller {
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	return &Controller{
		hotwords: hotwords,
		replies:  replies,
		answers:  answers,
		speaker:  speaker,
		state:    state,
		metrics:  metrics,
		logger:   logger,
	}
}

func (c *Controller) Handle(ctx context.Context, u domain.Utterance) Outcome {
	outcome := c.handle(ctx, u)
	c.metrics.UtteranceHandled(outcome)
	return outcome
}

func (c *Controller) handle(ctx context.Context, u domain.Utterance) Outcome {
	text := strings.TrimSpace(string(u))
	if text == "" {
		return OutcomeIgnored
	}

	switch {
	case c.hotwords.Exit.MatchString(text):
		c.logger.Info("heard exit hotword, cleaning up", "text", text)
		return OutcomeExit

	case c.hotwords.Wake.MatchString(text):
		c.logger.Info("heard wake hotword, started active listening", "text", text)
		c.state.Mode = ModeActive
		c.micOff()
		c.speaker.Speak(ctx, c.personalize(c.replies.Greeting), true)
		return OutcomeWake

	case c.hotwords.Sleep.MatchString(text):
		c.logger.Info("heard sleep hotword, stopped active listening", "text", text)
		c.micOff()
		c.state.Mode = ModeIdle
		c.speaker.Speak(ctx, c.personalize(c.replies.Farewell), false)
		return OutcomeSleep
	}

	if c.state.Mode != ModeActive || !c.state.Listening {
		c.logger.Debug("discarding utterance", "text", text, "mode", c.state.Mode, "listening", c.state.Listening)
		return OutcomeIgnored
	}

	c.logger.Info("heard question", "text", text)
	c.micOff()

	answer, ok := c.answers.Current().Match(domain.Utterance(text))
	if !ok {
		c.logger.Info("unknown question", "text", text)
		c.speaker.Speak(ctx, c.replies.Fallback, true)
		return OutcomeUnknown
	}

	c.logger.Info("found answer", "text", text, "answer", answer)
	c.speaker.Speak(ctx, answer, true)
	return OutcomeAnswered
}

// ResumeListening re-opens the microphone after speech output. It reports
// false when the session has gone idle meanwhile.
func (c *Controller) ResumeListening() bool {
	if c.state.Mode != ModeActive {
		return false
	}
	c.state.Listening = true
	c.logger.Info("listening on")
	return true
}

func (c *Controller) micOff() {
	if !c.state.Listening {
		return
	}
	c.state.Listening = false
	c.logger.Info("listening off")
}

func (c *Controller) personalize(format string) string {
	if !strings.Contains(format, "%s") {
		return format
	}
	return strings.TrimSpace(fmt.Sprintf(format, c.answers.Current().Name))
}
