package application_test

import (
	"context"
	"strings"
	"testing"

	"voice-qa/internal/application"
	"voice-qa/internal/domain"
)

type controllerFixture struct {
	controller *application.Controller
	speaker    *fakeSpeaker
	state      *application.SessionState
}

func newControllerFixture(t *testing.T) *controllerFixture {
	t.Helper()

	hotwords, err := application.CompileHotwords(application.DefaultHotwordPatterns())
	if err != nil {
		t.Fatalf("compiling hotwords: %v", err)
	}

	store := application.NewCorpusStore(nil, nil, discardLogger())
	store.Replace(weatherCorpus())

	f := &controllerFixture{
		speaker: &fakeSpeaker{},
		state:   &application.SessionState{},
	}
	f.controller = application.NewController(
		hotwords,
		application.DefaultReplies(),
		store,
		f.speaker,
		f.state,
		nil,
		discardLogger(),
	)
	return f
}

func (f *controllerFixture) handle(text string) application.Outcome {
	u, _ := domain.NormalizeUtterance(text)
	return f.controller.Handle(context.Background(), u)
}

func TestController_ExitTakesPrecedence(t *testing.T) {
	f := newControllerFixture(t)

	if got := f.handle("hey charlie restart"); got != application.OutcomeExit {
		t.Fatalf("outcome: got %s, want exit", got)
	}
	if len(f.speaker.calls) != 0 {
		t.Errorf("exit must not speak, got %+v", f.speaker.calls)
	}
	if f.state.Mode != application.ModeIdle {
		t.Errorf("mode: got %s, want idle", f.state.Mode)
	}
}

func TestController_ExitFromActiveState(t *testing.T) {
	f := newControllerFixture(t)
	f.state.Mode = application.ModeActive
	f.state.Listening = true

	if got := f.handle("Exit"); got != application.OutcomeExit {
		t.Fatalf("outcome: got %s, want exit", got)
	}
}

func TestController_WakeFromIdle(t *testing.T) {
	f := newControllerFixture(t)

	if got := f.handle("Hey Charlie"); got != application.OutcomeWake {
		t.Fatalf("outcome: got %s, want wake", got)
	}

	if f.state.Mode != application.ModeActive {
		t.Errorf("mode: got %s, want active", f.state.Mode)
	}

	call := f.speaker.last(t)
	if !call.resume {
		t.Error("greeting must resume listening")
	}
	if !strings.Contains(call.text, "Sam") {
		t.Errorf("greeting %q does not contain the profile name", call.text)
	}
}

func TestController_SleepFromActive(t *testing.T) {
	f := newControllerFixture(t)
	f.state.Mode = application.ModeActive
	f.state.Listening = true

	if got := f.handle("goodbye charlie"); got != application.OutcomeSleep {
		t.Fatalf("outcome: got %s, want sleep", got)
	}

	if f.state.Listening {
		t.Error("listening must be off immediately after sleep")
	}
	if f.state.Mode != application.ModeIdle {
		t.Errorf("mode: got %s, want idle", f.state.Mode)
	}

	call := f.speaker.last(t)
	if call.resume {
		t.Error("farewell must not resume listening")
	}
	if call.text != "Goodbye Sam" {
		t.Errorf("farewell: got %q, want Goodbye Sam", call.text)
	}
}

func TestController_QuestionWhileListening(t *testing.T) {
	f := newControllerFixture(t)
	f.state.Mode = application.ModeActive
	f.state.Listening = true

	if got := f.handle("What is the weather"); got != application.OutcomeAnswered {
		t.Fatalf("outcome: got %s, want answered", got)
	}

	if f.state.Listening {
		t.Error("listening must be off while the answer is spoken")
	}
	if f.state.Mode != application.ModeActive {
		t.Errorf("mode: got %s, want active", f.state.Mode)
	}

	call := f.speaker.last(t)
	if call.text != "It is sunny" || !call.resume {
		t.Errorf("speak: got %+v, want {It is sunny true}", call)
	}
}

func TestController_UnknownQuestionSpeaksFallback(t *testing.T) {
	f := newControllerFixture(t)
	f.state.Mode = application.ModeActive
	f.state.Listening = true

	if got := f.handle("how far away is the moon"); got != application.OutcomeUnknown {
		t.Fatalf("outcome: got %s, want unknown", got)
	}

	call := f.speaker.last(t)
	if call.text != application.DefaultReplies().Fallback {
		t.Errorf("speak: got %q, want fallback", call.text)
	}
	if !call.resume {
		t.Error("fallback must resume listening")
	}
}

func TestController_DiscardsWhenNotListening(t *testing.T) {
	tests := []struct {
		name      string
		mode      application.Mode
		listening bool
	}{
		{"idle", application.ModeIdle, false},
		{"active while speaking", application.ModeActive, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newControllerFixture(t)
			f.state.Mode = tt.mode
			f.state.Listening = tt.listening

			if got := f.handle("what is the weather"); got != application.OutcomeIgnored {
				t.Errorf("outcome: got %s, want ignored", got)
			}
			if len(f.speaker.calls) != 0 {
				t.Errorf("unexpected speak calls: %+v", f.speaker.calls)
			}
		})
	}
}

func TestController_IgnoresEmptyUtterance(t *testing.T) {
	f := newControllerFixture(t)
	f.state.Mode = application.ModeActive
	f.state.Listening = true

	if got := f.controller.Handle(context.Background(), domain.Utterance("   ")); got != application.OutcomeIgnored {
		t.Errorf("outcome: got %s, want ignored", got)
	}
	if !f.state.Listening {
		t.Error("empty utterance must not change listening")
	}
}

func TestController_ResumeListening(t *testing.T) {
	f := newControllerFixture(t)

	if f.controller.ResumeListening() {
		t.Error("resume while idle must be refused")
	}
	if f.state.Listening {
		t.Error("listening turned on while idle")
	}

	f.handle("hi charlie")
	if !f.controller.ResumeListening() {
		t.Fatal("resume after wake refused")
	}
	if !f.state.Listening {
		t.Error("listening still off after resume")
	}
}

func TestCompileHotwords_RejectsMalformedPattern(t *testing.T) {
	patterns := application.DefaultHotwordPatterns()
	patterns.Wake = "(hello"

	if _, err := application.CompileHotwords(patterns); err == nil {
		t.Error("expected error for malformed wake pattern")
	}
}
