package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"voice-qa/internal/application"
)

// Recorder exports assistant activity as Prometheus metrics.
type Recorder struct {
	Utterances       *prometheus.CounterVec
	SessionRestarts  prometheus.Counter
	SpeechFailures   *prometheus.CounterVec
	CorpusSyncs      *prometheus.CounterVec
	LastCorpusUpdate prometheus.Gauge
}

// NewRecorder registers the assistant metrics on reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)

	return &Recorder{
		Utterances: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "voiceqa_utterances_total",
				Help: "Utterances handled, by outcome",
			},
			[]string{"outcome"},
		),
		SessionRestarts: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "voiceqa_session_restarts_total",
				Help: "Recognition sessions started",
			},
		),
		SpeechFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "voiceqa_speech_failures_total",
				Help: "Failed speak tasks, by stage",
			},
			[]string{"stage"},
		),
		CorpusSyncs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "voiceqa_corpus_syncs_total",
				Help: "Corpus refresh attempts, by result",
			},
			[]string{"result"},
		),
		LastCorpusUpdate: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "voiceqa_corpus_last_success_timestamp_seconds",
				Help: "Unix time of the last successful corpus refresh",
			},
		),
	}
}

func (r *Recorder) UtteranceHandled(outcome application.Outcome) {
	r.Utterances.WithLabelValues(string(outcome)).Inc()
}

func (r *Recorder) SessionRestarted() {
	r.SessionRestarts.Inc()
}

func (r *Recorder) SpeechFailed(stage string) {
	r.SpeechFailures.WithLabelValues(stage).Inc()
}

func (r *Recorder) CorpusSynced(err error) {
	if err != nil {
		r.CorpusSyncs.WithLabelValues("error").Inc()
		return
	}
	r.CorpusSyncs.WithLabelValues("ok").Inc()
	r.LastCorpusUpdate.SetToCurrentTime()
}
