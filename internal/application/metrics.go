package application

type Metrics interface {
	UtteranceHandled(outcome Outcome)
	SessionRestarted()
	SpeechFailed(stage string)
	CorpusSynced(err error)
}

type NoopMetrics struct{}

func (NoopMetrics) UtteranceHandled(Outcome) {}
func (NoopMetrics) SessionRestarted()        {}
func (NoopMetrics) SpeechFailed(string)      {}
func (NoopMetrics) CorpusSynced(error)       {}
