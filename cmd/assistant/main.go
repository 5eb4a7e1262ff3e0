package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"voice-qa/config"
	"voice-qa/internal/application"
	"voice-qa/internal/domain"
	"voice-qa/internal/infra/audio"
	"voice-qa/internal/infra/corpus"
	"voice-qa/internal/infra/dashscope"
	"voice-qa/internal/infra/google"
	"voice-qa/internal/infra/httpapi"
	"voice-qa/internal/infra/jsonbin"
	"voice-qa/internal/infra/metrics"
	"voice-qa/internal/infra/probe"
	"voice-qa/internal/infra/pushover"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg.Log)

	os.Exit(run(cfg, logger))
}

func run(cfg *config.Config, logger *slog.Logger) int {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info("shutting down")
		cancel()
	}()

	hotwords, err := application.CompileHotwords(application.HotwordPatterns{
		Exit:  cfg.Assistant.ExitPattern,
		Wake:  cfg.Assistant.WakePattern,
		Sleep: cfg.Assistant.SleepPattern,
	})
	if err != nil {
		logger.Error("compiling hotwords", "error", err)
		return 1
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder := metrics.NewRecorder(registry)

	capture := createAudioCapture(cfg.Audio, logger)

	var recognizer *dashscope.Recognizer
	if cfg.Recognition.URL != "" {
		recognizer = dashscope.NewRecognizerWithURL(cfg.Recognition.APIKey, cfg.Recognition.Model, cfg.Recognition.URL, logger)
	} else {
		recognizer = dashscope.NewRecognizer(cfg.Recognition.APIKey, cfg.Recognition.Model, logger)
	}

	session := application.NewRecognitionSession(capture, recognizer, application.RecognitionConfig{
		Encoding:     cfg.Recognition.Encoding,
		SampleRate:   cfg.Audio.SampleRate,
		LanguageCode: cfg.Recognition.LanguageCode,
	}, logger.With("component", "recognition"))

	var tts *google.TTSClient
	if cfg.Synthesis.URL != "" {
		tts = google.NewTTSClientWithURL(cfg.Synthesis.APIKey, cfg.Synthesis.URL)
	} else {
		tts = google.NewTTSClient(cfg.Synthesis.APIKey)
	}

	speech := application.NewSpeechOutput(tts, audio.NewCommandPlayer(cfg.Playback.Command), application.SpeechConfig{
		Voice: application.VoiceConfig{
			LanguageCode: cfg.Synthesis.LanguageCode,
			VoiceName:    cfg.Synthesis.Voice,
			Encoding:     cfg.Synthesis.Encoding,
			Pitch:        cfg.Synthesis.Pitch,
		},
		OutputPath: cfg.Playback.OutputPath,
		DingPath:   cfg.Playback.DingPath,
	}, recorder, logger.With("component", "speech"))

	store, refresh := createCorpusStore(ctx, cfg.Corpus, recorder, logger)

	var notifier application.Notifier
	if cfg.Pushover.Enabled {
		notifier = pushover.NewClient(cfg.Pushover.Token, cfg.Pushover.UserKey, cfg.Pushover.Title)
	} else {
		notifier = &application.NoopNotifier{}
	}

	delay := domain.DefaultDelayPolicy()
	delay.Base = parseDuration(logger, "latency.base_delay", cfg.Latency.BaseDelay, delay.Base)
	delay.Threshold = parseDuration(logger, "latency.threshold", cfg.Latency.Threshold, delay.Threshold)
	delay.Max = parseDuration(logger, "latency.max_delay", cfg.Latency.MaxDelay, delay.Max)
	delay.Factor = cfg.Latency.Factor

	prober := probe.NewPinger(
		cfg.Latency.Privileged,
		parseDuration(logger, "latency.timeout", cfg.Latency.Timeout, 10*time.Second),
		logger.With("component", "probe"),
	)

	supervisor := application.NewSupervisor(
		application.SupervisorConfig{
			ProbeHost:       cfg.Latency.Host,
			ProbeReplies:    cfg.Latency.Replies,
			Delay:           delay,
			RestartInterval: parseDuration(logger, "assistant.restart_interval", cfg.Assistant.RestartInterval, 45*time.Second),
			RefreshInterval: refresh,
		},
		prober,
		session,
		speech,
		store,
		hotwords,
		application.Replies{
			Greeting: cfg.Assistant.Greeting,
			Farewell: cfg.Assistant.Farewell,
			Fallback: cfg.Assistant.Fallback,
		},
		notifier,
		recorder,
		logger.With("component", "supervisor"),
	)

	if cfg.Control.Enabled {
		var gatherer prometheus.Gatherer
		if cfg.Control.Metrics {
			gatherer = registry
		}
		api := httpapi.NewServer(cfg.Control.Addr, cfg.Control.AuthToken, supervisor, gatherer, logger.With("component", "httpapi"))
		if err := api.Start(ctx); err != nil {
			logger.Error("starting control API", "error", err)
			return 1
		}
		defer api.Stop()
	}

	logger.Info("starting voice assistant",
		"audio_source", capture.Name(),
		"corpus_refresh", refresh,
	)

	err = supervisor.Run(ctx)

	var exitErr *application.ExitError
	switch {
	case errors.As(err, &exitErr):
		if exitErr.Code != 0 {
			logger.Error("assistant stopped", "error", exitErr.Err)
		}
		return exitErr.Code
	case err != nil && !errors.Is(err, context.Canceled):
		logger.Error("assistant error", "error", err)
		return 1
	}
	return 0
}

func createAudioCapture(cfg config.AudioConfig, logger *slog.Logger) application.AudioCapture {
	logger = logger.With("component", "capture")
	switch cfg.Source {
	case "command":
		return audio.NewCommandCapture(cfg.Command, cfg.Args, logger)
	case "file":
		return audio.NewFileCapture(cfg.FileDir)
	case "microphone":
		return audio.NewMicrophoneCapture(logger)
	default:
		logger.Warn("unknown audio source, using command", "source", cfg.Source)
		return audio.NewCommandCapture(cfg.Command, cfg.Args, logger)
	}
}

// createCorpusStore picks the corpus source and returns the refresh interval
// to use. A local file seeds the store when a remote bin is also configured;
// only the remote bin is refreshed.
func createCorpusStore(ctx context.Context, cfg config.CorpusConfig, m application.Metrics, logger *slog.Logger) (*application.CorpusStore, time.Duration) {
	logger = logger.With("component", "corpus")

	if cfg.BinID == "" {
		var source application.CorpusSource
		if cfg.File != "" {
			source = corpus.NewFileSource(cfg.File)
		} else {
			logger.Warn("no corpus configured, every question gets the fallback answer")
		}
		return application.NewCorpusStore(source, m, logger), 0
	}

	var remote *jsonbin.Client
	if cfg.URL != "" {
		remote = jsonbin.NewClientWithURL(cfg.BinID, cfg.SecretKey, cfg.URL, logger)
	} else {
		remote = jsonbin.NewClient(cfg.BinID, cfg.SecretKey, logger)
	}
	store := application.NewCorpusStore(remote, m, logger)

	if cfg.File != "" {
		seed, err := corpus.NewFileSource(cfg.File).Load(ctx)
		if err != nil {
			logger.Warn("loading seed corpus", "error", err)
		} else {
			store.Replace(seed)
		}
	}

	return store, parseDuration(logger, "corpus.refresh_interval", cfg.RefreshInterval, 15*time.Second)
}

func parseDuration(logger *slog.Logger, key, value string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		logger.Warn("invalid duration, using default", "key", key, "error", err, "value", value)
		return fallback
	}
	return d
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
