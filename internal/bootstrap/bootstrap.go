package bootstrap

import (
	"context"
	"fmt"

	"github.com/kirillkom/dash-voice/internal/config"
	"github.com/kirillkom/dash-voice/internal/core/ports"
	"github.com/kirillkom/dash-voice/internal/core/usecase"
	"github.com/kirillkom/dash-voice/internal/infrastructure/llm/anthropic"
	natsqueue "github.com/kirillkom/dash-voice/internal/infrastructure/queue/nats"
	"github.com/kirillkom/dash-voice/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/dash-voice/internal/infrastructure/resilience"
	"github.com/kirillkom/dash-voice/internal/transcription"
	"github.com/kirillkom/dash-voice/internal/transcription/deepgram"
)

type App struct {
	Config config.Config

	Queue       *natsqueue.Queue
	SubmitUC    ports.CaptureSubmitter
	LifecycleUC ports.CaptureLifecycle
	Tasks       ports.TaskStore
	Reflections ports.ReflectionStore
	Goals       ports.GoalStore
	Tokens      ports.TranscriptionTokenIssuer

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	captures := postgres.NewCaptureRepository(db)
	if err := captures.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	tasks := postgres.NewTaskRepository(db)
	reflections := postgres.NewReflectionRepository(db)
	goals := postgres.NewGoalRepository(db)

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	queue, err := natsqueue.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, natsqueue.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	llmClient := anthropic.New(cfg.AnthropicAPIKey, cfg.AnthropicBaseURL, cfg.AnthropicModel, executor)
	extractor := anthropic.NewExtractor(llmClient)

	submitUC := usecase.NewSubmitCaptureUseCase(captures, extractor, queue)
	lifecycleUC := usecase.NewCaptureLifecycleUseCase(captures, queue)

	tokens := deepgram.NewIssuer(cfg.DeepgramAPIKey)

	return &App{
		Config: cfg,

		Queue:       queue,
		SubmitUC:    submitUC,
		LifecycleUC: lifecycleUC,
		Tasks:       tasks,
		Reflections: reflections,
		Goals:       goals,
		Tokens:      tokens,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

// CloudSourceFactory builds Deepgram-backed transcription sources using the
// configured credential, listen URL and keyword vocabulary. The audio source
// is supplied by the embedding host since capture devices are platform bound.
func CloudSourceFactory(cfg config.Config, audio deepgram.AudioSource) transcription.SourceFactory {
	issuer := deepgram.NewIssuerTokenSource(deepgram.NewIssuer(cfg.DeepgramAPIKey))
	return func(handlers transcription.Handlers) transcription.Source {
		return deepgram.NewClient(deepgram.Config{
			ListenURL: cfg.DeepgramListenURL,
			Keywords:  cfg.VoiceKeywords,
		}, issuer, audio, handlers)
	}
}

// Stores is the storage-only wiring used by the MCP binary, which reviews
// captures directly against the database and publishes no events.
type Stores struct {
	LifecycleUC ports.CaptureLifecycle
	Tasks       ports.TaskStore
	Reflections ports.ReflectionStore
	Goals       ports.GoalStore

	closeFn func()
}

func NewStores(ctx context.Context, cfg config.Config) (*Stores, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	captures := postgres.NewCaptureRepository(db)
	if err := captures.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return &Stores{
		LifecycleUC: usecase.NewCaptureLifecycleUseCase(captures, nil),
		Tasks:       postgres.NewTaskRepository(db),
		Reflections: postgres.NewReflectionRepository(db),
		Goals:       postgres.NewGoalRepository(db),

		closeFn: func() { _ = db.Close() },
	}, nil
}

func (s *Stores) Close() {
	if s.closeFn != nil {
		s.closeFn()
	}
}
