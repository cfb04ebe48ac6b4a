package bootstrap

import (
	"context"
	"log"

	"notefiber-editor/internal/config"
	"notefiber-editor/internal/controller"
	"notefiber-editor/internal/pkg/logger"
	"notefiber-editor/internal/repository/unitofwork"
	"notefiber-editor/internal/service"
	"notefiber-editor/internal/websocket"
	"notefiber-editor/pkg/events"
	"notefiber-editor/pkg/media"

	pktNats "notefiber-editor/pkg/nats"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	NoteController   controller.INoteController
	EditorController controller.IEditorController

	// Background Services (Exposed for main.go to run)
	MediaConsumerService service.IMediaConsumerService

	EditorService service.IEditorService
	WebSocketHub  *websocket.Hub
	Bus           *events.Bus

	natsPub *pktNats.Publisher
	natsSub *pktNats.Subscriber
	rdb     *redis.Client
	cancel  context.CancelFunc
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	ctx, cancel := context.WithCancel(context.Background())

	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())

	// 2. Event Bus (session output, in-process)
	bus := events.NewBus(sysLogger)

	// 3. Infrastructure
	// NATS
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL, sysLogger)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL, sysLogger)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
	}

	// Redis
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v. Running single-instance", err)
		rdb.Close()
		rdb = nil
	}

	// Media storage
	storage := newStorage(ctx, cfg, sysLogger)

	// 4. Services
	var eventPublisher service.EventPublisher
	if natsPub != nil {
		eventPublisher = natsPub
	}
	noteService := service.NewNoteService(uowFactory, eventPublisher, sysLogger)
	editorService := service.NewEditorService(noteService, storage, bus, eventPublisher, sysLogger, cfg.Editor)

	var mediaConsumer service.IMediaConsumerService
	if natsSub != nil {
		mediaConsumer = service.NewMediaConsumerService(natsSub, noteService)
	}

	// WebSocket Hub
	wsLogger := logger.NewIsolatedLogger(cfg.App.WsLogFilePath)
	wsHub := websocket.NewHub(rdb, editorService, wsLogger)
	go wsHub.Run(ctx)
	if err := wsHub.Consume(ctx, bus); err != nil {
		log.Fatalf("[FATAL] Failed to subscribe hub to editor events: %v", err)
	}

	return &Container{
		NoteController:       controller.NewNoteController(service.WithSessionSync(noteService, editorService)),
		EditorController:     controller.NewEditorController(editorService, wsHub, cfg.Editor.MaxUploadBytes),
		MediaConsumerService: mediaConsumer,
		EditorService:        editorService,
		WebSocketHub:         wsHub,
		Bus:                  bus,
		natsPub:              natsPub,
		natsSub:              natsSub,
		rdb:                  rdb,
		cancel:               cancel,
	}
}

func newStorage(ctx context.Context, cfg *config.Config, log logger.ILogger) media.Storage {
	if cfg.Storage.Driver == "minio" {
		m := cfg.Storage.Minio
		storage, err := media.NewMinioStorage(ctx, media.MinioConfig{
			Endpoint:  m.Endpoint,
			AccessKey: m.AccessKey,
			SecretKey: m.SecretKey,
			Bucket:    m.Bucket,
			UseSSL:    m.UseSSL,
			PublicURL: m.PublicURL,
		}, log)
		if err == nil {
			return storage
		}
		log.Error("BOOTSTRAP", "MinIO unavailable, falling back to local storage", map[string]interface{}{"error": err.Error()})
	}

	storage, err := media.NewLocalStorage(cfg.Storage.LocalDir, cfg.Storage.PublicBaseURL)
	if err != nil {
		panic(err)
	}
	return storage
}

// Close ends every editor session with a final save, then releases connections.
func (c *Container) Close() {
	c.EditorService.Shutdown()
	c.cancel()
	c.Bus.Close()
	if c.natsSub != nil {
		c.natsSub.Close()
	}
	if c.natsPub != nil {
		c.natsPub.Close()
	}
	if c.rdb != nil {
		c.rdb.Close()
	}
}
