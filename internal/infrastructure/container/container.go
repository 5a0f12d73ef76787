package container

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gdugdh24/mpit2026-roulette/internal/config"
	"github.com/gdugdh24/mpit2026-roulette/internal/delivery/http"
	"github.com/gdugdh24/mpit2026-roulette/internal/delivery/http/handler"
	"github.com/gdugdh24/mpit2026-roulette/internal/delivery/http/middleware"
	"github.com/gdugdh24/mpit2026-roulette/internal/infrastructure/cache"
	"github.com/gdugdh24/mpit2026-roulette/internal/infrastructure/database"
	"github.com/gdugdh24/mpit2026-roulette/internal/infrastructure/gemini"
	"github.com/gdugdh24/mpit2026-roulette/internal/infrastructure/pubsub"
	"github.com/gdugdh24/mpit2026-roulette/internal/infrastructure/server"
	"github.com/gdugdh24/mpit2026-roulette/internal/repository"
	"github.com/gdugdh24/mpit2026-roulette/internal/repository/memory"
	"github.com/gdugdh24/mpit2026-roulette/internal/repository/postgres"
	"github.com/gdugdh24/mpit2026-roulette/internal/usecase/auth"
	"github.com/gdugdh24/mpit2026-roulette/internal/usecase/friendship"
	"github.com/gdugdh24/mpit2026-roulette/internal/usecase/icebreaker"
	"github.com/gdugdh24/mpit2026-roulette/internal/usecase/matchmaking"
	"github.com/gdugdh24/mpit2026-roulette/internal/usecase/profile"
	"github.com/gdugdh24/mpit2026-roulette/internal/usecase/session"
	"github.com/gdugdh24/mpit2026-roulette/internal/usecase/watcher"
	"github.com/gdugdh24/mpit2026-roulette/migrations"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

// Container holds all application dependencies
type Container struct {
	Config *config.Config
	Log    *slog.Logger
	DB     *sqlx.DB
	Redis  *redis.Client
	Server *server.Server
	Gemini *gemini.GeminiClient
}

// repositories is the storage backend selected by STORAGE_TYPE.
type repositories struct {
	tickets     repository.TicketRepository
	sessions    repository.SessionRepository
	friendships repository.FriendshipRepository
	profiles    repository.ProfileRepository
	feed        repository.ChangeFeed
	cache       icebreaker.Cache
	seeder      auth.ProfileSeeder
}

// NewContainer creates a new dependency injection container
func NewContainer(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Container, error) {
	c := &Container{Config: cfg, Log: log}

	var repos repositories
	switch cfg.Storage.Type {
	case config.StorageMemory:
		log.Warn("using in-memory storage; state is lost on restart and not shared between replicas")
		store := memory.NewStore()
		repos = repositories{
			tickets:     memory.NewTicketRepository(store),
			sessions:    memory.NewSessionRepository(store),
			friendships: memory.NewFriendshipRepository(store),
			profiles:    memory.NewProfileRepository(store),
			feed:        memory.NewChangeFeed(),
			seeder:      store,
		}
	default:
		if err := c.connect(ctx); err != nil {
			_ = c.Close()
			return nil, err
		}
		repos = repositories{
			tickets:     postgres.NewTicketRepository(c.DB),
			sessions:    postgres.NewSessionRepository(c.DB),
			friendships: postgres.NewFriendshipRepository(c.DB),
			profiles:    postgres.NewProfileRepository(c.DB),
			feed:        pubsub.NewRedisFeed(c.Redis, log),
			cache:       cache.NewRedisCache(c.Redis),
		}
		if cfg.Server.Env != "production" {
			repos.seeder = postgres.NewProfileSeeder(c.DB)
		}
	}

	// Initialize Gemini Client. Icebreakers fall back to canned lines
	// without it.
	var generator icebreaker.Generator
	if cfg.GeminiAPIKey != "" {
		geminiClient, err := gemini.NewGeminiClient(ctx, cfg.GeminiAPIKey)
		if err != nil {
			log.Warn("gemini client unavailable, icebreakers use fallback lines", "error", err)
		} else {
			c.Gemini = geminiClient
			generator = geminiClient
		}
	}

	// Initialize use cases
	tokenUseCase := auth.NewTokenUseCase(cfg.JWT.AccessSecret, repos.seeder)

	friendshipUseCase := friendship.NewFriendshipUseCase(
		repos.sessions,
		repos.friendships,
		repos.profiles,
		log.With("component", "friendship"),
	)

	profileUseCase := profile.NewProfileUseCase(
		repos.profiles,
		friendshipUseCase,
	)

	coordinator := matchmaking.NewMatchCoordinator(
		repos.tickets,
		repos.profiles,
		repos.feed,
		matchmaking.Options{
			SessionTTL:    cfg.Match.SessionTTL,
			CandidateScan: cfg.Match.CandidateScan,
		},
		log.With("component", "matchmaking"),
	)

	sessionUseCase := session.NewSessionUseCase(
		repos.sessions,
		repos.tickets,
		friendshipUseCase,
		repos.feed,
		log.With("component", "session"),
	)

	sessionWatcher := watcher.NewSessionWatcher(
		sessionUseCase,
		repos.feed,
		cfg.Match.WatchTick,
		log.With("component", "watcher"),
	)

	icebreakerUseCase := icebreaker.NewIcebreakerUseCase(
		repos.sessions,
		repos.profiles,
		generator,
		repos.cache,
		log.With("component", "icebreaker"),
	)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(tokenUseCase)
	profileHandler := handler.NewProfileHandler(profileUseCase)
	matchHandler := handler.NewMatchHandler(coordinator)
	sessionHandler := handler.NewSessionHandler(sessionUseCase, sessionWatcher, icebreakerUseCase, log)
	friendHandler := handler.NewFriendHandler(friendshipUseCase)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(tokenUseCase)

	// Initialize router
	router := http.NewRouter(
		authHandler,
		profileHandler,
		matchHandler,
		sessionHandler,
		friendHandler,
		authMiddleware,
		log,
		cfg.Server.Env != "production",
	)

	c.Server = server.NewServer(&cfg.Server, router.Setup(), log)
	return c, nil
}

func (c *Container) connect(ctx context.Context) error {
	db, err := database.NewPostgresDB(ctx, &c.Config.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	c.DB = db

	if c.Config.Database.AutoMigrate {
		if err := database.Migrate(ctx, db, migrations.FS, c.Log); err != nil {
			return err
		}
	}

	redisClient, err := database.NewRedisClient(ctx, &c.Config.Redis)
	if err != nil {
		return fmt.Errorf("failed to initialize redis: %w", err)
	}
	c.Redis = redisClient
	return nil
}

// Close closes all connections
func (c *Container) Close() error {
	if c.Gemini != nil {
		if err := c.Gemini.Close(); err != nil {
			c.Log.Warn("error closing gemini client", "error", err)
		}
	}

	// Close Redis
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			c.Log.Warn("error closing redis", "error", err)
		}
	}

	// Close database
	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			return fmt.Errorf("failed to close database: %w", err)
		}
	}

	return nil
}
