package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"linkletter-service/internal/app"
	"linkletter-service/internal/config"
	"linkletter-service/internal/domain"
	"linkletter-service/internal/infra/memory"
	pgstore "linkletter-service/internal/infra/postgres"
	redisstore "linkletter-service/internal/infra/redis"
	transport "linkletter-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the link letter server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var loader memory.LetterLoader = memory.NewStaticLetterLoader(sampleLetters())
	if pool != nil {
		loader = pgstore.NewLetterLoader(pool)
	}

	cacheTTL := config.TTLDuration(cfg.Letter.CacheTTL, 10*time.Minute)
	var letters app.LetterRepository
	if redisClient != nil {
		letters = redisstore.NewLetterCache(redisClient, loader, cacheTTL)
	} else {
		letters = memory.NewLetterCache(loader, cacheTTL)
	}

	var markers app.LikeMarkerStore = memory.NewMarkerStore()
	if redisClient != nil {
		markers = redisstore.NewMarkerStore(redisClient)
	}

	var replies app.ReplyRepository = memory.NewReplyStore()
	var counters app.CounterStore = memory.NewCounterStore()
	if pool != nil {
		replies = pgstore.NewReplyRepository(pool)
		counters = pgstore.NewCounterStore(pool)
	}

	// Gate sessions stay in process memory on purpose: a reload restarts the
	// quiz with a fresh budget.
	sessions := memory.NewSessionStore()

	service := app.NewLetterService(letters, sessions, replies, counters, markers)
	wsHandler := transport.NewWSHandler(service)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting link letter service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleLetters provides demo content when no Postgres is configured.
func sampleLetters() map[string]domain.Letter {
	return map[string]domain.Letter{
		"letter-1": {
			ID:       "letter-1",
			Title:    "A letter for you",
			Category: "friendship",
			Quiz: domain.Quiz{
				Questions: []domain.Question{
					{
						Prompt:        "Where did we first meet?",
						Options:       []string{"Cafe", "Library", "Park", "School"},
						CorrectOption: 1,
						Hint:          "Somewhere quiet with lots of books",
					},
					{
						Prompt:     "What is my favorite food?",
						AnswerText: "tteokbokki",
						Hint:       "I like it spicy",
					},
				},
			},
			Body: "Thank you for always being there. This letter is just for you.",
			Author: domain.Identity{
				UID:         "author-1",
				DisplayName: "A grateful friend",
				Email:       "friend@example.com",
			},
			IsPublic:  true,
			CreatedAt: time.Date(2024, 10, 30, 0, 0, 0, 0, time.UTC),
		},
		"letter-2": {
			ID:    "letter-2",
			Title: "No gate on this one",
			Body:  "Some letters are open to anyone who follows the link.",
			Author: domain.Identity{
				UID:         "author-2",
				DisplayName: "An open sender",
			},
			IsPublic:  true,
			CreatedAt: time.Date(2024, 10, 29, 0, 0, 0, 0, time.UTC),
		},
	}
}
