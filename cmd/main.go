package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"memereport/pkg/api"
	"memereport/pkg/apitoken"
	"memereport/pkg/bot"
	"memereport/pkg/config"
	"memereport/pkg/dedup"
	"memereport/pkg/imagefetch"
	"memereport/pkg/logger"
	"memereport/pkg/metrics"
	"memereport/pkg/middleware"
	"memereport/pkg/post"
	"memereport/pkg/reddit"
	"memereport/pkg/report"
	"memereport/pkg/telegram"
)

const tokenTTL = 30 * 24 * time.Hour

func main() {
	envFile := flag.String("env", ".env", "dotenv file to read")
	tokenFor := flag.String("token", "", "print an API token for the given name and exit")
	seedDate := flag.String("seed", "", "store fake posts for the given date (YYYY-MM-DD) and exit")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		log.Fatalln("main: bad configuration:", err)
	}
	if cfg.SecretKey == "" {
		log.Fatalln("main: SECRET_KEY must be set")
	}
	tokens := apitoken.NewManager(cfg.SecretKey)

	if *tokenFor != "" {
		token, err := tokens.Issue(*tokenFor, tokenTTL)
		if err != nil {
			log.Fatalln("main:", err)
		}
		fmt.Println(token)
		return
	}

	zl := logger.Run(cfg.LogLevel)
	defer zl.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg, zl)
	if err != nil {
		zl.Fatalf("main: %v", err)
	}
	defer closeStore()

	if *seedDate != "" {
		if err := seed(ctx, store, *seedDate, cfg.ReportExpected); err != nil {
			zl.Fatalf("main: %v", err)
		}
		zl.Infow("seeded posts", "date", *seedDate, "count", cfg.ReportExpected)
		return
	}

	fetcher := imagefetch.NewFetcher(cfg.ImageTimeout, zl.Named("imagefetch"))
	defer fetcher.Close()
	renderer := report.NewRenderer(fetcher, cfg.Subreddit, cfg.ImageWorkers, zl.Named("renderer"))
	reports := report.NewService(store, renderer, cfg.ReportExpected, zl.Named("reports"))

	redditClient := reddit.NewClient(reddit.ClientConfig{
		ClientID:     cfg.RedditClientID,
		ClientSecret: cfg.RedditSecret,
		UserAgent:    cfg.RedditUserAgent,
	})
	defer redditClient.Close()
	scraper := reddit.NewScraper(redditClient, store, cfg.Subreddit, cfg.ScrapeLimit, zl.Named("scraper"))

	tg := telegram.NewClient(cfg.TelegramAPIURL, cfg.BotToken, 30*time.Second)
	defer tg.Close()
	chatBot := bot.NewBot(scraper, reports, tg, zl.Named("bot"))

	var updates bot.Deduper
	if cfg.RedisAddr != "" {
		pool := dedup.NewPool(cfg.RedisAddr)
		defer pool.Close()
		updates = dedup.NewUpdates(pool, dedup.DefaultTTL)
	}
	webhook := bot.NewWebhook(chatBot, updates, cfg.WebhookSecret)

	handler := api.NewHandler(store, reports, scraper)

	r := mux.NewRouter()
	r.HandleFunc("/health", handler.Health).Methods("GET")
	r.Handle("/metrics", metrics.Handler()).Methods("GET")
	r.HandleFunc("/telegram/webhook", webhook.Handle).Methods("POST")

	apiRouter := r.PathPrefix("/api").Subrouter()
	handler.Register(apiRouter)
	apiRouter.Use(middleware.NewAuthMiddleware(tokens).Middleware)

	logMiddleware := middleware.NewLoggingMiddleware(zl)
	r.Use(logMiddleware.SetupTracing)
	r.Use(logMiddleware.SetupLogging)
	r.Use(logMiddleware.AccessLog)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			zl.Errorf("main: shutdown: %v", err)
		}
	}()

	zl.Infow("serving", "addr", cfg.ListenAddr, "store", cfg.StoreBackend, "subreddit", cfg.Subreddit)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		zl.Fatalf("main: %v", err)
	}
}

// openStore connects the configured backend and prepares its schema.
func openStore(ctx context.Context, cfg *config.Config, zl *zap.SugaredLogger) (post.Store, func(), error) {
	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if cfg.StoreBackend == "postgres" {
		db, err := sql.Open("pgx", cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("unable to open PostgreSQL: %w", err)
		}
		if err := db.PingContext(connectCtx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("unable to reach PostgreSQL: %w", err)
		}
		repo := post.NewPgRepo(db)
		if err := repo.EnsureSchema(connectCtx); err != nil {
			db.Close()
			return nil, nil, err
		}
		return repo, func() { db.Close() }, nil
	}

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, nil, fmt.Errorf("can't connect to MongoDB: %w", err)
	}
	closeFn := func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := client.Disconnect(disconnectCtx); err != nil {
			zl.Errorf("main: failed disconnecting from MongoDB: %v", err)
		}
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("unable to reach MongoDB: %w", err)
	}
	repo := post.NewPostRepo(client.Database(cfg.MongoDatabase).Collection("posts"))
	if err := repo.EnsureIndexes(connectCtx); err != nil {
		closeFn()
		return nil, nil, err
	}
	return repo, closeFn, nil
}
