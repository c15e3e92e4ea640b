package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/socketmode"

	"github.com/postworthy/postbot/internal/api"
	"github.com/postworthy/postbot/internal/biz/usecase"
	"github.com/postworthy/postbot/internal/conf"
	"github.com/postworthy/postbot/internal/data"
	"github.com/postworthy/postbot/internal/server"
	"github.com/postworthy/postbot/internal/service"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Load configuration
	cfg := conf.LoadFromEnv()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	// Initialize Slack clients
	slackClient := slack.New(
		cfg.Slack.BotToken,
		slack.OptionAppLevelToken(cfg.Slack.AppToken),
		slack.OptionDebug(cfg.Debug),
	)
	socketClient := socketmode.New(slackClient)

	// Initialize repository layer
	chatRepo := data.NewChatRepo(slackClient)
	analysisRepo := data.NewAnalysisRepo(cfg.Analysis.APIKey, cfg.Analysis.BaseURL, cfg.Analysis.Model, cfg.Prompts)

	// Initialize usecase layer: the shared state objects are constructed
	// once here and passed by reference everywhere.
	buffer := usecase.NewBufferUsecase(cfg.Buffer.ToBufferConfig())
	history := usecase.NewHistoryUsecase(chatRepo, buffer)
	store := usecase.NewSuggestionStore(cfg.Dedup.HistorySize)
	dedup := usecase.NewDedupUsecase(store, cfg.Dedup.Threshold)

	// Initialize service layer
	analyzer := service.NewAnalyzerService(
		buffer, history, store, dedup,
		analysisRepo, chatRepo,
		cfg.Buffer.MinMessages,
		cfg.Scheduler.LookbackHours,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// HTTP API server
	apiServer := api.NewServer(buffer, store, cfg.API.Port)
	go func() {
		if err := apiServer.Start(); err != nil {
			fmt.Printf("[Main] API server error: %v\n", err)
		}
	}()
	fmt.Printf("[Main] HTTP API server started on port %d\n", cfg.API.Port)

	// Scheduler
	var scheduler *service.Scheduler
	if cfg.Scheduler.Enabled {
		scheduler = service.NewScheduler(
			analyzer,
			cfg.Scheduler.Channels,
			cfg.Scheduler.LookbackHours,
			time.Duration(cfg.Scheduler.IntervalMinutes)*time.Minute,
		)
		scheduler.Start(ctx)
	}

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Println("\nShutting down...")
		if scheduler != nil {
			scheduler.Stop()
		}
		apiServer.Stop()
		cancel()
	}()

	fmt.Println("Starting postbot...")
	slackServer := server.NewSlackServer(slackClient, socketClient, buffer, analyzer)
	if err := slackServer.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatalf("Slack server error: %v", err)
	}
}
