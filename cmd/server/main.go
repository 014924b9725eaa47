package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/meeting-admin/internal/config"
	"github.com/iliyamo/meeting-admin/internal/database"
	"github.com/iliyamo/meeting-admin/internal/handler"
	"github.com/iliyamo/meeting-admin/internal/queue"
	"github.com/iliyamo/meeting-admin/internal/repository"
	"github.com/iliyamo/meeting-admin/internal/router"
	"github.com/iliyamo/meeting-admin/internal/service"
)

func main() {
	_ = godotenv.Load() // .env is optional; real deployments set the environment
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("db open: %v", err)
	}
	if err := database.Migrate(context.Background(), db); err != nil {
		log.Fatalf("db migrate: %v", err)
	}

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable; rate limiting and caching disabled")
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	meetings := repository.NewMeetingRepo(db)
	events := service.NewEventPublisher(cfg.AMQPURL)

	authHandler := handler.NewAuthHandler(cfg, users, tokens)
	meetingHandler := handler.NewMeetingHandler(meetings, users, events)

	if cfg.AMQPURL != "" {
		go func() {
			if err := queue.StartEventsConsumer(cfg.AMQPURL); err != nil {
				log.Printf("events consumer stopped: %v", err)
			}
		}()
	}

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterAuth(e, authHandler, cfg.JWTSecret)
	router.RegisterMeetings(e, meetingHandler, cfg.JWTSecret, rdb)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
