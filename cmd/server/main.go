package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/jainya01/CRM-sub000/internal/allocator"
	"github.com/jainya01/CRM-sub000/internal/config"
	"github.com/jainya01/CRM-sub000/internal/database"
	"github.com/jainya01/CRM-sub000/internal/handler"
	"github.com/jainya01/CRM-sub000/internal/queue"
	"github.com/jainya01/CRM-sub000/internal/repository"
	"github.com/jainya01/CRM-sub000/internal/router"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer func() { _ = db.Close() }()

	// Redis is optional: rate limiting and response caching disable
	// themselves when the client is nil.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable; rate limiting and caching disabled")
	}

	stockRepo := repository.NewStockRepo(db)
	saleRepo := repository.NewSaleRepo(db)
	userRepo := repository.NewUserRepo(db)
	tokenRepo := repository.NewTokenRepo(db)

	alloc := allocator.New(stockRepo, saleRepo)

	authH := handler.NewAuthHandler(cfg, userRepo, tokenRepo)
	stockH := handler.NewStockHandler(stockRepo, saleRepo)
	saleH := handler.NewSaleHandler(alloc, saleRepo, true)
	dashH := handler.NewDashboardHandler(stockRepo)

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterAuth(e, authH)
	router.RegisterAPI(e, cfg, rdb, authH, stockH, saleH, dashH)

	// Background consumer mirrors sale events into logs/sales.log.
	go func() {
		if err := queue.StartSaleConsumer(); err != nil {
			log.Printf("sale consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
