// Command sweep marks past-due installments OVERDUE and, with -generate, adds this
// month's interest-only rows to monthly loans. It runs once and exits, for cron.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"loan-backend/internal/cache"
	"loan-backend/internal/config"
	"loan-backend/internal/db"
	"loan-backend/internal/repositories"
	"loan-backend/internal/services"
)

func main() {
	generate := flag.Bool("generate", false, "also generate monthly continuation rows")
	timeout := flag.Duration("timeout", 5*time.Minute, "overall deadline")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[Config] %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		log.Fatalf("[DB] %v", err)
	}
	defer pool.Close()

	// dashboards must not keep serving pre-sweep numbers
	if cfg.Redis.Enabled {
		if err := cache.Init(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB); err != nil {
			log.Printf("[Redis] Unavailable, stats caches will expire on their own: %v", err)
		} else {
			defer cache.Close()
		}
	}

	svc := services.NewInstallmentService(repositories.NewInstallmentRepository(pool), nil)

	marked, err := svc.Sweep(ctx)
	if err != nil {
		log.Fatalf("[Sweep] %v", err)
	}
	log.Printf("[Sweep] Marked %d installment(s) OVERDUE", len(marked))

	if *generate {
		result, err := svc.GenerateMonthly(ctx)
		if err != nil {
			log.Fatalf("[Generate] %v", err)
		}
		log.Printf("[Generate] Added %d continuation row(s)", result.Generated)
	}
}
