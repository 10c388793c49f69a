package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/Wikid82/ipguard/internal/config"
	"github.com/Wikid82/ipguard/internal/database"
	"github.com/Wikid82/ipguard/internal/models"
	"github.com/Wikid82/ipguard/internal/services"
)

// seed populates a development database with a small denylist and enough
// audit traffic for both anomaly passes to produce findings.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	db, err := database.Connect(cfg.DatabasePath)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	fmt.Println("✓ Database migrated successfully")

	denylist := services.NewDenylistService(db)
	for addr, reason := range map[string]string{
		"203.0.113.10": "credential stuffing",
		"2001:db8::bad": "scanner",
	} {
		if _, created, err := denylist.Block(addr, reason); err != nil {
			log.Printf("Failed to block %s: %v", addr, err)
		} else if created {
			fmt.Printf("✓ Blocked %s\n", addr)
		} else {
			fmt.Printf("  %s already blocked\n", addr)
		}
	}

	audit := services.NewAuditService(db)
	ctx := context.Background()
	now := time.Now().UTC()
	record := func(addr, path string, ago time.Duration) {
		if err := audit.Record(ctx, &models.AuditEntry{
			Address:    addr,
			Path:       path,
			Country:    "Example",
			ObservedAt: now.Add(-ago),
		}); err != nil {
			log.Printf("Failed to record audit entry: %v", err)
		}
	}

	// noisy client above the default rate threshold
	for i := 0; i < cfg.Anomaly.RateThreshold+20; i++ {
		record("198.51.100.20", "/", time.Duration(i)*time.Second)
	}
	// probe of sensitive paths
	for _, p := range cfg.Anomaly.SensitivePaths {
		record("198.51.100.30", p, 5*time.Minute)
	}
	// ordinary traffic
	for i := 0; i < 10; i++ {
		record("192.0.2.40", "/sensitive-auth", time.Duration(i)*time.Minute)
	}

	fmt.Println("✓ Audit traffic seeded")
	fmt.Println("\nRun `api detect` to produce findings.")
}
