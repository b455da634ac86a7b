package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.uber.org/zap"

	"realtime-canvas/internal/config"
	"realtime-canvas/internal/database"
	"realtime-canvas/internal/model"
	"realtime-canvas/internal/presence"
)

func main() {
	cfg := config.Load()

	db, err := database.ConnectDB(cfg.Database, zap.NewNop())
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer database.Close(db)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := database.Ping(ctx, db); err != nil {
		log.Fatal("Failed to ping database:", err)
	}

	fmt.Println("✅ Connected to database")
	fmt.Println()

	// 테이블 존재 여부 + 행 수
	fmt.Println("📋 Tables:")
	missing := 0
	for _, m := range model.AllModels() {
		stmt := db.Model(m).Statement
		if err := stmt.Parse(m); err != nil {
			log.Fatal("Failed to parse model:", err)
		}
		table := stmt.Schema.Table

		if !db.Migrator().HasTable(m) {
			fmt.Printf("  - %-14s ❌ missing\n", table)
			missing++
			continue
		}
		var count int64
		if err := db.WithContext(ctx).Model(m).Count(&count).Error; err != nil {
			log.Fatalf("Failed to count %s: %v", table, err)
		}
		fmt.Printf("  - %-14s %d rows\n", table, count)
	}
	fmt.Println()

	if missing > 0 {
		fmt.Printf("⚠️ %d table(s) missing, run `canvas migrate`\n", missing)
		return
	}

	// resume cursor 상한
	var maxID *int64
	if err := db.WithContext(ctx).Model(&model.Stroke{}).Select("MAX(id)").Scan(&maxID).Error; err != nil {
		log.Fatal("Failed to read latest stroke id:", err)
	}
	if maxID != nil {
		fmt.Printf("🖌️ Latest stroke id: %d\n", *maxID)
	} else {
		fmt.Println("🖌️ No strokes yet")
	}

	// 활성 lease 수 (전체 방)
	var active int64
	floor := time.Now().UTC().Add(-presence.LeaseTTL)
	if err := db.WithContext(ctx).Model(&model.RoomWatcher{}).Where("updated_at > ?", floor).Count(&active).Error; err != nil {
		log.Fatal("Failed to count active watchers:", err)
	}
	fmt.Printf("👀 Active watcher leases: %d\n", active)
}
