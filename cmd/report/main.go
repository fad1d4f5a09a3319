package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/placedir/placedir-backend/config"
	"github.com/placedir/placedir-backend/internal/app/repository"
	"github.com/placedir/placedir-backend/internal/app/service"
	"github.com/placedir/placedir-backend/internal/db"
	"github.com/placedir/placedir-backend/internal/report"
)

func main() {
	outPath := fmt.Sprintf("directory-%s.xlsx", time.Now().Format("20060102"))
	if len(os.Args) > 1 {
		outPath = os.Args[1]
	}

	// 설정 로드
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	// DB 연결
	database, err := db.Open(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close(database)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	placeRepo := repository.NewPlaceRepository(database)
	aggregateService := service.NewAggregateService(placeRepo, nil, cfg.Directory)

	places, err := placeRepo.FindAll(ctx)
	if err != nil {
		log.Fatal("Failed to load places:", err)
	}
	tags, err := aggregateService.TagCounts(ctx)
	if err != nil {
		log.Fatal("Failed to count tags:", err)
	}
	top, err := aggregateService.TopRated(ctx, 0, 0)
	if err != nil {
		log.Fatal("Failed to rank places:", err)
	}

	out, err := os.Create(outPath)
	if err != nil {
		log.Fatal("Failed to create output file:", err)
	}
	defer out.Close()

	if err := report.WriteDirectory(out, report.Directory{
		Places:    places,
		TagCounts: tags,
		TopRated:  top,
	}); err != nil {
		log.Fatal("Failed to write report:", err)
	}

	fmt.Printf("Report written to %s (%d places, %d tags, %d top rated)\n", outPath, len(places), len(tags), len(top))
}
