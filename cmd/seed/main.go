package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/placedir/placedir-backend/config"
	"github.com/placedir/placedir-backend/internal/app/repository"
	"github.com/placedir/placedir-backend/internal/app/service"
	"github.com/placedir/placedir-backend/internal/db"
	"github.com/placedir/placedir-backend/internal/index"
	"github.com/placedir/placedir-backend/internal/report"
	"github.com/xuri/excelize/v2"
)

func main() {
	// 명령줄 인자 확인
	if len(os.Args) < 3 {
		log.Fatal("Usage: go run cmd/seed/main.go <xlsx_file_path> <owner_user_id>")
	}

	filePath := os.Args[1]
	ownerID, err := strconv.ParseUint(os.Args[2], 10, 32)
	if err != nil || ownerID == 0 {
		log.Fatal("owner_user_id must be a positive integer")
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

	if err := db.Migrate(database); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	// XLSX 파일 읽기
	fmt.Printf("Reading XLSX file: %s\n", filePath)
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		log.Fatal("Failed to open XLSX:", err)
	}
	drafts, summary, err := report.ReadPlaceDrafts(f)
	f.Close()
	if err != nil {
		log.Fatal("Failed to read XLSX:", err)
	}

	fmt.Printf("Rows: %d, valid: %d, skipped: %d (invalid coordinates: %d)\n",
		summary.Rows, summary.Valid, summary.Skipped, summary.InvalidCoords)

	// 사용자 확인
	fmt.Print("Do you want to proceed with the import? (yes/no): ")
	var confirm string
	fmt.Scanln(&confirm)
	if confirm != "yes" && confirm != "y" {
		fmt.Println("Import cancelled.")
		return
	}

	// slug 할당과 검증을 거치도록 서비스를 통해 한 건씩 저장
	placeService := service.NewPlaceService(
		repository.NewPlaceRepository(database),
		repository.NewRatingRepository(database),
		repository.NewUserRepository(database),
		index.NewGeoIndex(),
		index.NewTextIndex(),
		nil,
		cfg.Directory,
	)

	ctx := context.Background()
	imported, failed := 0, 0
	for i, draft := range drafts {
		place, err := placeService.CreatePlace(ctx, uint(ownerID), draft)
		if err != nil {
			failed++
			fmt.Printf("  row %d (%s): %v\n", i+2, draft.Name, err)
			continue
		}
		imported++
		if imported%100 == 0 {
			fmt.Printf("  imported %d places (last: %s)\n", imported, place.Slug)
		}
	}

	fmt.Println("Import completed!")
	fmt.Printf("Total places imported: %d, failed: %d\n", imported, failed)
}
