package report

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/placedir/placedir-backend/internal/app/service"
	"github.com/xuri/excelize/v2"
)

// import sheet columns
const (
	colName = iota
	colDescription
	colTags
	colLongitude
	colLatitude
	colAddress
	colPhotoRef
	importColumns
)

// ImportSummary counts what ReadPlaceDrafts did with the sheet
type ImportSummary struct {
	Rows          int
	Valid         int
	Skipped       int
	InvalidCoords int
}

// ReadPlaceDrafts reads the first sheet of f. The first row is a header;
// columns are name, description, tags (comma separated), longitude,
// latitude, address and photo reference. Rows without a name, address or
// parseable coordinates are skipped.
func ReadPlaceDrafts(f *excelize.File) ([]service.PlaceDraft, ImportSummary, error) {
	var summary ImportSummary

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, summary, fmt.Errorf("no sheets found in workbook")
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, summary, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, summary, fmt.Errorf("no data found in workbook")
	}

	drafts := make([]service.PlaceDraft, 0, len(rows)-1)
	for _, row := range rows[1:] {
		summary.Rows++

		// trailing empty cells are not returned by GetRows
		for len(row) < importColumns {
			row = append(row, "")
		}

		name := strings.TrimSpace(row[colName])
		address := strings.TrimSpace(row[colAddress])
		if name == "" || address == "" {
			summary.Skipped++
			continue
		}

		lng, errLng := strconv.ParseFloat(strings.TrimSpace(row[colLongitude]), 64)
		lat, errLat := strconv.ParseFloat(strings.TrimSpace(row[colLatitude]), 64)
		if errLng != nil || errLat != nil {
			summary.InvalidCoords++
			summary.Skipped++
			continue
		}

		drafts = append(drafts, service.PlaceDraft{
			Name:        name,
			Description: strings.TrimSpace(row[colDescription]),
			Tags:        strings.Split(row[colTags], ","),
			Longitude:   &lng,
			Latitude:    &lat,
			Address:     address,
			PhotoRef:    strings.TrimSpace(row[colPhotoRef]),
		})
	}

	summary.Valid = len(drafts)
	return drafts, summary, nil
}
