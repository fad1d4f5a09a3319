// Package report reads and writes directory spreadsheets: the directory
// report with places, tag counts and top-rated rankings, and bulk place
// imports.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/placedir/placedir-backend/internal/aggregate"
	"github.com/placedir/placedir-backend/internal/app/model"
	"github.com/xuri/excelize/v2"
)

const (
	PlacesSheet   = "Places"
	TagsSheet     = "Tags"
	TopRatedSheet = "Top Rated"
)

var (
	placeHeader    = []interface{}{"ID", "Slug", "Name", "Address", "Longitude", "Latitude", "Tags", "Created At"}
	tagHeader      = []interface{}{"Tag", "Places"}
	topRatedHeader = []interface{}{"Rank", "Slug", "Name", "Average Score", "Ratings"}
)

// Directory is everything that goes into one report
type Directory struct {
	Places    []model.Place
	TagCounts []aggregate.TagCount
	TopRated  []aggregate.RatedPlace
}

// WriteDirectory writes the report workbook to w
func WriteDirectory(w io.Writer, d Directory) error {
	f := excelize.NewFile()
	defer f.Close()

	// the default sheet becomes the places sheet
	if err := f.SetSheetName(f.GetSheetName(0), PlacesSheet); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	for _, name := range []string{TagsSheet, TopRatedSheet} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("failed to create sheet %s: %w", name, err)
		}
	}

	places := make([][]interface{}, 0, len(d.Places))
	for _, p := range d.Places {
		places = append(places, []interface{}{
			p.ID, p.Slug, p.Name, p.Address, p.Longitude, p.Latitude,
			strings.Join(p.Tags, ", "), p.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
		})
	}
	if err := writeRows(f, PlacesSheet, placeHeader, places); err != nil {
		return err
	}

	tags := make([][]interface{}, 0, len(d.TagCounts))
	for _, t := range d.TagCounts {
		tags = append(tags, []interface{}{t.Tag, t.Count})
	}
	if err := writeRows(f, TagsSheet, tagHeader, tags); err != nil {
		return err
	}

	top := make([][]interface{}, 0, len(d.TopRated))
	for i, r := range d.TopRated {
		top = append(top, []interface{}{i + 1, r.Place.Slug, r.Place.Name, r.AverageScore, r.RatingCount})
	}
	if err := writeRows(f, TopRatedSheet, topRatedHeader, top); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, header []interface{}, rows [][]interface{}) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write %s header: %w", sheet, err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+2, err)
		}
	}
	return nil
}
