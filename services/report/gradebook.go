// Package reportsvc renders classroom reports as spreadsheets.
package reportsvc

import (
	"io"
	"sort"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/classroom"
)

const (
	GradebookSheet       = "Gradebook"
	GradebookContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// GradebookFilename is the download name of a classroom gradebook.
func GradebookFilename(room classroom.Classroom) string {
	return "gradebook_" + room.Code + ".xlsx"
}

// gradeColumns returns the distinct grade titles, oldest first.
func gradeColumns(grades []classroom.Grade) []string {
	sorted := append([]classroom.Grade(nil), grades...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date.Time)
	})
	seen := make(map[string]bool)
	titles := make([]string, 0)
	for _, g := range sorted {
		if !seen[g.Title] {
			seen[g.Title] = true
			titles = append(titles, g.Title)
		}
	}
	return titles
}

// WriteGradebook writes one row per student: name, email, a score per grade title and the average percentage.
func WriteGradebook(w io.Writer, book classroom.Gradebook) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	index, err := f.NewSheet(GradebookSheet)
	if err != nil {
		return errors.Wrap(err, "creating sheet")
	}
	f.SetActiveSheet(index)
	if err = f.DeleteSheet("Sheet1"); err != nil {
		return errors.Wrap(err, "deleting default sheet")
	}

	titles := gradeColumns(book.Grades)
	headers := append([]interface{}{"Student", "Email"}, toInterfaces(titles)...)
	headers = append(headers, "Average %")
	if err = setRow(f, 1, headers); err != nil {
		return err
	}

	byStudent := make(map[string][]classroom.Grade)
	for _, g := range book.Grades {
		byStudent[g.UserID] = append(byStudent[g.UserID], g)
	}

	for i, s := range book.Students {
		row := []interface{}{s.Name, s.Email}
		scores := make(map[string]float64)
		var pctTotal float64
		for _, g := range byStudent[s.ID] {
			scores[g.Title] = g.Score
			if g.MaxScore > 0 {
				pctTotal += g.Score / g.MaxScore * 100
			}
		}
		for _, t := range titles {
			if score, ok := scores[t]; ok {
				row = append(row, score)
			} else {
				row = append(row, "")
			}
		}
		if n := len(byStudent[s.ID]); n > 0 {
			row = append(row, core.Round(pctTotal/float64(n), 1))
		} else {
			row = append(row, "")
		}
		if err = setRow(f, i+2, row); err != nil {
			return err
		}
	}

	return errors.Wrap(f.Write(w), "writing gradebook")
}

func setRow(f *excelize.File, row int, values []interface{}) error {
	for col, val := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return errors.Wrap(err, "naming cell")
		}
		if err = f.SetCellValue(GradebookSheet, cell, val); err != nil {
			return errors.Wrapf(err, "setting %s", cell)
		}
	}
	return nil
}

func toInterfaces(ss []string) []interface{} {
	res := make([]interface{}, 0, len(ss))
	for _, s := range ss {
		res = append(res, s)
	}
	return res
}
