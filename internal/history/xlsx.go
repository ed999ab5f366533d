package history

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/sweeney/greenhouse-controller/internal/logic"
)

const (
	ReadingsSheet = "Readings"
	TriggersSheet = "Triggers"
)

var readingsHeader = []string{"Minute (UTC)", "Temp F", "Fan Signal", "Moisture A", "Moisture B", "Humidity", "Readings"}

// WriteXLSX writes the result as a workbook with one sheet of bucket means and
// one sheet of per-minute trigger states.
func WriteXLSX(w io.Writer, res Result) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(ReadingsSheet)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	if _, err := f.NewSheet(TriggersSheet); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("failed to delete default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3E6"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	if err := writeRow(f, ReadingsSheet, 1, toAny(readingsHeader)); err != nil {
		return err
	}
	for i, b := range res.Series {
		row := []any{b.MinuteStart.Format(time.RFC3339), b.TempF, b.FanSignal, b.MoistureA, b.MoistureB, b.Humidity, b.ReadingCount}
		if err := writeRow(f, ReadingsSheet, i+2, row); err != nil {
			return err
		}
	}

	triggerHeader := []any{"Minute (UTC)"}
	for _, d := range logic.Definitions {
		triggerHeader = append(triggerHeader, d.Name)
	}
	if err := writeRow(f, TriggersSheet, 1, triggerHeader); err != nil {
		return err
	}
	for i, key := range res.Triggers.Keys() {
		states := res.Triggers[key]
		row := []any{key.Format(time.RFC3339)}
		for _, d := range logic.Definitions {
			active, ok := states[d.Name]
			switch {
			case !ok:
				row = append(row, "")
			case active:
				row = append(row, "ON")
			default:
				row = append(row, "OFF")
			}
		}
		if err := writeRow(f, TriggersSheet, i+2, row); err != nil {
			return err
		}
	}

	for _, sheet := range []struct {
		name string
		cols int
	}{{ReadingsSheet, len(readingsHeader)}, {TriggersSheet, len(triggerHeader)}} {
		last, err := excelize.CoordinatesToCellName(sheet.cols, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet.name, "A1", last, headerStyle); err != nil {
			return fmt.Errorf("failed to set header style: %w", err)
		}
		if err := f.SetColWidth(sheet.name, "A", "A", 22); err != nil {
			return fmt.Errorf("failed to set column width: %w", err)
		}
		if err := f.SetPanes(sheet.name, &excelize.Panes{
			Freeze:      true,
			YSplit:      1,
			TopLeftCell: "A2",
			ActivePane:  "bottomLeft",
		}); err != nil {
			return fmt.Errorf("failed to freeze panes: %w", err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
