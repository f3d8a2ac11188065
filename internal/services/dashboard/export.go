package dashboard

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/LeonardoBeccarini/agrisense/internal/evaluator"
	"github.com/LeonardoBeccarini/agrisense/internal/model/entities"
	"github.com/LeonardoBeccarini/agrisense/internal/recommend"
)

const exportStamp = "20060102_150405"

// ReadingsHeader is the column layout of the readings export.
func ReadingsHeader() []string {
	h := []string{"timestamp", "entry_id", "latitude", "longitude"}
	for _, f := range entities.AllFields {
		h = append(h, string(f))
	}
	return h
}

// readingRow formats one reading; missing values are empty cells.
func readingRow(r entities.Reading) []string {
	row := []string{r.Timestamp.UTC().Format(time.RFC3339), "", "", ""}
	if r.EntryID != 0 {
		row[1] = strconv.FormatInt(r.EntryID, 10)
	}
	if r.GPS != nil {
		row[2] = formatFloat(r.GPS.Latitude)
		row[3] = formatFloat(r.GPS.Longitude)
	}
	for _, f := range entities.AllFields {
		if v, ok := r.Value(f); ok {
			row = append(row, formatFloat(v))
		} else {
			row = append(row, "")
		}
	}
	return row
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

// WriteReadingsCSV writes the window, oldest first.
func WriteReadingsCSV(w io.Writer, readings []entities.Reading) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ReadingsHeader()); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range readings {
		if err := cw.Write(readingRow(r)); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Report is the full JSON export of a snapshot.
type Report struct {
	Timestamp       time.Time                                 `json:"timestamp"`
	CycleID         string                                    `json:"cycle_id"`
	Profile         string                                    `json:"profile"`
	Freshness       Freshness                                 `json:"freshness"`
	SensorData      *entities.Reading                         `json:"sensor_data"`
	WeatherData     *entities.WeatherSnapshot                 `json:"weather_data"`
	DataQuality     evaluator.Quality                         `json:"data_quality"`
	Statistics      map[entities.Field]evaluator.FieldStats   `json:"statistics"`
	Trends          map[entities.Field]evaluator.TrendSummary `json:"trends"`
	Anomalies       []entities.Field                          `json:"anomalies"`
	Alerts          []entities.Alert                          `json:"alerts"`
	Indices         evaluator.Indices                         `json:"indices"`
	Recommendations []recommend.Advice                        `json:"recommendations"`
}

func BuildReport(s *Snapshot) Report {
	rep := Report{
		Timestamp:       s.GeneratedAt,
		CycleID:         s.CycleID,
		Profile:         s.Profile,
		Freshness:       s.Freshness,
		WeatherData:     s.Weather,
		Anomalies:       []entities.Field{},
		Alerts:          s.Alerts(),
		Recommendations: s.Recommendations.All(),
	}
	if res := s.Result; res != nil {
		rep.SensorData = res.Latest
		rep.DataQuality = res.Quality
		rep.Statistics = res.Stats
		rep.Trends = res.Trends
		rep.Indices = res.Indices
		if a := res.Anomalies(); a != nil {
			rep.Anomalies = a
		}
	}
	return rep
}

// WriteReportXLSX writes a workbook with Summary, Readings, Alerts and
// Recommendations sheets.
func WriteReportXLSX(w io.Writer, s *Snapshot) error {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	sheets := []struct {
		name   string
		header []string
		rows   [][]any
	}{
		{"Summary", []string{"Key", "Value"}, summaryRows(s)},
		{"Readings", ReadingsHeader(), readingRows(s.Readings)},
		{"Alerts", []string{"Kind", "Field", "Tier", "Direction", "Value", "Message"}, alertRows(s)},
		{"Recommendations", []string{"Category", "Priority", "Action", "Timing", "Reason"}, adviceRows(s)},
	}

	for i, sh := range sheets {
		idx, err := f.NewSheet(sh.name)
		if err != nil {
			return fmt.Errorf("create sheet %s: %w", sh.name, err)
		}
		if i == 0 {
			f.SetActiveSheet(idx)
		}
		if err := writeSheet(f, sh.name, sh.header, sh.rows, headerStyle); err != nil {
			return err
		}
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("drop default sheet: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, header []string, rows [][]any, style int) error {
	hdr := make([]any, len(header))
	for i, h := range header {
		hdr[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &hdr); err != nil {
		return fmt.Errorf("%s header: %w", sheet, err)
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, style); err != nil {
		return fmt.Errorf("%s header style: %w", sheet, err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := row
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("%s row %d: %w", sheet, i+2, err)
		}
	}
	lastCol, err := excelize.ColumnNumberToName(len(header))
	if err != nil {
		return err
	}
	if err := f.SetColWidth(sheet, "A", lastCol, 18); err != nil {
		return fmt.Errorf("%s column width: %w", sheet, err)
	}
	return f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func summaryRows(s *Snapshot) [][]any {
	rows := [][]any{
		{"Generated at", s.GeneratedAt.Format(time.RFC3339)},
		{"Cycle", s.CycleID},
		{"Profile", s.Profile},
		{"Freshness", string(s.Freshness)},
		{"Readings", len(s.Readings)},
		{"Data unavailable", s.DataUnavailable},
		{"Weather", string(s.Recommendations.Weather)},
	}
	if res := s.Result; res != nil {
		rows = append(rows, []any{"Quality score", res.QualityScore})
		if v := res.Indices.Fertility; v != nil {
			rows = append(rows, []any{"Fertility index", *v})
		}
		if v := res.Indices.SoilHealth; v != nil {
			rows = append(rows, []any{"Soil health score", *v})
		}
		if v := res.Indices.WaterStress; v != nil {
			rows = append(rows, []any{"Water stress index", *v})
		}
	}
	return rows
}

func readingRows(readings []entities.Reading) [][]any {
	out := make([][]any, 0, len(readings))
	for _, r := range readings {
		row := []any{r.Timestamp.UTC().Format(time.RFC3339), nil, nil, nil}
		if r.EntryID != 0 {
			row[1] = r.EntryID
		}
		if r.GPS != nil {
			row[2], row[3] = r.GPS.Latitude, r.GPS.Longitude
		}
		for _, f := range entities.AllFields {
			if v, ok := r.Value(f); ok {
				row = append(row, v)
			} else {
				row = append(row, nil)
			}
		}
		out = append(out, row)
	}
	return out
}

func alertRows(s *Snapshot) [][]any {
	alerts := s.Alerts()
	out := make([][]any, 0, len(alerts))
	for _, a := range alerts {
		var v any
		if a.Value != nil {
			v = *a.Value
		}
		out = append(out, []any{string(a.Kind), string(a.Field), string(a.Tier), string(a.Direction), v, a.Message})
	}
	return out
}

func adviceRows(s *Snapshot) [][]any {
	var out [][]any
	for _, a := range s.Recommendations.All() {
		out = append(out, []any{string(a.Category), string(a.Priority), a.Action, a.Timing, a.Reason})
	}
	return out
}

func exportName(prefix, ext string, at time.Time) string {
	return fmt.Sprintf("%s_%s.%s", prefix, at.UTC().Format(exportStamp), ext)
}
