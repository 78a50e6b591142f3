package pts

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ErrBlankRow marks a row with no content; callers classify it as a skip.
var ErrBlankRow = errors.New("blank row")

// ParseError describes a row that could not be turned into a record.
type ParseError struct {
	Row    int
	Field  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("row %d: %s: %s", e.Row, e.Field, e.Reason)
}

// PartRecord is a typed Raw Data row.
type PartRecord struct {
	Row                 int
	ProjectNumber       string
	Designation         string
	AssemblyMark        string
	SubAssemblyMark     *string
	PartMark            string
	Quantity            int
	Name                string
	Profile             string
	Grade               *string
	LengthMm            *float64
	AreaPerUnit         *float64
	AreaTotal           *float64
	WeightPerUnit       *float64
	WeightTotal         *float64
	BuildingDesignation string
	BuildingName        string
}

// LogRecord is a typed Log row. DateOK is false when the date cell was
// missing or unparsable; Date is then zero.
type LogRecord struct {
	Row             int
	PartDesignation string
	ProcessType     string
	ProcessedQty    int
	Date            time.Time
	DateOK          bool
	RawDate         string
	Location        *string
	ProcessedBy     *string
	ReportNumber    *string
	ProjectNumber   string
	WeightPerPiece  *float64
	BuildingName    string
}

func ParsePartRow(row SourceRow, m PartColumns) (PartRecord, error) {
	if row.Blank() {
		return PartRecord{}, ErrBlankRow
	}
	rec := PartRecord{
		Row:                 row.Number,
		ProjectNumber:       row.Cell(m.ProjectNumber),
		Designation:         row.Cell(m.Designation),
		AssemblyMark:        row.Cell(m.AssemblyMark),
		SubAssemblyMark:     optional(row.Cell(m.SubAssemblyMark)),
		PartMark:            row.Cell(m.PartMark),
		Quantity:            positiveInt(row.Cell(m.Quantity)),
		Name:                row.Cell(m.Name),
		Profile:             row.Cell(m.Profile),
		Grade:               optional(row.Cell(m.Grade)),
		LengthMm:            nonNegative(row.Cell(m.LengthMm)),
		AreaPerUnit:         nonNegative(row.Cell(m.AreaPerUnit)),
		AreaTotal:           nonNegative(row.Cell(m.AreaTotal)),
		WeightPerUnit:       nonNegative(row.Cell(m.WeightPerUnit)),
		WeightTotal:         nonNegative(row.Cell(m.WeightTotal)),
		BuildingDesignation: row.Cell(m.BuildingDesignation),
		BuildingName:        row.Cell(m.BuildingName),
	}
	if rec.ProjectNumber == "" {
		return PartRecord{}, &ParseError{Row: row.Number, Field: "project_number", Reason: "missing project number"}
	}
	if rec.Designation == "" {
		return PartRecord{}, &ParseError{Row: row.Number, Field: "designation", Reason: "missing part designation"}
	}
	return rec, nil
}

func ParseLogRow(row SourceRow, m LogColumns) (LogRecord, error) {
	if row.Blank() {
		return LogRecord{}, ErrBlankRow
	}
	rec := LogRecord{
		Row:             row.Number,
		PartDesignation: row.Cell(m.PartNumber),
		ProcessType:     NormalizeProcess(row.Cell(m.Process)),
		ProcessedQty:    positiveInt(row.Cell(m.ProcessedQty)),
		RawDate:         row.Cell(m.Date),
		Location:        optional(row.Cell(m.Location)),
		ProcessedBy:     optional(row.Cell(m.ProcessedBy)),
		ReportNumber:    optional(row.Cell(m.ReportNumber)),
		ProjectNumber:   row.Cell(m.ProjectNumber),
		WeightPerPiece:  nonNegative(row.Cell(m.WeightPerPiece)),
		BuildingName:    row.Cell(m.BuildingName),
	}
	rec.Date, rec.DateOK = ParseDate(rec.RawDate)
	if rec.PartDesignation == "" {
		return LogRecord{}, &ParseError{Row: row.Number, Field: "part_number", Reason: "missing part number"}
	}
	if rec.ProcessType == "" {
		return LogRecord{}, &ParseError{Row: row.Number, Field: "process", Reason: "missing process"}
	}
	return rec, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// positiveInt accepts integers and truncates decimals; anything missing,
// unparsable, below 1 or above the int4 range becomes 1.
func positiveInt(s string) int {
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 1
	}
	if n, err := strconv.Atoi(s); err == nil {
		if n < 1 || n > math.MaxInt32 {
			return 1
		}
		return n
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || f < 1 || f > math.MaxInt32 {
		return 1
	}
	return int(f)
}

func nonNegative(s string) *float64 {
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}
