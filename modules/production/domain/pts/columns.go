package pts

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// PartColumns maps Raw Data fields to column letters.
type PartColumns struct {
	ProjectNumber       string `yaml:"project_number"`
	Designation         string `yaml:"designation"`
	AssemblyMark        string `yaml:"assembly_mark"`
	SubAssemblyMark     string `yaml:"sub_assembly_mark"`
	PartMark            string `yaml:"part_mark"`
	Quantity            string `yaml:"quantity"`
	Name                string `yaml:"name"`
	Profile             string `yaml:"profile"`
	Grade               string `yaml:"grade"`
	LengthMm            string `yaml:"length_mm"`
	AreaPerUnit         string `yaml:"area_per_unit"`
	AreaTotal           string `yaml:"area_total"`
	WeightPerUnit       string `yaml:"weight_per_unit"`
	WeightTotal         string `yaml:"weight_total"`
	BuildingDesignation string `yaml:"building_designation"`
	BuildingName        string `yaml:"building_name"`
}

// LogColumns maps Log sheet fields to column letters.
type LogColumns struct {
	PartNumber     string `yaml:"part_number"`
	Process        string `yaml:"process"`
	ProcessedQty   string `yaml:"processed_qty"`
	Date           string `yaml:"date"`
	Location       string `yaml:"location"`
	ProcessedBy    string `yaml:"processed_by"`
	ReportNumber   string `yaml:"report_number"`
	ProjectNumber  string `yaml:"project_number"`
	WeightPerPiece string `yaml:"weight_per_piece"`
	BuildingName   string `yaml:"building_name"`
}

type ColumnMapping struct {
	Parts PartColumns `yaml:"raw_data"`
	Logs  LogColumns  `yaml:"log"`
}

func DefaultColumnMapping() ColumnMapping {
	return ColumnMapping{
		Parts: PartColumns{
			ProjectNumber:       "B",
			Designation:         "C",
			AssemblyMark:        "E",
			SubAssemblyMark:     "F",
			PartMark:            "G",
			Quantity:            "H",
			Name:                "I",
			Profile:             "J",
			Grade:               "K",
			LengthMm:            "L",
			AreaPerUnit:         "M",
			AreaTotal:           "N",
			WeightPerUnit:       "O",
			WeightTotal:         "P",
			BuildingDesignation: "R",
			BuildingName:        "T",
		},
		Logs: LogColumns{
			PartNumber:     "B",
			Process:        "C",
			ProcessedQty:   "D",
			Date:           "E",
			Location:       "F",
			ProcessedBy:    "G",
			ReportNumber:   "H",
			ProjectNumber:  "I",
			WeightPerPiece: "J",
			BuildingName:   "R",
		},
	}
}

// LoadColumnMapping reads overrides from a YAML file on top of the defaults.
// An empty path returns the defaults.
func LoadColumnMapping(path string) (ColumnMapping, error) {
	m := DefaultColumnMapping()
	if path == "" {
		return m, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return ColumnMapping{}, fmt.Errorf("read column mapping: %w", err)
	}
	if err := yaml.Unmarshal(b, &m); err != nil {
		return ColumnMapping{}, fmt.Errorf("parse column mapping %s: %w", path, err)
	}
	if err := m.Validate(); err != nil {
		return ColumnMapping{}, fmt.Errorf("column mapping %s: %w", path, err)
	}
	return m, nil
}

func (m ColumnMapping) Validate() error {
	letters := map[string]string{
		"raw_data.project_number":       m.Parts.ProjectNumber,
		"raw_data.designation":          m.Parts.Designation,
		"raw_data.building_designation": m.Parts.BuildingDesignation,
		"log.part_number":               m.Logs.PartNumber,
		"log.process":                   m.Logs.Process,
	}
	for field, letter := range letters {
		if _, err := ColumnIndex(letter); err != nil {
			return fmt.Errorf("%s: %w", field, err)
		}
	}
	return nil
}
