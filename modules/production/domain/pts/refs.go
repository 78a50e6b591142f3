package pts

import "fmt"

// PartExternalRef is the provenance reference stored on a synced part.
func PartExternalRef(designation string) string {
	return designation
}

// LogExternalRef identifies one log row across runs. The row number keeps
// same-day entries for the same part and process distinct.
func LogExternalRef(source string, rowNumber int, partDesignation, processType string) string {
	return fmt.Sprintf("%s-%d-%s-%s", source, rowNumber, partDesignation, processType)
}
