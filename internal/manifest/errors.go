package manifest

import (
	"fmt"
	"strings"
)

// FileError describes why one manifest file was rejected.
type FileError struct {
	FilePath  string // Full path to the file that caused the error
	FileName  string // Base name of the file
	ErrorType string // Type of error (parse, validation, conflict)
	Message   string // Human-readable error message
}

// Error implements the error interface
func (fe FileError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", fe.ErrorType, fe.FileName, fe.Message)
}

// ScanError aggregates every problem found in one directory scan. A scan
// with errors is rejected as a whole: a partially loaded directory would be
// a self-contradictory target.
type ScanError struct {
	Directory string
	Errors    []FileError
}

// Error implements the error interface for the collection
func (se *ScanError) Error() string {
	if len(se.Errors) == 0 {
		return fmt.Sprintf("no manifest errors in %s", se.Directory)
	}
	if len(se.Errors) == 1 {
		return fmt.Sprintf("manifest scan of %s rejected: %s", se.Directory, se.Errors[0].Error())
	}

	var messages []string
	for _, err := range se.Errors {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("manifest scan of %s rejected, %d errors: %s",
		se.Directory, len(se.Errors), strings.Join(messages, "; "))
}

// HasErrors returns true if the scan collected any errors.
func (se *ScanError) HasErrors() bool {
	return len(se.Errors) > 0
}

// Add records a new file error.
func (se *ScanError) Add(filePath, errorType, message string) {
	se.Errors = append(se.Errors, FileError{
		FilePath:  filePath,
		FileName:  baseName(filePath),
		ErrorType: errorType,
		Message:   message,
	})
}
