package chatparse

import "strings"

const (
	validateMinLines = 10
	validateScanCap  = 50
)

// ValidateExport is a cheap pre-parse sanity check so a caller can reject
// obviously wrong uploads before paying for a full parse. It checks that the
// input is non-empty, has a minimum number of non-blank lines, and that at
// least one of the first lines matches a known header grammar.
func ValidateExport(raw string) ValidationResult {
	result := ValidationResult{IsValid: true}

	if strings.TrimSpace(raw) == "" {
		result.IsValid = false
		result.Errors = append(result.Errors, "export file is empty")
		result.Suggestions = append(result.Suggestions, "export the chat again and upload the resulting .txt file")
		return result
	}

	var nonBlank int
	var matched bool
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		nonBlank++
		if !matched && nonBlank <= validateScanCap && matchHeader(line) != nil {
			matched = true
		}
	}

	if nonBlank < validateMinLines {
		result.IsValid = false
		result.Errors = append(result.Errors, "export contains too few lines to be a chat log")
		result.Suggestions = append(result.Suggestions, "make sure you exported the full conversation history")
	}
	if !matched {
		result.IsValid = false
		result.Errors = append(result.Errors, "no recognizable message lines found")
		result.Suggestions = append(result.Suggestions, "upload an unmodified chat export; custom formats are not supported")
	}

	return result
}
