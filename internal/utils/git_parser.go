package utils

import (
	"strings"
)

// ParseFileList splits newline separated git output into file paths,
// dropping blanks and duplicates.
func ParseFileList(output string) []string {
	if output == "" {
		return []string{}
	}

	var files []string
	seen := make(map[string]bool)
	lines := strings.SplitSeq(strings.TrimSpace(output), "\n")

	for line := range lines {
		line = strings.TrimSpace(line)
		if line != "" && !seen[line] {
			seen[line] = true
			files = append(files, line)
		}
	}

	if files == nil {
		return []string{}
	}
	return files
}
