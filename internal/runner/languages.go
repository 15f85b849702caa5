package runner

import (
	"regexp"
	"strings"

	"github.com/agusespa/testscope/internal/types"
	"github.com/agusespa/testscope/internal/utils"
)

// DefaultCommands holds the argv templates used to run one test unit per
// language. Placeholders are expanded by expandArgs.
var DefaultCommands = map[string][]string{
	"java":       {"mvn", "-q", "test", "-Dtest={class}"},
	"go":         {"go", "test", "-run", "^({tests})$", "./{dir}"},
	"python":     {"python", "-m", "pytest", "-q", "{file}"},
	"typescript": {"npx", "jest", "{file}"},
	"c":          {"ctest", "--output-on-failure", "-R", "{stem}"},
}

// MergeCommands overlays overrides on the defaults. Empty overrides are
// ignored.
func MergeCommands(overrides map[string][]string) map[string][]string {
	merged := make(map[string][]string, len(DefaultCommands)+len(overrides))
	for lang, argv := range DefaultCommands {
		merged[lang] = append([]string(nil), argv...)
	}
	for lang, argv := range overrides {
		if len(argv) == 0 {
			continue
		}
		merged[strings.ToLower(lang)] = append([]string(nil), argv...)
	}
	return merged
}

// expandArgs replaces placeholders in a command template:
//
//	{id}      test unit identifier
//	{class}   last dotted segment of the identifier
//	{package} package or directory reported by the parser
//	{file}    repository-relative path of the test file
//	{dir}     directory of the test file
//	{stem}    file name without extension
//	{tests}   test entry points joined as a regex alternation
func expandArgs(template []string, unit types.TestUnit) []string {
	class := unit.ID
	if i := strings.LastIndex(class, "."); i >= 0 && unit.Language == "java" {
		class = class[i+1:]
	}

	dir := "."
	if i := strings.LastIndex(unit.Path, "/"); i >= 0 {
		dir = unit.Path[:i]
	}

	quoted := make([]string, len(unit.TestMethods))
	for i, m := range unit.TestMethods {
		quoted[i] = regexp.QuoteMeta(m)
	}

	replacer := strings.NewReplacer(
		"{id}", unit.ID,
		"{class}", class,
		"{package}", unit.Package,
		"{file}", unit.Path,
		"{dir}", dir,
		"{stem}", utils.FileStem(unit.Path),
		"{tests}", strings.Join(quoted, "|"),
	)

	args := make([]string, len(template))
	for i, arg := range template {
		args[i] = replacer.Replace(arg)
	}
	return args
}
