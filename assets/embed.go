// Package assets embeds the default word lists.
//
//   - answers.txt:    WORD,Category per line
//   - categories.txt: Name|Description per line
//   - allowed.txt:    one valid guess per line
//
// Blank lines and lines starting with # are skipped.
package assets

import (
	"bufio"
	"embed"
	"strings"
)

//go:embed allowed.txt answers.txt categories.txt
var FS embed.FS

func readLines(name string) ([]string, error) {
	f, err := FS.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		s := strings.TrimSpace(sc.Text())
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}
		out = append(out, s)
	}
	return out, sc.Err()
}

func AnswersList() ([]string, error) {
	return readLines("answers.txt")
}

func AllowedList() ([]string, error) {
	return readLines("allowed.txt")
}

func CategoriesList() ([]string, error) {
	return readLines("categories.txt")
}
