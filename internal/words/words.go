// internal/words/words.go
//
// Dictionary of answer words (with categories) and valid guesses.
//
// Load behaviour:
//   1. answersPath and allowedPath both set:
//      answers from the first file, allowed guesses from the second.
//   2. Only allowedPath set:
//      that file serves as both answers and allowed guesses.
//   3. Only answersPath set:
//      answers from the file, allowed guesses from the embedded list.
//   4. Neither set:
//      embedded answers.txt / allowed.txt.
//
// Answer lines are "WORD" or "WORD,Category"; words without a category land
// in "General". Category descriptions always come from the embedded
// categories.txt.
//
// Constraints:
//   • Words must be 5 letters A–Z.
//   • Lists are normalised to upper case.
//   • Answers are always valid guesses.

package words

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/robalobadob/wordle-league/assets"
	"github.com/robalobadob/wordle-league/internal/game"
)

// DefaultCategory is used for answer lines that name no category.
const DefaultCategory = "General"

// Entry is an answer word and its category name.
type Entry struct {
	Text     string
	Category string
}

// Dictionary is immutable after Load and safe for concurrent use.
type Dictionary struct {
	answers    []Entry
	categories []game.Category
	answerSet  map[string]struct{}
	allowedSet map[string]struct{}
}

// Load builds a Dictionary from the given files, falling back to the
// embedded lists. Returns an error if the answers list ends up empty.
func Load(answersPath, allowedPath string) (*Dictionary, error) {
	var (
		ansLines, allowLines []string
		err                  error
	)

	switch {
	case answersPath != "" && allowedPath != "":
		if ansLines, err = readWordFile(answersPath); err != nil {
			return nil, err
		}
		if allowLines, err = readWordFile(allowedPath); err != nil {
			return nil, err
		}
	case allowedPath != "":
		if allowLines, err = readWordFile(allowedPath); err != nil {
			return nil, err
		}
		ansLines = allowLines
	case answersPath != "":
		if ansLines, err = readWordFile(answersPath); err != nil {
			return nil, err
		}
		if allowLines, err = assets.AllowedList(); err != nil {
			return nil, fmt.Errorf("words: embedded allowed list: %w", err)
		}
	default:
		if ansLines, err = assets.AnswersList(); err != nil {
			return nil, fmt.Errorf("words: embedded answers: %w", err)
		}
		if allowLines, err = assets.AllowedList(); err != nil {
			return nil, fmt.Errorf("words: embedded allowed list: %w", err)
		}
	}

	catLines, err := assets.CategoriesList()
	if err != nil {
		return nil, fmt.Errorf("words: embedded categories: %w", err)
	}
	return build(ansLines, allowLines, catLines)
}

func build(ansLines, allowLines, catLines []string) (*Dictionary, error) {
	d := &Dictionary{
		answerSet:  make(map[string]struct{}),
		allowedSet: make(map[string]struct{}),
	}

	known := make(map[string]bool)
	for _, line := range catLines {
		name, desc, _ := strings.Cut(line, "|")
		name = strings.TrimSpace(name)
		if name == "" || known[name] {
			continue
		}
		known[name] = true
		d.categories = append(d.categories, game.Category{Name: name, Description: strings.TrimSpace(desc)})
	}

	for _, line := range ansLines {
		e, ok := parseAnswer(line)
		if !ok {
			continue
		}
		if _, dup := d.answerSet[e.Text]; dup {
			continue
		}
		d.answerSet[e.Text] = struct{}{}
		d.allowedSet[e.Text] = struct{}{}
		d.answers = append(d.answers, e)
		if !known[e.Category] {
			known[e.Category] = true
			d.categories = append(d.categories, game.Category{Name: e.Category})
		}
	}
	for _, line := range allowLines {
		w, _, _ := strings.Cut(line, ",")
		w = game.Normalize(w)
		if valid(w) {
			d.allowedSet[w] = struct{}{}
		}
	}

	if len(d.answers) == 0 {
		return nil, errors.New("words: answers list is empty")
	}
	return d, nil
}

// parseAnswer reads "WORD" or "WORD,Category".
func parseAnswer(line string) (Entry, bool) {
	text, cat, _ := strings.Cut(line, ",")
	text = game.Normalize(text)
	if !valid(text) {
		return Entry{}, false
	}
	cat = strings.TrimSpace(cat)
	if cat == "" {
		cat = DefaultCategory
	}
	return Entry{Text: text, Category: cat}, true
}

// readWordFile loads non-blank, non-comment lines from a file.
func readWordFile(path string) ([]string, error) {
	f, err := os.Open(path)
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

// valid reports whether w is exactly WordLength upper-case ASCII letters.
func valid(w string) bool {
	if len(w) != game.WordLength {
		return false
	}
	for _, r := range w {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

// IsValid reports whether w may be submitted as a guess.
func (d *Dictionary) IsValid(w string) bool {
	_, ok := d.allowedSet[game.Normalize(w)]
	return ok
}

// IsAnswer reports whether w is an answer word.
func (d *Dictionary) IsAnswer(w string) bool {
	_, ok := d.answerSet[game.Normalize(w)]
	return ok
}

// Answers returns a copy of the answer entries in file order.
func (d *Dictionary) Answers() []Entry {
	return append([]Entry(nil), d.answers...)
}

// Categories returns a copy of the known categories.
func (d *Dictionary) Categories() []game.Category {
	return append([]game.Category(nil), d.categories...)
}

// Stats returns counts of loaded words: (answers, allowed).
func (d *Dictionary) Stats() (answersCount int, allowedCount int) {
	return len(d.answers), len(d.allowedSet)
}
