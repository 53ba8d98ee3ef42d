// Package normalize turns raw spreadsheet rows into canonical participants.
//
// Header matching is done on a folded key: the header is case folded, accents
// are decomposed and dropped, and everything outside [a-z0-9] is removed, so
// "# of Skill Badges Completed" and "ofSkillBadgesCompleted" resolve to the same column.
// Cell coercion only accepts the enumerated tokens below.
package normalize

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/gdgc-dbit/leaderboard-sync/internal/leaderboard"
)

var (
	// ErrNoNameColumn is returned when no header maps to the participant name
	ErrNoNameColumn = errors.New("no participant name column")

	// ErrNoProgressColumn is returned when no header maps to the completed paths count
	ErrNoProgressColumn = errors.New("no completed paths column")
)

var (
	nameKeys     = []string{"username", "name", "participantname"}
	progressKeys = []string{"ofskillbadgescompleted", "ofskillbadges", "skillbadgescompleted", "completedpaths"}
	eligibleKeys = []string{"eligibleforgoodies"}
)

const arcadeFragment = "arcade"

var (
	arcadeYesTokens = map[string]bool{"1": true, "1.0": true, "yes": true, "y": true, "true": true}
	arcadeNoTokens  = map[string]bool{"0": true, "0.0": true, "no": true, "n": true, "false": true}
	eligibleTokens  = map[string]bool{"true": true, "yes": true, "y": true, "1": true}
)

var folder = cases.Fold()

// HeaderKey folds a header into its matching key.
func HeaderKey(header string) string {
	folded := folder.String(norm.NFKD.String(header))
	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Columns holds the resolved column positions of a table; -1 means absent.
type Columns struct {
	Name     int
	Progress int
	Arcade   int
	Eligible int
}

// ResolveColumns maps headers to columns. Name and progress are required.
// The arcade column is the first header, in column order, containing "arcade".
func ResolveColumns(headers []string) (Columns, error) {
	cols := Columns{Name: -1, Progress: -1, Arcade: -1, Eligible: -1}

	keys := make([]string, len(headers))
	for i, h := range headers {
		keys[i] = HeaderKey(h)
	}

	cols.Name = firstMatch(keys, nameKeys)
	cols.Progress = firstMatch(keys, progressKeys)
	cols.Eligible = firstMatch(keys, eligibleKeys)
	for i, k := range keys {
		if strings.Contains(k, arcadeFragment) {
			cols.Arcade = i
			break
		}
	}

	if cols.Name < 0 {
		return cols, fmt.Errorf("%w in headers %q", ErrNoNameColumn, headers)
	}
	if cols.Progress < 0 {
		return cols, fmt.Errorf("%w in headers %q", ErrNoProgressColumn, headers)
	}
	return cols, nil
}

// firstMatch returns the column of the first candidate key present, by candidate priority.
func firstMatch(keys []string, candidates []string) int {
	for _, c := range candidates {
		for i, k := range keys {
			if k == c {
				return i
			}
		}
	}
	return -1
}

// Participant builds the canonical participant for one data row.
// It returns false when the row has no usable name.
func (c Columns) Participant(cells []string, index int) (leaderboard.Participant, bool) {
	name := Name(cell(cells, c.Name))
	if name == "" {
		return leaderboard.Participant{}, false
	}
	return leaderboard.Participant{
		Name:               name,
		CompletedPaths:     CompletedPaths(cell(cells, c.Progress)),
		TotalPaths:         leaderboard.TotalPaths,
		ArcadeGames:        Arcade(cell(cells, c.Arcade)),
		EligibleForGoodies: Eligible(cell(cells, c.Eligible)),
		OriginalIndex:      index,
	}, true
}

func cell(cells []string, i int) string {
	if i < 0 || i >= len(cells) {
		return ""
	}
	return cells[i]
}

// Name canonicalizes a participant name: NFC form, trimmed, inner whitespace collapsed.
func Name(raw string) string {
	return strings.Join(strings.FieldsFunc(norm.NFC.String(raw), unicode.IsSpace), " ")
}

// CompletedPaths parses "n/19" or "n". Unparseable values are 0 and the result
// is clamped to 0..TotalPaths.
func CompletedPaths(raw string) int {
	s := strings.TrimSpace(raw)
	if i := strings.IndexByte(s, '/'); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0
		}
		n = int(min(max(f, 0), leaderboard.TotalPaths))
	}
	return min(max(n, 0), leaderboard.TotalPaths)
}

// Arcade maps a cell to the tri-state arcade flag. Enumerated tokens are
// checked first; otherwise a number of at least one is Yes and zero is No.
func Arcade(raw string) leaderboard.ArcadeStatus {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case s == "":
		return leaderboard.ArcadeUnknown
	case arcadeYesTokens[s]:
		return leaderboard.ArcadeYes
	case arcadeNoTokens[s]:
		return leaderboard.ArcadeNo
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return leaderboard.ArcadeUnknown
	}
	if f >= 1 {
		return leaderboard.ArcadeYes
	}
	if f == 0 {
		return leaderboard.ArcadeNo
	}
	return leaderboard.ArcadeUnknown
}

// Eligible reports whether the goodies cell is one of the accepted true tokens.
func Eligible(raw string) bool {
	return eligibleTokens[strings.ToLower(strings.TrimSpace(raw))]
}
