package normalize

import (
	"fmt"

	"github.com/gdgc-dbit/leaderboard-sync/internal/leaderboard"
)

// Result is the outcome of normalizing a whole table
type Result struct {
	Participants []leaderboard.Participant

	// Skipped counts data rows without a usable name
	Skipped int

	// Duplicates lists names seen again after their first row; later rows are dropped
	Duplicates []string
}

// Table normalizes a header row and its data rows. Rows keep their order;
// OriginalIndex is the position among the kept rows.
func Table(headers []string, rows [][]string) (*Result, error) {
	cols, err := ResolveColumns(headers)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve columns: %w", err)
	}

	res := &Result{Participants: make([]leaderboard.Participant, 0, len(rows))}
	seen := make(map[string]bool, len(rows))
	for _, row := range rows {
		p, ok := cols.Participant(row, len(res.Participants))
		if !ok {
			res.Skipped++
			continue
		}
		if seen[p.Name] {
			res.Duplicates = append(res.Duplicates, p.Name)
			continue
		}
		seen[p.Name] = true
		res.Participants = append(res.Participants, p)
	}
	return res, nil
}
