package processing

import (
	"github.com/dyike/MacroAgent/models"
)

// Align truncates the inputs to the shortest one and zips them by position.
// Row i holds the i-th observation of each series; period labels are not
// compared. No inputs, or any empty input, yields no rows.
func Align(series ...models.Series) [][]models.Observation {
	n := MinLength(series...)
	if n == 0 {
		return nil
	}

	rows := make([][]models.Observation, n)
	for i := 0; i < n; i++ {
		row := make([]models.Observation, len(series))
		for j, s := range series {
			row[j] = s.Observations[i]
		}
		rows[i] = row
	}
	return rows
}

// MinLength returns the length of the shortest series, or 0 for no input.
func MinLength(series ...models.Series) int {
	if len(series) == 0 {
		return 0
	}
	n := series[0].Len()
	for _, s := range series[1:] {
		if s.Len() < n {
			n = s.Len()
		}
	}
	return n
}
