package models

// Observation is a single (period, value) pair as reported by a source API.
// Values are kept as strings; numeric validity is not checked.
type Observation struct {
	Period string `json:"period"`
	Value  string `json:"value"`
}

// Series is an ordered list of observations from one source, kept in the
// order the API returned them.
type Series struct {
	Name         string        `json:"name"`
	Source       string        `json:"source"`
	Observations []Observation `json:"observations"`
}

func (s Series) Len() int {
	return len(s.Observations)
}

func (s Series) Empty() bool {
	return len(s.Observations) == 0
}

// Table is a positionally aligned set of series ready for rendering.
type Table struct {
	Title   string     `json:"title"`
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}
