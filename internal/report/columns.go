// Package report turns a list of backend records into the grid a report page
// shows: filtered, searched, sorted, grouped, summarised and paged. Exporters
// consume the same View so a download always matches what is on screen.
package report

// Kind decides how a column is compared, formatted and exported.
type Kind int

const (
	Text   Kind = iota // left-aligned free text
	Number             // identifiers that sort numerically, e.g. job numbers
	Money              // currency, two decimals
	Date               // date only
	Bool               // rendered with TrueText/FalseText
	Count              // small integers: day counters, invoice counts
)

// Column describes one grid column.
type Column struct {
	Field   string // backend JSON field name
	Caption string
	Kind    Kind
	Width   float64 // nominal width in characters
	Hidden  bool    // available for grouping and the detail panel, not shown in the grid

	TrueText  string
	FalseText string
}

// Numeric reports whether the column is right-aligned.
func (c Column) Numeric() bool {
	return c.Kind == Money || c.Kind == Count
}

// Visible returns the columns shown in the grid, in order.
func Visible(cols []Column) []Column {
	out := make([]Column, 0, len(cols))
	for _, c := range cols {
		if !c.Hidden {
			out = append(out, c)
		}
	}
	return out
}

// Find returns the column for field.
func Find(cols []Column, field string) (Column, bool) {
	for _, c := range cols {
		if c.Field == field {
			return c, true
		}
	}
	return Column{}, false
}
