package pipeline

import (
	"fmt"
	"go-batch-pipeline/internal/model"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"
)

// Summary totals a whole run across batches.
type Summary struct {
	Batches int
	Success int
	Failed  int
	Saved   int
	Stats   model.Stats
}

// Add folds one batch result into the summary.
func (s *Summary) Add(res model.BatchResult) {
	s.Batches++
	s.Success += res.SuccessCount
	s.Failed += res.FailedCount
}

// RenderSummary writes a human readable report ending with the processed
// record count.
func RenderSummary(w io.Writer, s Summary) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Batches:  %d\n", s.Batches)
	fmt.Fprintf(&b, "Accepted: %d\n", s.Success)
	fmt.Fprintf(&b, "Rejected: %d\n", s.Failed)
	fmt.Fprintf(&b, "Saved:    %d\n", s.Saved)

	if s.Stats.Empty() {
		b.WriteString("Stats:    count=0\n")
	} else {
		st := s.Stats
		fmt.Fprintf(&b, "Stats:    count=%d total=%s average=%s min=%s max=%s\n",
			st.Count, formatFloat(st.Total), formatFloat(st.Average), formatFloat(st.Min), formatFloat(st.Max))
		if len(st.Categories) > 0 {
			writeCategoryTable(&b, st.Categories)
		}
	}

	fmt.Fprintf(&b, "Processed %d records\n", s.Success)
	_, err := io.WriteString(w, b.String())
	return err
}

func writeCategoryTable(b *strings.Builder, categories map[string]int) {
	names := make([]string, 0, len(categories))
	for name := range categories {
		names = append(names, name)
	}
	sort.Strings(names)

	nameWidth := runewidth.StringWidth("category")
	countWidth := len("count")
	for _, name := range names {
		nameWidth = max(nameWidth, runewidth.StringWidth(name))
		countWidth = max(countWidth, len(strconv.Itoa(categories[name])))
	}

	row := func(name, count string) {
		fmt.Fprintf(b, "| %s | %s |\n",
			runewidth.FillRight(name, nameWidth),
			runewidth.FillLeft(count, countWidth),
		)
	}
	row("category", "count")
	fmt.Fprintf(b, "|%s|%s|\n", strings.Repeat("-", nameWidth+2), strings.Repeat("-", countWidth+2))
	for _, name := range names {
		row(name, strconv.Itoa(categories[name]))
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
