package columns

import (
	"strings"

	"github.com/Sternrassler/alma-slip-report/pkg/model"
)

func desc(cd *model.CodeDesc) string {
	if cd == nil {
		return ""
	}
	return cd.Desc
}

// copiesOf returns the copies that can satisfy the row's request, or every
// copy of the location when request enrichment has not attributed any.
func copiesOf(r Row) []*model.Copy {
	if len(r.Request.Copies) > 0 {
		return r.Request.Copies
	}
	return r.Location.Copy
}

// perCopy joins a copy field over the row's copies, skipping blanks and
// repeats.
func perCopy(fn func(*model.Copy) string) func(Row) string {
	return func(r Row) string {
		var values []string
		for _, c := range copiesOf(r) {
			if c != nil {
				values = append(values, fn(c))
			}
		}
		return dedupedJoin(values, " ")
	}
}

func locationValue(r Row) string {
	var temp []string
	inTemp := false
	for _, c := range r.Location.Copy {
		if c == nil || !c.InTempLocation {
			continue
		}
		inTemp = true
		if c.TempLocation == nil {
			continue
		}
		if c.TempLocation.Desc != "" {
			temp = append(temp, c.TempLocation.Desc+" ("+c.TempLocation.Value+")")
		} else {
			temp = append(temp, c.TempLocation.Value)
		}
	}
	if inTemp {
		return dedupedJoin(temp, " ")
	}

	if d := r.Location.ShelvingLocationDetails; d != nil && d.Name != "" {
		return d.Name + " (" + d.Code + ")"
	}
	return r.Location.ShelvingLocation
}

func imprintValue(r Row) string {
	m := r.Metadata
	return filteredJoin([]string{m.PublicationPlace, m.Publisher, m.PublicationYear}, " ")
}

func volumeValue(r Row) string {
	if r.Request.Volume != "" {
		return r.Request.Volume
	}
	var values []string
	for _, c := range r.Location.Copy {
		if c != nil {
			values = append(values, c.EnumerationA)
		}
	}
	return dedupedJoin(values, " ")
}

func issueValue(r Row) string {
	if r.Request.Issue != "" {
		return r.Request.Issue
	}
	var values []string
	for _, c := range r.Location.Copy {
		if c != nil {
			values = append(values, c.ChronologyI)
		}
	}
	return dedupedJoin(values, " ")
}

func chapterOrArticleValue(r Row) string {
	return filteredJoin([]string{r.Request.ChapterOrArticleTitle, r.Request.ChapterOrArticleAuthor}, " / ")
}

func pagesValue(r Row) string {
	ranges := make([]string, 0, len(r.Request.RequiredPagesRange))
	for _, pr := range r.Request.RequiredPagesRange {
		ranges = append(ranges, filteredJoin([]string{pr.FromPage, pr.ToPage}, "-"))
	}
	return filteredJoin(ranges, ", ")
}

func filteredJoin(values []string, sep string) string {
	kept := values[:0:0]
	for _, v := range values {
		if v != "" {
			kept = append(kept, v)
		}
	}
	return strings.Join(kept, sep)
}

func dedupedJoin(values []string, sep string) string {
	seen := make(map[string]bool, len(values))
	var kept []string
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		kept = append(kept, v)
	}
	return strings.Join(kept, sep)
}
