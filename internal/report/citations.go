package report

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
)

// Citation is one reference marker found in a report: a line of the form
// "[N]: query_name".
type Citation struct {
	Num       string `json:"num"`
	QueryName string `json:"queryName"`
}

var citationPattern = regexp.MustCompile(`(?m)^\[(\d+)\]:[ \t]*([A-Za-z0-9_./-]+)[ \t]*$`)

// ResolveCitations rewrites every citation marker into a reference-style
// markdown link target pointing at the query's page under the project, and
// returns the citations numerically sorted for a references section.
//
// A marker naming a query that does not exist is still rewritten — the link
// 404s at the UI layer rather than breaking composition here.
func ResolveCitations(content, projectSlug string) (string, []Citation) {
	var citations []Citation

	rewritten := citationPattern.ReplaceAllStringFunc(content, func(line string) string {
		m := citationPattern.FindStringSubmatch(line)
		num, queryName := m[1], m[2]
		citations = append(citations, Citation{Num: num, QueryName: queryName})
		return fmt.Sprintf("[%s]: /projects/%s/queries/%s", num, projectSlug, queryName)
	})

	sort.Slice(citations, func(i, j int) bool {
		a, _ := strconv.Atoi(citations[i].Num)
		b, _ := strconv.Atoi(citations[j].Num)
		return a < b
	})

	return rewritten, citations
}
