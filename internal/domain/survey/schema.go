// Package survey turns peer-evaluation form exports into teams.
//
// Column names are a contract with the upstream form and live in this file
// only. Headers are matched after collapsing whitespace, so the trailing
// spaces and embedded newlines the form export carries do not matter.
package survey

import (
	"fmt"
	"strings"

	"github.com/okian/peerreview/internal/domain/model"
)

// Fixed column names.
const (
	ColTimestamp      = "Timestamp"
	ColSubmitter      = "YOU - Group Member 1"
	ColSelfPercentage = "Your percentage of work / effort"
	ColHasFourth      = "Did you have a 4th member of your group?"
	ColChallenges     = "Challenges"
	ColPositives      = "The Good Stuff"
	ColAdvice         = "One (or more) pieces of solid advice"

	ColEvidence = "Evidence to include:\n" +
		"- Evidence of effort or lack thereof\n" +
		"- If you followed my advice and communicated over a group chat, Snap, GChat / etc, you can submit screenshots of your communications if needed (not required but can bolster a claim)\n" +
		"- Include all files related to your work, especially Adobe Illustrator files."
	ColPhotos = "Photos of your items\n" +
		"- Include clear photos of each item that you either made yourself or strongly contributed to, INCLUDING your mini sheet item and your advanced item(s)"

	selfWorkTemplate   = "Please explain what you did regarding %s work on the project. "
	memberWorkTemplate = "Please explain what Group Member %d did regarding %s work on the project. "
	memberNameTemplate = "Group Member %d"
	memberPctTemplate  = "Group Member %d percentage of work / effort"
)

// MaxMembers is the largest team the form can describe.
const MaxMembers = 4

// categoryLabels is how each category is spelled inside the question text.
var categoryLabels = map[model.Category]string{
	model.CategoryDesign:        "DESIGN",
	model.CategoryManufacturing: "MANUFACTURING",
	model.CategorySales:         "SALES / MANAGEMENT",
	model.CategoryMarketing:     "MARKETING / ADVERTISING",
}

// RequiredColumns must be present for a table to be accepted.
var RequiredColumns = []string{ColTimestamp, ColSubmitter}

// memberColumns names the columns describing member n (1-based). Member 1 is
// the submitter, whose name comes from ColSubmitter.
type memberColumns struct {
	name       string
	percentage string
	work       map[model.Category]string
}

func columnsFor(n int) memberColumns {
	mc := memberColumns{work: make(map[model.Category]string, len(model.Categories))}
	if n == 1 {
		mc.name = ColSubmitter
		mc.percentage = ColSelfPercentage
		for _, c := range model.Categories {
			mc.work[c] = fmt.Sprintf(selfWorkTemplate, categoryLabels[c])
		}
		return mc
	}
	mc.name = fmt.Sprintf(memberNameTemplate, n)
	mc.percentage = fmt.Sprintf(memberPctTemplate, n)
	for _, c := range model.Categories {
		mc.work[c] = fmt.Sprintf(memberWorkTemplate, n, categoryLabels[c])
	}
	return mc
}

// AllColumns lists every column the ingestor reads, in form order. Useful for
// building fixtures and for diagnostics.
func AllColumns() []string {
	cols := []string{ColTimestamp}
	for n := 1; n <= MaxMembers; n++ {
		mc := columnsFor(n)
		if n == MaxMembers {
			cols = append(cols, ColHasFourth)
		}
		cols = append(cols, mc.name, mc.percentage)
		for _, c := range model.Categories {
			cols = append(cols, mc.work[c])
		}
	}
	return append(cols, ColEvidence, ColPhotos, ColChallenges, ColPositives, ColAdvice)
}

func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	return strings.ToLower(strings.Join(strings.Fields(h), " "))
}
