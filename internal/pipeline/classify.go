package pipeline

import (
	"strings"

	"quotedesk/internal"
)

type keywordGroup struct {
	category    internal.Category
	subcategory internal.Subcategory
	keywords    []string
}

// Groups are tried in order; the first keyword hit wins.
var classificationGroups = []keywordGroup{
	{internal.CategorySeating, internal.ExecutiveChairs, []string{"executive chair", "director chair", "manager chair", "ceo chair", "high back chair"}},
	{internal.CategorySeating, internal.TaskChairs, []string{"task chair", "operator chair", "office chair", "ergonomic chair", "mesh chair", "staff chair", "swivel chair"}},
	{internal.CategorySeating, internal.VisitorChairs, []string{"visitor chair", "guest chair", "waiting chair", "stacking chair", "stackable chair", "cafeteria chair"}},
	{internal.CategorySeating, internal.ConferenceChairs, []string{"conference chair", "meeting chair", "boardroom chair", "training chair"}},
	{internal.CategorySeating, internal.Sofas, []string{"sofa", "settee", "couch"}},
	{internal.CategorySeating, internal.LoungeSeating, []string{"lounge", "armchair", "arm chair", "pouf", "ottoman", "bench seat"}},

	{internal.CategoryDesking, internal.ExecutiveDesks, []string{"executive desk", "executive table", "director desk", "manager desk", "ceo desk"}},
	{internal.CategoryDesking, internal.Workstations, []string{"workstation", "work station", "cluster desk", "bench desk", "operator desk"}},
	{internal.CategoryDesking, internal.MeetingTables, []string{"meeting table", "conference table", "boardroom table", "discussion table", "training table"}},
	{internal.CategoryDesking, internal.Pedestals, []string{"pedestal", "mobile drawer"}},
	{internal.CategoryDesking, internal.Cabinets, []string{"cabinet", "cupboard", "credenza", "bookcase", "filing", "shelving"}},
	{internal.CategoryDesking, internal.Lockers, []string{"locker"}},
	{internal.CategoryDesking, internal.Partitions, []string{"partition", "divider", "privacy screen", "screen panel"}},
}

var coarseGroups = []keywordGroup{
	{internal.CategorySeating, internal.TaskChairs, []string{"chair", "seat", "stool"}},
	{internal.CategoryDesking, internal.Workstations, []string{"table", "desk"}},
}

// Classify assigns a category and subcategory to a free-text description.
// Descriptions that match nothing land in general/general.
func Classify(description string) internal.Classification {
	text := strings.ToLower(description)
	for _, groups := range [][]keywordGroup{classificationGroups, coarseGroups} {
		for _, g := range groups {
			for _, kw := range g.keywords {
				if strings.Contains(text, kw) {
					return internal.Classification{Category: g.category, Subcategory: g.subcategory}
				}
			}
		}
	}
	return internal.Classification{Category: internal.CategoryGeneral, Subcategory: internal.SubcategoryGeneral}
}
