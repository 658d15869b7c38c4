package utils

import (
	"strings"

	"journal-api/models"
)

var (
	statusSynonyms = map[models.Status][]string{
		models.StatusSubmitted: {
			"submitted",
			"new",
		},
		models.StatusUnderReview: {
			"under_review",
			"in_review",
			"review",
		},
		models.StatusRevisionsRequired: {
			"revisions_required",
			"revision_required",
			"revise",
			"revision",
			"needs_revision",
		},
		models.StatusAccepted: {
			"accepted",
			"accept",
			"approved",
			"editor_accepted",
		},
		models.StatusRejected: {
			"rejected",
			"reject",
			"declined",
		},
		models.StatusPublished: {
			"published",
			"publish",
		},
		models.StatusSelected: {
			"selected",
			"featured",
		},
	}
	statusAliasToCanonical = buildStatusAliasMap()

	decisionSynonyms = map[string][]string{
		"accept":          {"accept", "accepted", "approve"},
		"reject":          {"reject", "rejected", "decline"},
		"minor_revisions": {"minor_revisions", "minor_revision", "minor"},
		"major_revisions": {"major_revisions", "major_revision", "major", "revise", "revisions_required"},
	}
	decisionAliasToCanonical = buildDecisionAliasMap()
)

func buildStatusAliasMap() map[string]models.Status {
	aliasMap := make(map[string]models.Status)
	for canonical, synonyms := range statusSynonyms {
		aliasMap[normalizeStatusCode(string(canonical))] = canonical
		for _, alias := range synonyms {
			if normalized := normalizeStatusCode(alias); normalized != "" {
				aliasMap[normalized] = canonical
			}
		}
	}
	return aliasMap
}

func buildDecisionAliasMap() map[string]string {
	aliasMap := make(map[string]string)
	for canonical, synonyms := range decisionSynonyms {
		aliasMap[canonical] = canonical
		for _, alias := range synonyms {
			aliasMap[normalizeStatusCode(alias)] = canonical
		}
	}
	return aliasMap
}

func normalizeStatusCode(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	code = strings.ReplaceAll(code, "-", "_")
	return strings.ReplaceAll(code, " ", "_")
}

// CanonicalStatus resolves admin input such as "Revision" or "in-review" to
// a coarse manuscript status.
func CanonicalStatus(raw string) (models.Status, bool) {
	status, ok := statusAliasToCanonical[normalizeStatusCode(raw)]
	return status, ok
}

// CanonicalDecision resolves an editorial decision name.
func CanonicalDecision(raw string) (string, bool) {
	decision, ok := decisionAliasToCanonical[normalizeStatusCode(raw)]
	return decision, ok
}

// ParseStages accepts a comma separated list of stages or coarse statuses
// and expands coarse statuses to their stages.
func ParseStages(raw string) []models.Stage {
	var out []models.Stage
	seen := map[models.Stage]bool{}
	add := func(st models.Stage) {
		if !seen[st] {
			seen[st] = true
			out = append(out, st)
		}
	}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if st := models.Stage(strings.ToUpper(part)); st.Valid() {
			add(st)
			continue
		}
		if status, ok := CanonicalStatus(part); ok {
			for _, st := range models.StagesFor(status) {
				add(st)
			}
		}
	}
	return out
}
