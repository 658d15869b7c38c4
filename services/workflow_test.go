package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"journal-api/models"
)

func TestNextStage(t *testing.T) {
	tests := []struct {
		name   string
		action Action
		from   models.Stage
		want   models.Stage
	}{
		{"first assignment opens review", ActionAssignReviewer, models.StageSubmitted, models.StageUnderReview},
		{"late assignment reopens a finished round", ActionAssignReviewer, models.StageReviewAccepted, models.StageUnderReview},
		{"assignment during review keeps stage", ActionAssignReviewer, models.StageReviewInProgress, models.StageReviewInProgress},
		{"accepting an assignment starts the review", ActionAcceptAssignment, models.StageUnderReview, models.StageReviewInProgress},
		{"revision reopens review", ActionSubmitRevision, models.StageRevisionsRequired, models.StageUnderReview},
		{"accept from finished round", ActionAccept, models.StageReviewAccepted, models.StageEditorAccepted},
		{"reject from revisions", ActionReject, models.StageRevisionsRequired, models.StageRejected},
		{"desk revision", ActionRequestRevisions, models.StageSubmitted, models.StageRevisionsRequired},
		{"payment request", ActionRequestPayment, models.StageEditorAccepted, models.StagePaymentPending},
		{"publish after payment", ActionPublish, models.StagePaymentPending, models.StagePublished},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NextStage(tc.action, tc.from)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNextStageRejectsIllegalMoves(t *testing.T) {
	tests := []struct {
		action Action
		from   models.Stage
	}{
		{ActionSubmitRevision, models.StageUnderReview},
		{ActionSubmitRevision, models.StagePublished},
		{ActionAccept, models.StageSubmitted},
		{ActionAccept, models.StageRejected},
		{ActionPublish, models.StageReviewAccepted},
		{ActionAssignReviewer, models.StagePublished},
		{ActionAssignReviewer, models.StageRevisionsRequired},
		{ActionSubmitReview, models.StageSubmitted},
		{ActionRequestPayment, models.StagePublished},
	}
	for _, tc := range tests {
		t.Run(string(tc.action)+"/"+string(tc.from), func(t *testing.T) {
			_, err := NextStage(tc.action, tc.from)
			requireKind(t, err, KindInvalidState)
		})
	}
}

func TestTerminalStagesHaveNoExits(t *testing.T) {
	for action := range transitions {
		for _, terminal := range []models.Stage{models.StageRejected, models.StagePublished} {
			_, ok := transitions[action][terminal]
			assert.False(t, ok, "%s leaves %s", action, terminal)
		}
	}
}

func TestTransitionsLandOnKnownStages(t *testing.T) {
	for action, moves := range transitions {
		for from, to := range moves {
			assert.True(t, from.Valid(), "%s: bad source %q", action, from)
			assert.True(t, to.Valid(), "%s: bad target %q", action, to)
		}
	}
}

func TestDecisionAction(t *testing.T) {
	assert.Equal(t, ActionAccept, DecisionAccept.Action())
	assert.Equal(t, ActionReject, DecisionReject.Action())
	assert.Equal(t, ActionRequestRevisions, DecisionMinorRevisions.Action())
	assert.Equal(t, ActionRequestRevisions, DecisionMajorRevisions.Action())
	assert.False(t, Decision("maybe").Valid())
}

func TestOverallScoreIsTheMean(t *testing.T) {
	assert.Equal(t, 4.0, OverallScore(models.ReviewScores{Originality: 4, Methodology: 4, Contribution: 4, Clarity: 4, References: 4}))
	assert.Equal(t, 3.4, OverallScore(models.ReviewScores{Originality: 5, Methodology: 4, Contribution: 3, Clarity: 3, References: 2}))
	assert.Equal(t, 1.2, OverallScore(models.ReviewScores{Originality: 1, Methodology: 1, Contribution: 1, Clarity: 1, References: 2}))
}

func TestRoundComplete(t *testing.T) {
	a := func(round int, status string) models.Assignment {
		return models.Assignment{Round: round, Status: status}
	}
	tests := []struct {
		name string
		rows []models.Assignment
		want bool
	}{
		{"no assignments", nil, false},
		{"only declined", []models.Assignment{a(1, models.AssignmentDeclined)}, false},
		{"one pending", []models.Assignment{a(1, models.AssignmentCompleted), a(1, models.AssignmentPending)}, false},
		{"one accepted", []models.Assignment{a(1, models.AssignmentCompleted), a(1, models.AssignmentAccepted)}, false},
		{"declines ignored", []models.Assignment{a(1, models.AssignmentCompleted), a(1, models.AssignmentDeclined)}, true},
		{"other rounds ignored", []models.Assignment{a(1, models.AssignmentCompleted), a(2, models.AssignmentPending)}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, RoundComplete(tc.rows, 1))
		})
	}
}

func TestStatusIsProjectedFromStage(t *testing.T) {
	var m models.Manuscript
	for _, st := range models.AllStages() {
		m.SetStage(st)
		assert.Equal(t, st.Status(), m.Status)
	}
	m.SetStage(models.StagePaymentPending)
	assert.Equal(t, models.StatusAccepted, m.Status)
}
