package services

import (
	"math"

	"journal-api/models"
)

// Action names a workflow transition. The value is also written to the
// status history.
type Action string

const (
	ActionSubmit            Action = "submit"
	ActionAssignReviewer    Action = "assign_reviewer"
	ActionAcceptAssignment  Action = "accept_assignment"
	ActionDeclineAssignment Action = "decline_assignment"
	ActionSubmitReview      Action = "submit_review"
	ActionRequestRevisions  Action = "request_revisions"
	ActionAccept            Action = "accept"
	ActionReject            Action = "reject"
	ActionSubmitRevision    Action = "submit_revision"
	ActionRequestPayment    Action = "request_payment"
	ActionPublish           Action = "publish"
)

// transitions maps each action to its source stages and the stage it lands
// on. Actions whose target depends on more than the source stage (review
// round completion, configured charges) are resolved by the caller.
var transitions = map[Action]map[models.Stage]models.Stage{
	ActionAssignReviewer: {
		models.StageSubmitted:        models.StageUnderReview,
		models.StageUnderReview:      models.StageUnderReview,
		models.StageReviewInProgress: models.StageReviewInProgress,
		models.StageReviewAccepted:   models.StageUnderReview,
	},
	ActionAcceptAssignment: {
		models.StageUnderReview:      models.StageReviewInProgress,
		models.StageReviewInProgress: models.StageReviewInProgress,
	},
	ActionDeclineAssignment: {
		models.StageUnderReview:      models.StageUnderReview,
		models.StageReviewInProgress: models.StageReviewInProgress,
	},
	ActionSubmitReview: {
		models.StageUnderReview:      models.StageReviewInProgress,
		models.StageReviewInProgress: models.StageReviewInProgress,
	},
	ActionRequestRevisions: {
		models.StageSubmitted:        models.StageRevisionsRequired,
		models.StageUnderReview:      models.StageRevisionsRequired,
		models.StageReviewInProgress: models.StageRevisionsRequired,
		models.StageReviewAccepted:   models.StageRevisionsRequired,
	},
	ActionAccept: {
		models.StageUnderReview:       models.StageEditorAccepted,
		models.StageReviewInProgress:  models.StageEditorAccepted,
		models.StageReviewAccepted:    models.StageEditorAccepted,
		models.StageRevisionsRequired: models.StageEditorAccepted,
	},
	ActionReject: {
		models.StageUnderReview:       models.StageRejected,
		models.StageReviewInProgress:  models.StageRejected,
		models.StageReviewAccepted:    models.StageRejected,
		models.StageRevisionsRequired: models.StageRejected,
	},
	ActionSubmitRevision: {
		models.StageRevisionsRequired: models.StageUnderReview,
	},
	ActionRequestPayment: {
		models.StageEditorAccepted: models.StagePaymentPending,
		models.StagePaymentPending: models.StagePaymentPending,
	},
	ActionPublish: {
		models.StageEditorAccepted: models.StagePublished,
		models.StagePaymentPending: models.StagePublished,
	},
}

var invalidStateMessages = map[Action]string{
	ActionAssignReviewer:    "reviewers cannot be assigned to this manuscript in its current state",
	ActionAcceptAssignment:  "manuscript is not awaiting reviews",
	ActionDeclineAssignment: "manuscript is not awaiting reviews",
	ActionSubmitReview:      "manuscript is not under review",
	ActionRequestRevisions:  "revisions cannot be requested in the current state",
	ActionAccept:            "manuscript cannot be accepted in the current state",
	ActionReject:            "manuscript cannot be rejected in the current state",
	ActionSubmitRevision:    "manuscript does not require revisions",
	ActionRequestPayment:    "payment can only be requested for accepted manuscripts",
	ActionPublish:           "only accepted manuscripts can be published",
}

// NextStage returns the stage action leads to from the given stage, or an
// InvalidState error when from is not one of its sources.
func NextStage(action Action, from models.Stage) (models.Stage, error) {
	if to, ok := transitions[action][from]; ok {
		return to, nil
	}
	msg, ok := invalidStateMessages[action]
	if !ok {
		msg = "action is not allowed in the current state"
	}
	return "", InvalidState(msg)
}

// Decision is an editorial decision on a manuscript.
type Decision string

const (
	DecisionAccept         Decision = "accept"
	DecisionReject         Decision = "reject"
	DecisionMinorRevisions Decision = "minor_revisions"
	DecisionMajorRevisions Decision = "major_revisions"
)

func (d Decision) Valid() bool {
	switch d {
	case DecisionAccept, DecisionReject, DecisionMinorRevisions, DecisionMajorRevisions:
		return true
	}
	return false
}

func (d Decision) Action() Action {
	switch d {
	case DecisionAccept:
		return ActionAccept
	case DecisionReject:
		return ActionReject
	}
	return ActionRequestRevisions
}

// OverallScore is the mean of the five sub-scores rounded to two decimals.
func OverallScore(s models.ReviewScores) float64 {
	values := s.Values()
	sum := 0
	for _, v := range values {
		sum += v
	}
	mean := float64(sum) / float64(len(values))
	return math.Round(mean*100) / 100
}

// RoundComplete reports whether every non-declined assignment of round is
// completed. A round with no live assignments is not complete.
func RoundComplete(assignments []models.Assignment, round int) bool {
	live := 0
	for _, a := range assignments {
		if a.Round != round || a.Status == models.AssignmentDeclined {
			continue
		}
		if a.Status != models.AssignmentCompleted {
			return false
		}
		live++
	}
	return live > 0
}
