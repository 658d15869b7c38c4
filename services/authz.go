package services

import "journal-api/models"

// HasCapability reports whether an active actor holds role. The editor-in-chief
// satisfies every editor-gated check; the other roles are independent.
func HasCapability(actor *models.User, role models.RoleSet) bool {
	if actor == nil || !actor.IsActive {
		return false
	}
	if actor.Roles.Has(role) {
		return true
	}
	return role == models.RoleEditor && actor.Roles.Has(models.RoleEditorInChief)
}

// RequireRole fails with Unauthenticated for a missing actor and Forbidden
// when the capability set lacks role.
func RequireRole(actor *models.User, role models.RoleSet) error {
	if actor == nil {
		return Unauthenticated()
	}
	if !actor.IsActive {
		return Forbidden("account is deactivated")
	}
	if !HasCapability(actor, role) {
		return Forbidden("")
	}
	return nil
}

// RequireSubmitter gates manuscript submission: the author capability plus a
// verified ORCID identity.
func RequireSubmitter(actor *models.User) error {
	if err := RequireRole(actor, models.RoleAuthor); err != nil {
		return err
	}
	if !actor.OrcidVerified {
		return Forbidden("a verified ORCID iD is required to submit manuscripts")
	}
	return nil
}

// IsManuscriptEditor covers editors assigned to the manuscript and any
// editor-in-chief. Unassigned editors still pass HasCapability checks for the
// generic editor queues.
func IsManuscriptEditor(actor *models.User, m *models.Manuscript) bool {
	if !HasCapability(actor, models.RoleEditor) {
		return false
	}
	if actor.Roles.Has(models.RoleEditorInChief) || len(m.Editors) == 0 {
		return true
	}
	return m.HasEditor(actor.UserID)
}

// CanViewManuscript allows authors of m and editors. Reviewers are checked
// against their assignments by the caller.
func CanViewManuscript(actor *models.User, m *models.Manuscript) bool {
	if actor == nil || !actor.IsActive {
		return false
	}
	return m.IsAuthor(actor.UserID) || IsManuscriptEditor(actor, m)
}
