package domain

// ActionPolicy describes which controls a dashboard row or card offers.
type ActionPolicy struct {
	ToggleLabel string `json:"toggle_label,omitempty"`
	CanToggle   bool   `json:"can_toggle"`
	RoleTargets []Role `json:"role_targets,omitempty"`
	CanDelete   bool   `json:"can_delete"`
	Reason      string `json:"reason,omitempty"`
}

// EventActionPolicy determines what an admin can do with an event card.
func EventActionPolicy(e Event, readOnly bool) ActionPolicy {
	// 1. Read-only views (attendee browsing) expose nothing
	if readOnly {
		return ActionPolicy{Reason: "read_only"}
	}

	// 2. Label follows the current status
	label := "Publish"
	if e.Status == EventStatusPublished {
		label = "Unpublish"
	}

	return ActionPolicy{
		ToggleLabel: label,
		CanToggle:   true,
		CanDelete:   true,
	}
}

// UserActionPolicy determines which role changes a user row offers.
// Attendee is never a promotion target.
func UserActionPolicy(u User, readOnly bool) ActionPolicy {
	if readOnly {
		return ActionPolicy{Reason: "read_only"}
	}

	targets := make([]Role, 0, 2)
	for _, r := range []Role{RoleOrganizer, RoleAdmin} {
		if u.Role != r {
			targets = append(targets, r)
		}
	}

	reason := ""
	if len(targets) == 1 && u.Role == RoleAdmin {
		reason = "already_admin"
	}

	return ActionPolicy{
		RoleTargets: targets,
		CanDelete:   true,
		Reason:      reason,
	}
}
