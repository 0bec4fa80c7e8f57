package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventActionPolicy(t *testing.T) {
	t.Run("Draft Offers Publish", func(t *testing.T) {
		policy := EventActionPolicy(Event{ID: "1", Status: EventStatusDraft}, false)
		assert.True(t, policy.CanToggle)
		assert.Equal(t, "Publish", policy.ToggleLabel)
		assert.True(t, policy.CanDelete)
	})

	t.Run("Published Offers Unpublish", func(t *testing.T) {
		policy := EventActionPolicy(Event{ID: "1", Status: EventStatusPublished}, false)
		assert.Equal(t, "Unpublish", policy.ToggleLabel)
	})

	t.Run("Read Only", func(t *testing.T) {
		policy := EventActionPolicy(Event{ID: "1"}, true)
		assert.False(t, policy.CanToggle)
		assert.False(t, policy.CanDelete)
		assert.Equal(t, "read_only", policy.Reason)
	})
}

func TestUserActionPolicy(t *testing.T) {
	t.Run("Attendee", func(t *testing.T) {
		policy := UserActionPolicy(User{ID: "3", Role: RoleAttendee}, false)
		assert.Equal(t, []Role{RoleOrganizer, RoleAdmin}, policy.RoleTargets)
		assert.True(t, policy.CanDelete)
	})

	t.Run("Organizer", func(t *testing.T) {
		policy := UserActionPolicy(User{ID: "2", Role: RoleOrganizer}, false)
		assert.Equal(t, []Role{RoleAdmin}, policy.RoleTargets)
		assert.Empty(t, policy.Reason)
	})

	t.Run("Admin", func(t *testing.T) {
		policy := UserActionPolicy(User{ID: "1", Role: RoleAdmin}, false)
		assert.Equal(t, []Role{RoleOrganizer}, policy.RoleTargets)
		assert.Equal(t, "already_admin", policy.Reason)
	})
}
