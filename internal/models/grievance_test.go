package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseGrievanceStatusIsCaseInsensitive(t *testing.T) {
	s, ok := ParseGrievanceStatus(" Resolved ")
	assert.True(t, ok)
	assert.Equal(t, GrievanceStatusResolved, s)

	_, ok = ParseGrievanceStatus("bogus")
	assert.False(t, ok)
}

func TestTerminalStatusesAreAbsorbing(t *testing.T) {
	for _, terminal := range []GrievanceStatus{GrievanceStatusClosed, GrievanceStatusRejected} {
		assert.True(t, terminal.IsTerminal())
		for _, target := range AllGrievanceStatuses {
			assert.False(t, terminal.CanTransitionTo(target), "%s -> %s", terminal, target)
		}
	}
}

func TestCanTransitionTo(t *testing.T) {
	assert.True(t, GrievanceStatusNew.CanTransitionTo(GrievanceStatusInProgress))
	assert.True(t, GrievanceStatusNew.CanTransitionTo(GrievanceStatusOnHold))
	assert.False(t, GrievanceStatusNew.CanTransitionTo(GrievanceStatusResolved))
	assert.True(t, GrievanceStatusOnHold.CanTransitionTo(GrievanceStatusResolved))
	assert.True(t, GrievanceStatusResolved.CanTransitionTo(GrievanceStatusClosed))
	assert.False(t, GrievanceStatusResolved.CanTransitionTo(GrievanceStatusNew))
}

func TestEscalationTierName(t *testing.T) {
	assert.Equal(t, "Assigned Staff", EscalationTierName(0))
	assert.Equal(t, "Member Head", EscalationTierName(1))
	assert.Equal(t, "Admin", EscalationTierName(2))
	assert.Equal(t, "Super Admin", EscalationTierName(3))
	assert.Equal(t, "higher authority", EscalationTierName(4))
}

func TestParsePriority(t *testing.T) {
	p, ok := ParsePriority("URGENT")
	assert.True(t, ok)
	assert.Equal(t, PriorityUrgent, p)
	_, ok = ParsePriority("critical")
	assert.False(t, ok)
}

func TestKPIPeriodSince(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

	since, ok := KPIPeriodWeek.Since(now)
	assert.True(t, ok)
	assert.Equal(t, now.AddDate(0, 0, -7), *since)

	since, ok = KPIPeriodAll.Since(now)
	assert.True(t, ok)
	assert.Nil(t, since)

	_, ok = KPIPeriod("decade").Since(now)
	assert.False(t, ok)
}
