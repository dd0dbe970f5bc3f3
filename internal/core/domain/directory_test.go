package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestCompany_ProvidesService tests substring tag matching
func TestCompany_ProvidesService(t *testing.T) {
	c := Company{
		Name:     "Summit Glass & Glazing",
		Services: []string{"glazing", "curtain walls"},
	}

	assert.True(t, c.ProvidesService("glazing"))
	assert.True(t, c.ProvidesService("Glaz"))
	assert.True(t, c.ProvidesService("curtain"))
	assert.False(t, c.ProvidesService("plumbing"))
}

// TestWorkEntry_HasTag tests exact tag matching
func TestWorkEntry_HasTag(t *testing.T) {
	w := WorkEntry{Tags: []string{"concrete", "foundation"}}

	assert.True(t, w.HasTag("concrete"))
	assert.True(t, w.HasTag("Concrete"))
	assert.False(t, w.HasTag("conc"))
}

// TestQueryType_String tests query type names
func TestQueryType_String(t *testing.T) {
	assert.Equal(t, "list_all", QueryListAll.String())
	assert.Equal(t, "find_by_project", QueryFindByProject.String())
	assert.Equal(t, "get_contact", QueryGetContact.String())
	assert.Equal(t, "general", QueryGeneral.String())
}
