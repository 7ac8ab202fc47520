package normalizers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoleName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"already normalized", "systems engineer", "systems engineer"},
		{"mixed case", "Systems Engineer", "systems engineer"},
		{"leading and trailing whitespace", "  Technical Lead  ", "technical lead"},
		{"internal whitespace runs", "Chief   Systems\tEngineer", "chief systems engineer"},
		{"empty", "", ""},
		{"whitespace only", "   \t ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, RoleName(tt.input))
		})
	}
}

func TestRoleNameIdentity(t *testing.T) {
	// Variants of the same mention must collapse to one identity key.
	variants := []string{
		"Systems Engineer",
		"systems engineer",
		" SYSTEMS  ENGINEER ",
		"Systems\tEngineer",
	}
	for _, v := range variants {
		assert.Equal(t, "systems engineer", RoleName(v), "variant %q", v)
	}
}

func TestApplyChain(t *testing.T) {
	got := ApplyChain("  Mr. Lead  ", "trim", "remove_punctuation", "lowercase")
	assert.Equal(t, "mr lead", got)
}

func TestRegistryUnknownNormalizer(t *testing.T) {
	assert.Equal(t, "Value", Apply("Value", "does_not_exist"))

	_, ok := Get("nrole")
	assert.True(t, ok)
}
