package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeDocument(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "empty", input: "", expected: ""},
		{name: "whitespace only", input: "   ", expected: ""},
		{name: "trims surrounding whitespace", input: "  12345 ", expected: "12345"},
		{name: "folds case", input: "AbC-99", expected: "abc-99"},
		{name: "full width digits normalize", input: "１２３", expected: "123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeDocument(tt.input))
		})
	}
}

func TestSameDocument(t *testing.T) {
	assert.True(t, SameDocument(" CC-100 ", "cc-100"))
	assert.False(t, SameDocument("", ""))
	assert.False(t, SameDocument("12345", "123456"))
	assert.False(t, SameDocument("12 345", "12345"))
}

func TestDedupeAndTrim(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{name: "nil slice", input: nil, expected: nil},
		{name: "empty slice", input: []string{}, expected: []string{}},
		{name: "trims whitespace", input: []string{"  a ", "b  "}, expected: []string{"a", "b"}},
		{name: "removes duplicates preserving order", input: []string{"b", "a", "b", "c", "a"}, expected: []string{"b", "a", "c"}},
		{name: "drops empty values", input: []string{"", "  ", "a"}, expected: []string{"a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DedupeAndTrim(tt.input))
		})
	}
}

func TestContainsAndRemove(t *testing.T) {
	values := []string{"apt-101", " apt-102 "}
	assert.True(t, Contains(values, "apt-102"))
	assert.False(t, Contains(values, "apt-103"))
	assert.Equal(t, []string{"apt-101"}, Remove(values, "apt-102"))
	assert.Equal(t, []string{}, Remove([]string{"x"}, "x"))
}
