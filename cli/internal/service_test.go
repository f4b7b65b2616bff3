package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIDs(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []int
		wantErr  bool
	}{
		{name: "none", input: nil, expected: []int{}},
		{name: "ordered", input: []string{"12", "3", "40"}, expected: []int{12, 3, 40}},
		{name: "not a number", input: []string{"12", "abc"}, wantErr: true},
		{name: "zero", input: []string{"0"}, wantErr: true},
		{name: "negative", input: []string{"-5"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ids, err := parseIDs(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, ids)
		})
	}
}
