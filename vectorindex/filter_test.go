package vectorindex

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterMatches(t *testing.T) {
	p := Payload{DocumentID: "d1", DocumentName: "a.txt", ChunkID: 4, Text: "hi"}

	tests := []struct {
		name   string
		filter *Filter
		want   bool
	}{
		{"nil matches all", nil, true},
		{"document match", ForDocument("d1"), true},
		{"document mismatch", ForDocument("d2"), false},
		{"any document hit", ForAnyDocument([]string{"d9", "d1"}), true},
		{"any document miss", ForAnyDocument([]string{"d9"}), false},
		{"leading chunks inside", LeadingChunks("d1", 5), true},
		{"leading chunks boundary excluded", LeadingChunks("d1", 4), false},
		{"unknown key", &Filter{Must: []Condition{{Key: "color", Match: "red"}}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Matches(p))
		})
	}
}

func TestForAnyDocumentEmpty(t *testing.T) {
	assert.Nil(t, ForAnyDocument(nil))
}
