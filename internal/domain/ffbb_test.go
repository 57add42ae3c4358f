package domain_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/nickdesi/FFBB-MCP-Server/internal/domain"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want any
	}{
		{
			name: "drops private keys recursively",
			in: map[string]any{
				"nom":           "ASVEL",
				"_rankingScore": 0.9,
				"adresse":       map[string]any{"ville": "Villeurbanne", "_geo": []any{1.0, 2.0}},
				"engagements":   []any{map[string]any{"id": "e1", "_formatted": map[string]any{}}},
			},
			want: map[string]any{
				"nom":         "ASVEL",
				"adresse":     map[string]any{"ville": "Villeurbanne"},
				"engagements": []any{map[string]any{"id": "e1"}},
			},
		},
		{name: "scalar", in: 42.0, want: 42.0},
		{name: "nil", in: nil, want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, domain.Sanitize(tt.in)); diff != "" {
				t.Errorf("Sanitize() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSanitizeObjectAndList(t *testing.T) {
	assert.Equal(t, map[string]any{}, domain.SanitizeObject(nil))
	assert.Equal(t, []map[string]any{}, domain.SanitizeList(nil))
	assert.Equal(t,
		[]map[string]any{{"id": "1"}, {}},
		domain.SanitizeList([]map[string]any{{"id": "1", "_x": 1}, nil}),
	)
}

func TestSearchIndexUID(t *testing.T) {
	for _, idx := range domain.AllSearchIndexes {
		got, ok := domain.IndexFromUID(idx.UID())
		assert.True(t, ok)
		assert.Equal(t, idx, got)
	}
	_, ok := domain.IndexFromUID("ffbbserver_joueurs")
	assert.False(t, ok)
	assert.Equal(t, "ffbbserver_salles", domain.IndexSalles.UID())
}

func TestCredentialsValid(t *testing.T) {
	assert.True(t, domain.Credentials{APIToken: "a", SearchToken: "s"}.Valid())
	assert.False(t, domain.Credentials{APIToken: "a"}.Valid())
	assert.False(t, domain.Credentials{APIToken: " ", SearchToken: "s"}.Valid())
}
