package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fortuna/hoopstats/internal/store"
)

func TestListQuery(t *testing.T) {
	tests := []struct {
		name      string
		filter    store.GameFilter
		wantWhere string
		wantArgs  []any
	}{
		{
			name:     "no filter uses default limit",
			filter:   store.GameFilter{},
			wantArgs: []any{100},
		},
		{
			name:      "season and team",
			filter:    store.GameFilter{Season: "2022", Team: "mil", Limit: 10},
			wantWhere: "WHERE season = $1 AND team = $2",
			wantArgs:  []any{"2022", "MIL", 10},
		},
		{
			name:      "team only, oversized limit",
			filter:    store.GameFilter{Team: "BOS", Limit: 5000},
			wantWhere: "WHERE team = $1",
			wantArgs:  []any{"BOS", 100},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args := listQuery(tt.filter)
			if tt.wantWhere != "" {
				assert.Contains(t, query, tt.wantWhere)
			} else {
				assert.NotContains(t, query, "WHERE")
			}
			assert.Contains(t, query, "LIMIT $")
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}
