package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMembershipPatchPlanID(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantPlan  *int64
		wantClear bool
		wantErr   bool
	}{
		{name: "absent keeps plan", body: `{"status":"ACTIVE"}`},
		{name: "null clears plan", body: `{"plan_id":null}`, wantClear: true},
		{name: "id sets plan", body: `{"plan_id":5}`, wantPlan: int64Ptr(5)},
		{name: "nothing to change", body: `{}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p MembershipPatch
			require.NoError(t, json.Unmarshal([]byte(tt.body), &p))

			u, err := p.Parse()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantPlan, u.PlanID)
			assert.Equal(t, tt.wantClear, u.ClearPlan)
		})
	}

	var p MembershipPatch
	assert.Error(t, json.Unmarshal([]byte(`{"plan_id":"gold"}`), &p))
}

func int64Ptr(v int64) *int64 { return &v }
