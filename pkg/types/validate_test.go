package types

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func digest(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func TestValidateEntities(t *testing.T) {
	tests := []struct {
		name    string
		entity  any
		wantErr bool
		field   string
	}{
		{
			name:   "valid kpi",
			entity: KPI{KPIID: "IT_K2", KPIName: "Incident Count", DeptID: "IT", TargetDirection: LowerIsBetter},
		},
		{
			name:    "kpi with unknown direction",
			entity:  KPI{KPIID: "IT_K2", KPIName: "Incident Count", DeptID: "IT", TargetDirection: "sideways"},
			wantErr: true,
			field:   "target_direction",
		},
		{
			name:    "kpi without name",
			entity:  KPI{KPIID: "IT_K2", DeptID: "IT", TargetDirection: HigherIsBetter},
			wantErr: true,
			field:   "kpi_name",
		},
		{
			name:    "fact with malformed date id",
			entity:  KPIFact{DateID: 2024011, DeptID: "IT", KPIID: "IT_K2"},
			wantErr: true,
			field:   "date_id",
		},
		{
			name:   "work item with spaced status",
			entity: WorkItem{DeptID: "IT", Title: "Patch servers", Status: StatusInProgress, RiskLevel: RiskHigh},
		},
		{
			name:    "work item with unknown status",
			entity:  WorkItem{DeptID: "IT", Title: "Patch servers", Status: "Shelved"},
			wantErr: true,
			field:   "status",
		},
		{
			name:    "work item progress above 100",
			entity:  WorkItem{DeptID: "IT", Title: "Patch servers", Status: StatusPlanned, ProgressPercent: 120},
			wantErr: true,
			field:   "progress_percent",
		},
		{
			name:    "person with bad email",
			entity:  Person{PersonID: "P1", PersonName: "Sam", Email: "not-an-email"},
			wantErr: true,
			field:   "email",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.entity)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidData)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestUserValidateScope(t *testing.T) {
	tests := []struct {
		name    string
		user    User
		wantErr error
	}{
		{"admin without department", User{Username: "admin", PasswordHash: digest("x"), Role: RoleAdmin}, nil},
		{"executive without department", User{Username: "exec", PasswordHash: digest("x"), Role: RoleExecutive}, nil},
		{"head with department", User{Username: "it_head", PasswordHash: digest("x"), Role: RoleDeptHead, DeptID: "IT"}, nil},
		{"staff without department", User{Username: "s", PasswordHash: digest("x"), Role: RoleStaff}, ErrMissingScope},
		{"unknown role", User{Username: "s", PasswordHash: digest("x"), Role: "Guest"}, ErrInvalidData},
		{"short hash", User{Username: "s", PasswordHash: "abc", Role: RoleAdmin}, ErrInvalidData},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.user.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestEnums(t *testing.T) {
	d, err := ParseTargetDirection("")
	require.NoError(t, err)
	assert.Equal(t, HigherIsBetter, d)

	_, err = ParseTargetDirection("upward")
	assert.ErrorIs(t, err, ErrInvalidState)

	r, err := ParseRole("DeptHead")
	require.NoError(t, err)
	assert.False(t, r.OrgWide())
	assert.True(t, RoleExecutive.OrgWide())

	assert.True(t, StatusInProgress.Valid())
	assert.Equal(t, "In Progress", string(StatusInProgress))
	assert.Less(t, SeverityHigh.Rank(), SeverityMedium.Rank())
	assert.Less(t, SeverityMedium.Rank(), SeverityLow.Rank())
}
