package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCode(t *testing.T) {
	cases := []struct {
		raw     string
		module  string
		action  string
		wantErr bool
	}{
		{raw: "vehicles:read", module: "vehicles", action: "read"},
		{raw: "leads:*", module: "leads", action: "*"},
		{raw: "*:*", module: "*", action: "*"},
		{raw: "lead_notes:mark-read", module: "lead_notes", action: "mark-read"},
		{raw: "vehicles", wantErr: true},
		{raw: "", wantErr: true},
		{raw: ":read", wantErr: true},
		{raw: "vehicles:", wantErr: true},
		{raw: "vehicles:read:all", wantErr: true},
		{raw: "*:create", wantErr: true},
		{raw: "Vehicles:Read", wantErr: true},
		{raw: "vehicles :read", wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			code, err := ParseCode(tc.raw)
			if tc.wantErr {
				require.ErrorIs(t, err, ErrInvalidCode)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.module, code.Module)
			assert.Equal(t, tc.action, code.Action)
			assert.Equal(t, tc.raw, code.String())
		})
	}
}

func TestCodeClassification(t *testing.T) {
	global, err := ParseCode("*:*")
	require.NoError(t, err)
	assert.True(t, global.IsGlobal())
	assert.False(t, global.IsConcrete())

	moduleWide, err := ParseCode("vehicles:*")
	require.NoError(t, err)
	assert.True(t, moduleWide.IsModuleWildcard())
	assert.False(t, moduleWide.IsGlobal())

	concrete, err := ParseCode("vehicles:delete")
	require.NoError(t, err)
	assert.True(t, concrete.IsConcrete())
	assert.Equal(t, "vehicles:*", concrete.ModuleWildcard())
}
