package permission

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/infodir/opa-permission-api/internal/auth"
)

type fakeEngine struct {
	path   string
	input  any
	result json.RawMessage
	err    error
}

func (f *fakeEngine) Evaluate(_ context.Context, path string, input any) (json.RawMessage, error) {
	f.path = path
	f.input = input

	return f.result, f.err
}

func TestForUser(t *testing.T) {
	user := &auth.UserInfo{
		EmployeeID: "e-1001",
		ADGroups:   []string{"grp-admin"},
		Email:      "jo@example.org",
	}

	tests := []struct {
		name   string
		apps   []string
		result json.RawMessage
		want   map[string]string
	}{
		{
			name:   "engine decides every application",
			apps:   []string{"app-a", "app-b"},
			result: json.RawMessage(`{"app-a":"admin","app-b":"user"}`),
			want:   map[string]string{"app-a": "admin", "app-b": "user"},
		},
		{
			name:   "missing decisions default to none",
			apps:   []string{"app-a", "app-b"},
			result: json.RawMessage(`{"app-a":"admin"}`),
			want:   map[string]string{"app-a": "admin", "app-b": "none"},
		},
		{
			name: "undefined document defaults everything to none",
			apps: []string{"app-a"},
			want: map[string]string{"app-a": "none"},
		},
		{
			name:   "no applications",
			result: json.RawMessage(`{}`),
			want:   map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := &fakeEngine{result: tt.result}

			roles, err := New(engine).ForUser(context.Background(), user, tt.apps)
			require.NoError(t, err)
			assert.Equal(t, tt.want, roles)
			assert.Equal(t, QueryPath, engine.path)

			input, ok := engine.input.(queryInput)
			require.True(t, ok)
			assert.Equal(t, user, input.User)
			assert.Equal(t, tt.apps, input.Applications)
		})
	}
}

func TestForUserEngineFailure(t *testing.T) {
	engine := &fakeEngine{err: errors.New("engine down")}

	_, err := New(engine).ForUser(context.Background(), &auth.UserInfo{EmployeeID: "e-1"}, []string{"app-a"})
	assert.Error(t, err)
}

func TestForApplication(t *testing.T) {
	t.Run("known role", func(t *testing.T) {
		engine := &fakeEngine{result: json.RawMessage(`{"app-a":"user"}`)}

		role, err := New(engine).ForApplication(context.Background(), &auth.UserInfo{EmployeeID: "e-1"}, "app-a")
		require.NoError(t, err)
		assert.Equal(t, "user", role)
	})

	t.Run("no decision yields none", func(t *testing.T) {
		engine := &fakeEngine{}

		role, err := New(engine).ForApplication(context.Background(), &auth.UserInfo{EmployeeID: "e-1"}, "app-a")
		require.NoError(t, err)
		assert.Equal(t, DefaultRole, role)
	})
}
