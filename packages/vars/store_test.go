package vars

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreGetSet(t *testing.T) {
	s := NewStore()

	s.Set(ScopeSession, "token", "abc")
	s.Set(ScopeGlobal, "token", "def")

	v, ok := s.Get(ScopeSession, "token")
	require.True(t, ok)
	assert.Equal(t, "abc", v)

	v, ok = s.Get(ScopeGlobal, "token")
	require.True(t, ok)
	assert.Equal(t, "def", v)

	_, ok = s.Get(ScopeSession, "missing")
	assert.False(t, ok)
}

func TestStoreKeysAreCaseSensitive(t *testing.T) {
	s := NewStore()
	s.Set(ScopeGlobal, "Token", "upper")

	_, ok := s.Get(ScopeGlobal, "token")
	assert.False(t, ok)
}

func TestStoreResolvePriority(t *testing.T) {
	s := NewStore()
	s.SwitchEnvironment(NewEnvironment("dev", map[string]string{"key": "env"}))
	s.Set(ScopeGlobal, "key", "global")
	s.Set(ScopeSession, "key", "session")

	v, source, ok := s.Resolve("key")
	require.True(t, ok)
	assert.Equal(t, "session", v)
	assert.Equal(t, "session", source)

	s.Unset(ScopeSession, "key")
	v, source, ok = s.Resolve("key")
	require.True(t, ok)
	assert.Equal(t, "global", v)
	assert.Equal(t, "global", source)

	s.Unset(ScopeGlobal, "key")
	v, source, ok = s.Resolve("key")
	require.True(t, ok)
	assert.Equal(t, "env", v)
	assert.Equal(t, "environment", source)
}

func TestStoreDisabledEnvironmentVariable(t *testing.T) {
	s := NewStore()
	env := NewEnvironment("dev", nil)
	env.Variables = append(env.Variables, Variable{Key: "hidden", Value: "x", Enabled: false})
	s.SwitchEnvironment(env)

	_, ok := s.Get(ScopeEnvironment, "hidden")
	assert.False(t, ok)
}

func TestSwitchEnvironmentClearsSession(t *testing.T) {
	s := NewStore()
	s.SwitchEnvironment(NewEnvironment("a", map[string]string{"baseUrl": "http://a"}))
	s.Set(ScopeSession, "requestId", "123")

	s.SwitchEnvironment(NewEnvironment("b", map[string]string{"baseUrl": "http://b"}))

	_, ok := s.Get(ScopeSession, "requestId")
	assert.False(t, ok)

	v, ok := s.Get(ScopeEnvironment, "baseUrl")
	require.True(t, ok)
	assert.Equal(t, "http://b", v)
}

func TestEnvironmentSetTouchesUpdatedAt(t *testing.T) {
	s := NewStore()
	env := NewEnvironment("dev", nil)
	s.SwitchEnvironment(env)
	before := env.UpdatedAt

	s.Set(ScopeEnvironment, "key", "value")

	assert.True(t, env.UpdatedAt.After(before) || env.UpdatedAt.Equal(before))
	v, ok := s.Get(ScopeEnvironment, "key")
	require.True(t, ok)
	assert.Equal(t, "value", v)
}

func TestStoreConcurrentWrites(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := fmt.Sprintf("key%d", n%10)
			s.Set(ScopeGlobal, key, "v")
			s.Get(ScopeGlobal, key)
			s.Resolve(key)
		}(i)
	}
	wg.Wait()

	for i := 0; i < 10; i++ {
		_, ok := s.Get(ScopeGlobal, fmt.Sprintf("key%d", i))
		assert.True(t, ok)
	}
}

func TestSnapshotAndMergeGlobals(t *testing.T) {
	s := NewStore()
	s.Set(ScopeGlobal, "a", "1")

	snap := s.SnapshotGlobals()
	snap["b"] = "2"

	// Snapshot is a copy, the store is untouched until merge.
	_, ok := s.Get(ScopeGlobal, "b")
	assert.False(t, ok)

	s.MergeGlobals(snap)
	v, ok := s.Get(ScopeGlobal, "b")
	require.True(t, ok)
	assert.Equal(t, "2", v)
}

func TestParseScope(t *testing.T) {
	tests := []struct {
		input    string
		expected Scope
		wantErr  bool
	}{
		{"session", ScopeSession, false},
		{"global", ScopeGlobal, false},
		{"globals", ScopeGlobal, false},
		{"environment", ScopeEnvironment, false},
		{"env", ScopeEnvironment, false},
		{" Session ", ScopeSession, false},
		{"bogus", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			scope, err := ParseScope(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, scope)
		})
	}
}
