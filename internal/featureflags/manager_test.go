package featureflags

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnabled_BooleanValues(t *testing.T) {
	t.Parallel()
	m := NewManager("a=on,b=off,c=true,d=false,e=1,f=0")

	for _, name := range []string{"a", "c", "e"} {
		assert.True(t, m.Enabled(name, "u1"), name)
	}
	for _, name := range []string{"b", "d", "f", "missing"} {
		assert.False(t, m.Enabled(name, "u1"), name)
	}
}

func TestEnabled_PercentageValues(t *testing.T) {
	t.Parallel()
	m := NewManager("always=100%,never=0%,canary=25%,broken=abc%")

	assert.True(t, m.Enabled("always", "u1"))
	assert.True(t, m.Enabled("always", ""))
	assert.False(t, m.Enabled("never", "u1"))
	assert.False(t, m.Enabled("broken", "u1"))

	first := m.Enabled("canary", "u42")
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, m.Enabled("canary", "u42"), "rollout must be deterministic per user")
	}
	assert.False(t, m.Enabled("canary", ""), "partial rollout requires a user")
}

func TestEnabled_PartialRolloutSplitsUsers(t *testing.T) {
	t.Parallel()
	m := NewManager(AIEnhance + "=50%")
	on := 0
	for i := 0; i < 200; i++ {
		if m.Enabled(AIEnhance, "user-"+string(rune('a'+i%26))+string(rune('a'+i/26))) {
			on++
		}
	}
	assert.Greater(t, on, 0)
	assert.Less(t, on, 200)
}

func TestParseAndSnapshot(t *testing.T) {
	t.Parallel()
	m := NewManager(" bad ,X=on, y = 100% ,z=off,=on,w= ")

	assert.Equal(t, map[string]bool{"x": true, "y": true, "z": false}, m.Snapshot("u1"))

	var nilManager *Manager
	assert.False(t, nilManager.Enabled("x", "u1"))
	assert.Empty(t, nilManager.Snapshot("u1"))
}
