package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCapabilityGrant_AllowsProtocol(t *testing.T) {
	open := CapabilityGrant{Name: "Network", Kind: EffectNetwork}
	assert.True(t, open.AllowsProtocol("https"), "no enumeration means any protocol")

	constrained := CapabilityGrant{Name: "Network", Kind: EffectNetwork, Protocols: []string{"https", "wss"}}
	assert.True(t, constrained.AllowsProtocol("https"))
	assert.True(t, constrained.AllowsProtocol("wss"))
	assert.False(t, constrained.AllowsProtocol("http"))
	assert.True(t, constrained.AllowsProtocol(""), "protocol-less sites are matched by domain only")
}

func TestCapabilityEnvironment_Frozen(t *testing.T) {
	env := NewCapabilityEnvironment([]CapabilityGrant{
		{Name: "Network", Kind: EffectNetwork, DomainPattern: "*.hawkbank.io"},
		{Name: "Filesystem", Kind: EffectFilesystem, DomainPattern: "/var/log/**"},
	})

	require.Equal(t, 2, env.Len())

	g, ok := env.Lookup("Network")
	require.True(t, ok)
	assert.Equal(t, "*.hawkbank.io", g.DomainPattern)

	_, ok = env.Lookup("Exec")
	assert.False(t, ok)

	assert.Equal(t, []string{"Filesystem", "Network"}, env.Names(), "names are sorted")
	assert.Len(t, env.ForKind(EffectNetwork), 1)
	assert.Empty(t, env.ForKind(EffectExec))
}

func TestCapabilityEnvironment_FirstDeclarationWins(t *testing.T) {
	env := NewCapabilityEnvironment([]CapabilityGrant{
		{Name: "Network", Kind: EffectNetwork, DomainPattern: "first.example.com"},
		{Name: "Network", Kind: EffectNetwork, DomainPattern: "second.example.com"},
	})

	require.Equal(t, 1, env.Len())
	g, ok := env.Lookup("Network")
	require.True(t, ok)
	assert.Equal(t, "first.example.com", g.DomainPattern)
}
