package cmd

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Manzanedodelgado/IA-DENTAL/pkg/auth"
)

func TestRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd()

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"serve", "query", "integrity", "analytics", "jobs", "health", "migrate", "token"} {
		assert.Contains(t, names, want)
	}

	analytics, _, err := root.Find([]string{"analytics", "dashboard"})
	require.NoError(t, err)
	assert.Equal(t, "dashboard", analytics.Name())
}

func TestTokenCmd_IssuesVerifiableToken(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "cli-secret")
	t.Setenv("SCHEDULER_TIMEZONE", "UTC")

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{
		"token",
		"--subject", "dr-lopez",
		"--ttl", "5m",
		"--config", filepath.Join(t.TempDir(), "missing.yaml"),
	})
	require.NoError(t, root.Execute())

	client, err := auth.NewJWKSClient(&auth.JWKSConfig{EnableVerification: true, Secret: "cli-secret"})
	require.NoError(t, err)
	claims, err := client.ValidateToken(strings.TrimSpace(out.String()))
	require.NoError(t, err)
	assert.Equal(t, "dr-lopez", claims.Subject)
	assert.Equal(t, "ia-dental", claims.Issuer)
}

func TestTokenCmd_RequiresSubject(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"token"})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "subject")
}

func TestQueryCmd_RejectsBlankQuestion(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"query", "   "})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "question text is required")
}
