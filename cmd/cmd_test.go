package cmd_test

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/USA-RedDragon/itinerary-server/cmd"
	"github.com/USA-RedDragon/itinerary-server/internal/utils"
)

// databaseFlags are inherited by every subcommand.
func databaseFlags(t *testing.T) []string {
	t.Helper()
	return []string{
		"--jwt.secret", "changeme",
		"--persistence.database.database", filepath.Join(t.TempDir(), "itinerary.db"),
	}
}

func TestDefault(t *testing.T) {
	t.Parallel()
	baseCmd := cmd.NewCommand("testing", "default")
	// Avoid port conflict
	baseCmd.SetArgs(append([]string{
		"--http.port", "8082",
		"--http.metrics.port", "8083",
		"--persistence.archive.directory", filepath.Join(t.TempDir(), "archive"),
	}, databaseFlags(t)...))
	err := baseCmd.Execute()
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestToken(t *testing.T) {
	t.Parallel()
	baseCmd := cmd.NewCommand("testing", "token")
	var out bytes.Buffer
	baseCmd.SetOut(&out)
	baseCmd.SetArgs(append([]string{"token", "--email", "traveler@example.com"}, databaseFlags(t)...))
	if err := baseCmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	uid, err := utils.VerifyJWT("changeme", strings.TrimSpace(out.String()))
	if err != nil {
		t.Fatalf("expected a valid token: %v", err)
	}
	if uid == 0 {
		t.Error("expected a user id in the token")
	}
}

func TestTokenRequiresEmail(t *testing.T) {
	t.Parallel()
	baseCmd := cmd.NewCommand("testing", "token")
	baseCmd.SetArgs(append([]string{"token"}, databaseFlags(t)...))
	if err := baseCmd.Execute(); err == nil {
		t.Error("expected an error without --email")
	}
}
