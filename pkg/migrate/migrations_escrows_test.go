package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stellovault/stellovault-backend/pkg/migrate"
)

func TestEscrowMigrationContainsConstraints(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_escrows.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no escrow migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TYPE escrow_status AS ENUM ('pending', 'funded', 'released', 'refunded', 'disputed', 'cancelled')",
		"CHECK (amount > 0)",
		"CHECK (buyer_id <> seller_id)",
		"FOREIGN KEY (buyer_id) REFERENCES parties(id)",
		"ix_escrows_status_expires_at",
		"DROP TABLE IF EXISTS escrows",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestConfirmationMigrationContainsReplayGuard(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_oracles.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no oracle migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CONSTRAINT uq_confirmations_oracle_escrow_event UNIQUE (oracle_id, escrow_id, event_type)",
		"CONSTRAINT uq_oracles_address UNIQUE (address)",
		"PRIMARY KEY (oracle_id, window_start)",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestMigrationDirIsValid(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("migrations dir invalid: %v", err)
	}
}
