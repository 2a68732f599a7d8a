package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// TestDatabaseURLEnv names the variable holding the integration database DSN
const TestDatabaseURLEnv = "TEST_DATABASE_URL"

// SetupTestDB connects to the database named by TEST_DATABASE_URL.
// The test is skipped when the variable is unset
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	connStr := os.Getenv(TestDatabaseURLEnv)
	if connStr == "" {
		t.Skipf("%s not set, skipping database test", TestDatabaseURLEnv)
	}

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		t.Fatalf("Failed to ping test database: %v", err)
	}

	t.Cleanup(func() { db.Close() })

	return db
}

const registryDDL = `
	CREATE SCHEMA IF NOT EXISTS wailsalutem;
	CREATE TABLE IF NOT EXISTS wailsalutem.organizations (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL,
		schema_name TEXT NOT NULL UNIQUE,
		status TEXT NOT NULL DEFAULT 'active',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		deleted_at TIMESTAMPTZ
	);
`

const tenantDDL = `
	CREATE SCHEMA %[1]s;
	CREATE TABLE %[1]s.patients (
		id TEXT PRIMARY KEY,
		first_name TEXT,
		last_name TEXT,
		date_of_birth DATE,
		gender TEXT,
		email TEXT,
		phone_number TEXT,
		address TEXT,
		blood_type TEXT,
		allergies TEXT[],
		deleted_at TIMESTAMPTZ
	);
	CREATE TABLE %[1]s.prescriptions (
		id TEXT PRIMARY KEY,
		patient_id TEXT NOT NULL,
		diagnosis TEXT,
		prescribed_date DATE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		notes TEXT,
		medications JSONB,
		deleted_at TIMESTAMPTZ
	);
	CREATE TABLE %[1]s.medicines (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		generic_name TEXT,
		manufacturer TEXT,
		form TEXT,
		strength TEXT,
		deleted_at TIMESTAMPTZ
	);
`

// CreateTestOrg registers an organization and creates its tenant schema with
// the patients, prescriptions and medicines tables. Both are removed when the
// test ends
func CreateTestOrg(t *testing.T, db *sql.DB, name string) (orgID, schemaName string) {
	t.Helper()
	ctx := context.Background()

	if _, err := db.ExecContext(ctx, registryDDL); err != nil {
		t.Fatalf("Failed to create organizations registry: %v", err)
	}

	orgID = uuid.New().String()
	schemaName = "org_test_" + strings.ReplaceAll(orgID[:8], "-", "")

	_, err := db.ExecContext(ctx,
		`INSERT INTO wailsalutem.organizations (id, name, schema_name) VALUES ($1, $2, $3)`,
		orgID, name, schemaName,
	)
	if err != nil {
		t.Fatalf("Failed to create test organization: %v", err)
	}

	if _, err := db.ExecContext(ctx, fmt.Sprintf(tenantDDL, pq.QuoteIdentifier(schemaName))); err != nil {
		t.Fatalf("Failed to create tenant schema: %v", err)
	}

	t.Cleanup(func() {
		if _, err := db.Exec(fmt.Sprintf("DROP SCHEMA IF EXISTS %s CASCADE", pq.QuoteIdentifier(schemaName))); err != nil {
			t.Logf("Warning: Failed to drop schema %s: %v", schemaName, err)
		}
		if _, err := db.Exec(`DELETE FROM wailsalutem.organizations WHERE id = $1`, orgID); err != nil {
			t.Logf("Warning: Failed to delete organization %s: %v", orgID, err)
		}
	})

	return orgID, schemaName
}
