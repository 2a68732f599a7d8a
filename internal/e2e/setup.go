package e2e

import (
	"crypto/rsa"
	"database/sql"
	"net/http/httptest"
	"testing"

	"github.com/WailSalutem-Health-Care/mindmap-service/internal/auth"
	"github.com/WailSalutem-Health-Care/mindmap-service/internal/backend"
	httpserver "github.com/WailSalutem-Health-Care/mindmap-service/internal/http"
	"github.com/WailSalutem-Health-Care/mindmap-service/internal/mindmap"
	"github.com/WailSalutem-Health-Care/mindmap-service/internal/normalize"
	"github.com/WailSalutem-Health-Care/mindmap-service/internal/patient"
	"github.com/WailSalutem-Health-Care/mindmap-service/internal/testutil"
)

// source is what the router's services read from.
type source interface {
	patient.RecordSource
	patient.MedicineCatalog
}

// TestServer represents a complete end-to-end test environment
type TestServer struct {
	Server        *httptest.Server
	DB            *sql.DB
	MockPublisher *testutil.MockPublisher
	Verifier      *auth.Verifier
	PrivateKey    *rsa.PrivateKey
}

// SetupAPITest serves the full router on top of the backend client pointed at
// backendURL. No database is involved.
func SetupAPITest(t *testing.T, backendURL string) *TestServer {
	t.Helper()

	cfg := backend.DefaultConfig(backendURL)
	client, err := backend.New(cfg, normalize.New(nil, nil), nil)
	if err != nil {
		t.Fatalf("Failed to create backend client: %v", err)
	}

	return newTestServer(t, client, nil)
}

// SetupDBTest serves the full router on top of PostgreSQL. It is skipped when
// no test database is configured.
func SetupDBTest(t *testing.T) *TestServer {
	t.Helper()

	db := testutil.SetupTestDB(t)
	normalizer := normalize.New(nil, nil)
	src := patient.NewDBSource(patient.NewRepository(db, nil), patient.NewDBSchemaLookup(db), normalizer)

	return newTestServer(t, src, db)
}

func newTestServer(t *testing.T, src source, db *sql.DB) *TestServer {
	t.Helper()

	mockPublisher := testutil.NewMockPublisher()

	perms, err := auth.LoadPermissions("../../permissions.yml")
	if err != nil {
		t.Fatalf("Failed to load permissions: %v", err)
	}

	verifier, privateKey := testutil.CreateTestVerifier(t)

	service := mindmap.NewService(src, mockPublisher, nil, nil)
	router := httpserver.SetupRouter(httpserver.Deps{
		Verifier: verifier,
		Perms:    perms,
		MindMap:  mindmap.NewHandler(mindmap.NewSessions(service), nil),
		Patients: patient.NewHandler(patient.NewService(src, src, nil), nil),
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &TestServer{
		Server:        server,
		DB:            db,
		MockPublisher: mockPublisher,
		Verifier:      verifier,
		PrivateKey:    privateKey,
	}
}

// GenerateDoctorToken generates a DOCTOR token for this test server
func (ts *TestServer) GenerateDoctorToken(t *testing.T, orgID, orgSchemaName string) string {
	t.Helper()
	return testutil.GenerateDoctorToken(t, ts.PrivateKey, orgID, orgSchemaName)
}

// GeneratePatientToken generates a PATIENT token for this test server
func (ts *TestServer) GeneratePatientToken(t *testing.T, orgID, orgSchemaName string) string {
	t.Helper()
	return testutil.GeneratePatientToken(t, ts.PrivateKey, orgID, orgSchemaName)
}

// NewClient creates a new HTTP test client for this server with the given token
func (ts *TestServer) NewClient(token string) *testutil.HTTPTestClient {
	return testutil.NewHTTPTestClient(ts.Server.URL, token)
}
