package testutil

import (
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// GenerateTestKeyPair generates an RSA key pair for testing JWT tokens
func GenerateTestKeyPair(t *testing.T) (*rsa.PrivateKey, *rsa.PublicKey) {
	t.Helper()

	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("Failed to generate RSA key: %v", err)
	}
	return privateKey, &privateKey.PublicKey
}

// GenerateTestJWT creates a valid JWT token for end-to-end testing
// This generates a token with the specified user ID, org ID, and roles
func GenerateTestJWT(t *testing.T, privateKey *rsa.PrivateKey, userID, orgID, orgSchemaName string, roles []string) string {
	t.Helper()

	// Create claims matching your auth system
	claims := jwt.MapClaims{
		"sub": userID,
		"iss": TestIssuer,
		"exp": time.Now().Add(1 * time.Hour).Unix(),
		"iat": time.Now().Unix(),
		"realm_access": map[string]interface{}{
			"roles": interfaceSlice(roles),
		},
	}

	// Add org claims if provided
	if orgID != "" {
		claims["organizationID"] = orgID
	}
	if orgSchemaName != "" {
		claims["orgSchemaName"] = orgSchemaName
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = TestKeyID

	tokenString, err := token.SignedString(privateKey)
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}

	return tokenString
}

// GenerateDoctorToken creates a DOCTOR token for testing
func GenerateDoctorToken(t *testing.T, privateKey *rsa.PrivateKey, orgID, orgSchemaName string) string {
	t.Helper()
	return GenerateTestJWT(t, privateKey, "doctor-123", orgID, orgSchemaName, []string{"DOCTOR"})
}

// GenerateNurseToken creates a NURSE token for testing
func GenerateNurseToken(t *testing.T, privateKey *rsa.PrivateKey, orgID, orgSchemaName string) string {
	t.Helper()
	return GenerateTestJWT(t, privateKey, "nurse-123", orgID, orgSchemaName, []string{"NURSE"})
}

// GeneratePatientToken creates a PATIENT token for testing
func GeneratePatientToken(t *testing.T, privateKey *rsa.PrivateKey, orgID, orgSchemaName string) string {
	t.Helper()
	return GenerateTestJWT(t, privateKey, "patient-123", orgID, orgSchemaName, []string{"PATIENT"})
}

// interfaceSlice converts []string to []interface{} for JWT claims
func interfaceSlice(strings []string) []interface{} {
	result := make([]interface{}, len(strings))
	for i, s := range strings {
		result[i] = s
	}
	return result
}
