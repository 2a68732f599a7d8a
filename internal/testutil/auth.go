package testutil

import (
	"crypto/rsa"
	"testing"

	"github.com/WailSalutem-Health-Care/mindmap-service/internal/auth"
)

// TestIssuer is the issuer stamped on every test token
const TestIssuer = "https://test-keycloak.com/realms/test"

// TestKeyID is the kid header of every test token
const TestKeyID = "test-key-id"

// StaticKeys is a fixed auth.KeySource
type StaticKeys map[string]*rsa.PublicKey

func (k StaticKeys) Get(kid string) (*rsa.PublicKey, error) {
	if key, ok := k[kid]; ok {
		return key, nil
	}
	return nil, auth.ErrSigningKeyAbsent
}

// CreateTestVerifier creates a verifier that trusts a freshly generated key.
// It returns the verifier and the private key to sign test tokens
func CreateTestVerifier(t *testing.T) (*auth.Verifier, *rsa.PrivateKey) {
	t.Helper()

	privateKey, publicKey := GenerateTestKeyPair(t)

	verifier := auth.NewVerifier(auth.Config{Issuer: TestIssuer}, StaticKeys{TestKeyID: publicKey})

	return verifier, privateKey
}
