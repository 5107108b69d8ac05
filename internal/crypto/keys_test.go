package crypto

import (
	"bytes"
	"errors"
	"os"
	"testing"
)

func TestGenerateECDSAKeyPair(t *testing.T) {
	privKey, err := GenerateECDSAKeyPair()
	if err != nil {
		t.Fatalf("GenerateECDSAKeyPair() error = %v", err)
	}
	if privKey == nil {
		t.Fatalf("GenerateECDSAKeyPair() private key is nil")
	}
	if privKey.PublicKey.X == nil || privKey.PublicKey.Y == nil {
		t.Fatalf("GenerateECDSAKeyPair() public key coordinates are nil")
	}
	if privKey.PublicKey.Curve.Params().Name != "P-256" {
		t.Errorf("Expected P256 curve, got %s", privKey.PublicKey.Curve.Params().Name)
	}
}

func TestPublicKeySerializationDeserialization(t *testing.T) {
	privKey, _ := GenerateECDSAKeyPair()
	pubKey := &privKey.PublicKey

	serialized, err := SerializePublicKeyToBytes(pubKey)
	if err != nil {
		t.Fatalf("SerializePublicKeyToBytes() error = %v", err)
	}
	if serialized == nil {
		t.Fatalf("SerializePublicKeyToBytes() returned nil")
	}

	deserializedPubKey, err := DeserializePublicKeyFromBytes(serialized)
	if err != nil {
		t.Fatalf("DeserializePublicKeyFromBytes() error = %v", err)
	}
	if pubKey.X.Cmp(deserializedPubKey.X) != 0 || pubKey.Y.Cmp(deserializedPubKey.Y) != 0 {
		t.Errorf("Original and deserialized public key coordinates do not match")
	}
}

func TestAddressConversion(t *testing.T) {
	privKey, _ := GenerateECDSAKeyPair()
	pubKeyBytes, err := SerializePublicKeyToBytes(&privKey.PublicKey)
	if err != nil {
		t.Fatalf("SerializePublicKeyToBytes() error = %v", err)
	}

	address := PublicKeyBytesToAddress(pubKeyBytes)
	if address == "" {
		t.Fatalf("PublicKeyBytesToAddress() returned empty string")
	}
	if len(address) != 130 { // 04 + 32 bytes for X + 32 bytes for Y, hex encoded = 2 + 64 + 64
		t.Errorf("Expected address length 130, got %d", len(address))
	}

	retrievedPubKeyBytes, err := AddressToPublicKeyBytes(address)
	if err != nil {
		t.Fatalf("AddressToPublicKeyBytes() error = %v", err)
	}
	if !bytes.Equal(pubKeyBytes, retrievedPubKeyBytes) {
		t.Errorf("Original public key bytes and bytes from address do not match")
	}
}

func TestPrivateKeyPEMSerialization(t *testing.T) {
	privKey, _ := GenerateECDSAKeyPair()

	pemBytes, err := SerializePrivateKeyToPEM(privKey, nil)
	if err != nil {
		t.Fatalf("SerializePrivateKeyToPEM() without password error = %v", err)
	}
	deserializedPrivKey, err := DeserializePrivateKeyFromPEM(pemBytes, nil)
	if err != nil {
		t.Fatalf("DeserializePrivateKeyFromPEM() without password error = %v", err)
	}
	if privKey.D.Cmp(deserializedPrivKey.D) != 0 ||
		privKey.PublicKey.X.Cmp(deserializedPrivKey.PublicKey.X) != 0 ||
		privKey.PublicKey.Y.Cmp(deserializedPrivKey.PublicKey.Y) != 0 {
		t.Errorf("Original and deserialized private keys (no password) do not match")
	}

	// Password-protected PEM is explicitly unsupported; callers get ErrPEMEncrypted.
	if _, err := SerializePrivateKeyToPEM(privKey, []byte("testpassword")); !errors.Is(err, ErrPEMEncrypted) {
		t.Errorf("expected ErrPEMEncrypted for a password request, got %v", err)
	}
}

func TestPublicKeyPEMSerialization(t *testing.T) {
	privKey, _ := GenerateECDSAKeyPair()
	pubKey := &privKey.PublicKey

	pemBytes, err := SerializePublicKeyToPEM(pubKey)
	if err != nil {
		t.Fatalf("SerializePublicKeyToPEM() error = %v", err)
	}
	deserializedPubKey, err := DeserializePublicKeyFromPEM(pemBytes)
	if err != nil {
		t.Fatalf("DeserializePublicKeyFromPEM() error = %v", err)
	}
	if pubKey.X.Cmp(deserializedPubKey.X) != 0 || pubKey.Y.Cmp(deserializedPubKey.Y) != 0 {
		t.Errorf("Original and deserialized public keys (PEM) do not match")
	}
}

func TestFileOperations(t *testing.T) {
	privKey, _ := GenerateECDSAKeyPair()
	pubKey := &privKey.PublicKey
	privKeyFile := "test_priv.pem"
	pubKeyFile := "test_pub.pem"

	defer os.Remove(privKeyFile)
	defer os.Remove(pubKeyFile)

	if err := SavePrivateKeyPEM(privKey, privKeyFile, nil); err != nil {
		t.Fatalf("SavePrivateKeyPEM() error = %v", err)
	}
	loadedPrivKey, err := LoadPrivateKeyPEM(privKeyFile, nil)
	if err != nil {
		t.Fatalf("LoadPrivateKeyPEM() error = %v", err)
	}
	if privKey.D.Cmp(loadedPrivKey.D) != 0 {
		t.Errorf("Saved and loaded unencrypted private keys do not match")
	}

	if err := SavePublicKeyPEM(pubKey, pubKeyFile); err != nil {
		t.Fatalf("SavePublicKeyPEM() error = %v", err)
	}
	loadedPubKey, err := LoadPublicKeyPEM(pubKeyFile)
	if err != nil {
		t.Fatalf("LoadPublicKeyPEM() error = %v", err)
	}
	if pubKey.X.Cmp(loadedPubKey.X) != 0 || pubKey.Y.Cmp(loadedPubKey.Y) != 0 {
		t.Errorf("Saved and loaded public keys do not match")
	}
}

func TestSignVerify(t *testing.T) {
	privKey, _ := GenerateECDSAKeyPair()
	msg := []byte("epoch transition proof")

	sig, err := Sign(privKey, msg)
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}
	if !Verify(&privKey.PublicKey, msg, sig) {
		t.Fatalf("Verify() rejected a valid signature")
	}
	if Verify(&privKey.PublicKey, []byte("tampered"), sig) {
		t.Fatalf("Verify() accepted a signature over the wrong message")
	}
	other, _ := GenerateECDSAKeyPair()
	if Verify(&other.PublicKey, msg, sig) {
		t.Fatalf("Verify() accepted a signature under the wrong key")
	}
}

func TestDIDKeyRoundTrip(t *testing.T) {
	privKey, _ := GenerateECDSAKeyPair()
	did, err := GenerateDIDKeyFromECDSAPublicKey(&privKey.PublicKey)
	if err != nil {
		t.Fatalf("GenerateDIDKeyFromECDSAPublicKey() error = %v", err)
	}
	if did[:8] != "did:key:" {
		t.Fatalf("expected did:key: prefix, got %s", did)
	}
	raw, err := ParseDIDKeySecp256r1(did)
	if err != nil {
		t.Fatalf("ParseDIDKeySecp256r1() error = %v", err)
	}
	want, _ := SerializePublicKeyToBytes(&privKey.PublicKey)
	if !bytes.Equal(raw, want) {
		t.Errorf("round-tripped public key bytes do not match original")
	}
}
