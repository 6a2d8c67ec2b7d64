package attest

import (
	"errors"
	"os"
	"testing"

	"ArenaVault/internal/ledger"
	"ArenaVault/internal/storage"
)

// newTestStorage creates a temporary storage for testing.
func newTestStorage(t *testing.T) *storage.Storage {
	t.Helper()

	dir, err := os.MkdirTemp("", "attest_test_*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}

	t.Cleanup(func() {
		os.RemoveAll(dir)
	})

	db, err := storage.New(dir)
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func newTestVerifier(t *testing.T) (*Verifier, *KeyPair) {
	t.Helper()

	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	db := newTestStorage(t)
	v := NewVerifier(db, key.PublicKeyBytes)

	return v, key
}

var (
	testPrincipal = ledger.Principal{0x01}
	testAsset     = ledger.AssetID{0xAA}
)

func TestVerifyValidAttestation(t *testing.T) {
	v, key := newTestVerifier(t)

	assets := []ledger.AssetID{testAsset}
	amounts := []uint64{100}

	sig := SignAttestation(key, testPrincipal, assets, amounts, 1)

	if err := v.Verify(testPrincipal, assets, amounts, 1, sig); err != nil {
		t.Fatalf("verify: %v", err)
	}
}

func TestVerifyWrongKey(t *testing.T) {
	v, _ := newTestVerifier(t)

	other, err := GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	assets := []ledger.AssetID{testAsset}
	amounts := []uint64{100}

	sig := SignAttestation(other, testPrincipal, assets, amounts, 1)

	if err := v.Verify(testPrincipal, assets, amounts, 1, sig); !errors.Is(err, ledger.ErrBadSignature) {
		t.Errorf("expected BadSignature, got %v", err)
	}
}

func TestVerifyTamperedFields(t *testing.T) {
	v, key := newTestVerifier(t)

	assets := []ledger.AssetID{testAsset}
	amounts := []uint64{100}

	sig := SignAttestation(key, testPrincipal, assets, amounts, 1)

	// Any altered field breaks the signature.
	if err := v.Verify(ledger.Principal{0x02}, assets, amounts, 1, sig); !errors.Is(err, ledger.ErrBadSignature) {
		t.Errorf("altered principal: expected BadSignature, got %v", err)
	}
	if err := v.Verify(testPrincipal, assets, []uint64{101}, 1, sig); !errors.Is(err, ledger.ErrBadSignature) {
		t.Errorf("altered amount: expected BadSignature, got %v", err)
	}
	if err := v.Verify(testPrincipal, assets, amounts, 2, sig); !errors.Is(err, ledger.ErrBadSignature) {
		t.Errorf("altered nonce: expected BadSignature, got %v", err)
	}
}

func TestVerifyGarbageSignature(t *testing.T) {
	v, _ := newTestVerifier(t)

	for _, sig := range [][]byte{nil, {0x01}, make([]byte, SignatureSize)} {
		err := v.Verify(testPrincipal, nil, nil, 1, sig)
		if !errors.Is(err, ledger.ErrBadSignature) {
			t.Errorf("sig len %d: expected BadSignature, got %v", len(sig), err)
		}
	}
}

func TestNonceReplayRejected(t *testing.T) {
	v, key := newTestVerifier(t)

	assets := []ledger.AssetID{testAsset}
	amounts := []uint64{100}

	sig := SignAttestation(key, testPrincipal, assets, amounts, 7)
	if err := v.Verify(testPrincipal, assets, amounts, 7, sig); err != nil {
		t.Fatalf("first verify: %v", err)
	}

	// Same nonce, identical message
	if err := v.Verify(testPrincipal, assets, amounts, 7, sig); !errors.Is(err, ledger.ErrNonceReused) {
		t.Errorf("replay: expected NonceReused, got %v", err)
	}

	// Same nonce, every other field altered and freshly signed
	other := ledger.Principal{0x09}
	sig2 := SignAttestation(key, other, nil, nil, 7)
	if err := v.Verify(other, nil, nil, 7, sig2); !errors.Is(err, ledger.ErrNonceReused) {
		t.Errorf("fresh message, burned nonce: expected NonceReused, got %v", err)
	}

	// A tampered replay fails the signature check before the nonce is
	// ever consulted.
	if err := v.Verify(testPrincipal, assets, []uint64{999}, 7, sig); !errors.Is(err, ledger.ErrBadSignature) {
		t.Errorf("tampered replay: expected BadSignature, got %v", err)
	}

	// A fresh nonce still works
	sig3 := SignAttestation(key, testPrincipal, assets, amounts, 8)
	if err := v.Verify(testPrincipal, assets, amounts, 8, sig3); err != nil {
		t.Errorf("fresh nonce: %v", err)
	}
}

func TestFailedVerifyDoesNotBurnNonce(t *testing.T) {
	v, key := newTestVerifier(t)

	assets := []ledger.AssetID{testAsset}
	amounts := []uint64{100}

	// A bad signature must not consume the nonce.
	bad := make([]byte, SignatureSize)
	if err := v.Verify(testPrincipal, assets, amounts, 3, bad); !errors.Is(err, ledger.ErrBadSignature) {
		t.Fatalf("expected BadSignature, got %v", err)
	}

	sig := SignAttestation(key, testPrincipal, assets, amounts, 3)
	if err := v.Verify(testPrincipal, assets, amounts, 3, sig); err != nil {
		t.Errorf("nonce must survive a failed verify: %v", err)
	}
}

func TestCanonicalEncodingInjective(t *testing.T) {
	a := ledger.AssetID{0x01}
	b := ledger.AssetID{0x02}

	// Moving an element between the asset and amount vectors must change
	// the digest; length prefixes keep the encoding unambiguous.
	d1 := AttestationDigest(testPrincipal, []ledger.AssetID{a, b}, []uint64{1}, 5)
	d2 := AttestationDigest(testPrincipal, []ledger.AssetID{a}, []uint64{1, 5}, 5)
	if d1 == d2 {
		t.Error("digest collision across vector boundaries")
	}

	d3 := AttestationDigest(testPrincipal, []ledger.AssetID{a}, []uint64{1}, 5)
	d4 := AttestationDigest(testPrincipal, []ledger.AssetID{a}, []uint64{1}, 6)
	if d3 == d4 {
		t.Error("digest ignores nonce")
	}
}
