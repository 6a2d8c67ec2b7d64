package attest

import (
	"encoding/binary"

	"github.com/zeebo/blake3"

	"ArenaVault/internal/ledger"
	"ArenaVault/internal/logger"
	"ArenaVault/internal/storage"
)

// nonceKeyPrefix is the Pebble key prefix for consumed nonces.
var nonceKeyPrefix = []byte("n:")

// Verifier validates signed settlement attestations against the
// configured attestor key and guards against replay through a permanent
// nonce registry. Membership is never evicted, so the registry grows
// with the total number of attestations ever accepted; that unbounded
// growth is the price of unconditional replay immunity.
type Verifier struct {
	db     *storage.Storage
	pubKey func() []byte // pubKey returns the current attestor public key
}

// NewVerifier creates a verifier over the given storage. pubKey is
// consulted on every call so attestor rotation takes effect immediately.
func NewVerifier(db *storage.Storage, pubKey func() []byte) *Verifier {
	return &Verifier{db: db, pubKey: pubKey}
}

// Verify checks that the attestation over (principal, assets, amounts,
// nonce) was signed by the attestor and that the nonce is fresh. On
// success the nonce is recorded before returning, making the check
// replay-safe independent of what the caller does next.
//
// The signature is checked before the nonce, so the registry is never
// consulted for unauthenticated input. A replayed message that was also
// tampered with therefore reports BadSignature, not NonceReused; only
// an authentic replay sees NonceReused.
func (v *Verifier) Verify(principal ledger.Principal, assets []ledger.AssetID, amounts []uint64, nonce uint64, signature []byte) error {
	digest := AttestationDigest(principal, assets, amounts, nonce)

	if !VerifySignature(signature, digest[:], v.pubKey()) {
		return ledger.ErrBadSignature
	}

	consumed, err := v.db.Has(nonceKey(nonce))
	if err != nil {
		return &ledger.Error{Code: ledger.CodeStorage, Msg: "nonce lookup failed", Cause: err}
	}

	if consumed {
		return ledger.ErrNonceReused
	}

	if err := v.db.Set(nonceKey(nonce), nil); err != nil {
		return &ledger.Error{Code: ledger.CodeStorage, Msg: "nonce record failed", Cause: err}
	}

	logger.Debug("attestation verified", "principal", principal, "nonce", nonce)

	return nil
}

// AttestationDigest hashes the canonical encoding of an attestation.
// Signer and verifier must build the identical encoding; any ambiguity
// here would open the signature to malleability.
func AttestationDigest(principal ledger.Principal, assets []ledger.AssetID, amounts []uint64, nonce uint64) [32]byte {
	return blake3.Sum256(encodeAttestation(principal, assets, amounts, nonce))
}

// encodeAttestation builds the canonical byte encoding:
// [32]principal | u32 n | n*[32]asset | u32 m | m*u64 amount | u64 nonce
// (all integers little-endian). Length prefixes keep the encoding
// injective across different basket sizes.
func encodeAttestation(principal ledger.Principal, assets []ledger.AssetID, amounts []uint64, nonce uint64) []byte {
	buf := make([]byte, 0, 32+4+len(assets)*32+4+len(amounts)*8+8)

	buf = append(buf, principal[:]...)

	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(assets)))
	for _, a := range assets {
		buf = append(buf, a[:]...)
	}

	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(amounts)))
	for _, v := range amounts {
		buf = binary.LittleEndian.AppendUint64(buf, v)
	}

	buf = binary.LittleEndian.AppendUint64(buf, nonce)

	return buf
}

// nonceKey builds the Pebble key for a nonce: "n:" + u64 LE.
func nonceKey(nonce uint64) []byte {
	key := make([]byte, len(nonceKeyPrefix)+8)
	copy(key, nonceKeyPrefix)
	binary.LittleEndian.PutUint64(key[len(nonceKeyPrefix):], nonce)

	return key
}

// SignAttestation produces an attestor signature over the canonical
// attestation digest. Used by the attestor-side tooling and tests.
func SignAttestation(key *KeyPair, principal ledger.Principal, assets []ledger.AssetID, amounts []uint64, nonce uint64) []byte {
	digest := AttestationDigest(principal, assets, amounts, nonce)
	return key.Sign(digest[:])
}
