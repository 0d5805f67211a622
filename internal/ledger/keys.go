package ledger

import (
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/oraclesettle/parimutuel/internal/domain"
)

// H is the canonical keyed derivation hash. It concatenates a label with
// one or more identifier byte strings and hashes them with Keccak256,
// giving a deterministic 32-byte key from a labelled seed tuple. The label
// prefixes ("market", "user_bet", "escrow") are part of the external wire
// contract and must never change.
//
// This reuses the teacher's EIP-712 struct-hash primitive
// (ethcrypto.Keccak256) rather than introducing a second hash library,
// since go-ethereum is already a dependency of this module.
func H(label string, parts ...[]byte) [32]byte {
	data := make([][]byte, 0, len(parts)+1)
	data = append(data, []byte(label))
	data = append(data, parts...)
	return crypto.Keccak256Hash(data...)
}

// DeriveMarketKey computes H("market", market_seed).
func DeriveMarketKey(seed string) domain.MarketKey {
	return domain.MarketKey(H("market", []byte(seed)))
}

// DeriveWagerKey computes H("user_bet", market_key, participant_id).
func DeriveWagerKey(marketKey domain.MarketKey, participant domain.Identity) domain.WagerKey {
	return domain.WagerKey(H("user_bet", marketKey[:], participant[:]))
}

// DeriveEscrowKey computes H("escrow", market_key).
func DeriveEscrowKey(marketKey domain.MarketKey) domain.EscrowVaultKey {
	return domain.EscrowVaultKey(H("escrow", marketKey[:]))
}
