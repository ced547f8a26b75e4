package database

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/pullchain/pullchain/foundation/blockchain/signature"
)

// Tx is the transactional information between two parties.
type Tx struct {
	FromID AccountID `json:"from"`  // Account sending the value.
	ToID   AccountID `json:"to"`    // Account receiving the value.
	Value  uint8     `json:"value"` // Monetary value moved by this transaction.
}

// NewTx constructs a new transaction.
func NewTx(fromID AccountID, toID AccountID, value uint8) (Tx, error) {
	if !fromID.IsAccountID() {
		return Tx{}, fmt.Errorf("from account is not properly formatted")
	}
	if !toID.IsAccountID() {
		return Tx{}, fmt.Errorf("to account is not properly formatted")
	}

	tx := Tx{
		FromID: fromID,
		ToID:   toID,
		Value:  value,
	}

	return tx, nil
}

// Sign uses the specified private key to sign the transaction.
func (tx Tx) Sign(privateKey *ecdsa.PrivateKey) (SignedTx, error) {

	// Sign the transaction with the private key to produce a signature.
	v, r, s, err := signature.Sign(tx, privateKey)
	if err != nil {
		return SignedTx{}, err
	}

	// Construct the signed transaction by adding the signature
	// in the [R|S|V] format.
	signedTx := SignedTx{
		Tx: tx,
		V:  v,
		R:  r,
		S:  s,
	}

	return signedTx, nil
}

// =============================================================================

// SignedTx is a signed version of the transaction. This is how clients like
// a wallet provide transactions for inclusion into the blockchain.
type SignedTx struct {
	Tx
	V *big.Int `json:"v"` // Recovery identifier, either 31 or 32 with pullID.
	R *big.Int `json:"r"` // First coordinate of the ECDSA signature.
	S *big.Int `json:"s"` // Second coordinate of the ECDSA signature.
}

// Validate verifies the transaction has a proper signature that conforms to
// our standards, is associated with the data claimed to be signed, and was
// produced by the account named as the sender.
func (tx SignedTx) Validate() error {
	if !tx.FromID.IsAccountID() {
		return fmt.Errorf("invalid account for from account")
	}
	if !tx.ToID.IsAccountID() {
		return fmt.Errorf("invalid account for to account")
	}

	if err := signature.VerifySignature(tx.Tx, tx.V, tx.R, tx.S); err != nil {
		return err
	}

	address, err := signature.FromAddress(tx.Tx, tx.V, tx.R, tx.S)
	if err != nil {
		return err
	}

	if AccountID(address) != tx.FromID {
		return fmt.Errorf("signature does not match the from account, got %s, exp %s", address, tx.FromID)
	}

	return nil
}

// Hash implements the merkle Hashable interface for providing a hash of the
// signed transaction. The hash also serves as the mempool key.
func (tx SignedTx) Hash() signature.Hash {
	return signature.HashOf(tx)
}

// Equals implements the merkle Hashable interface for providing an equality
// check between two signed transactions.
func (tx SignedTx) Equals(otherTx SignedTx) bool {
	return tx.Hash() == otherTx.Hash()
}

// SignatureString returns the signature as a string.
func (tx SignedTx) SignatureString() string {
	return signature.SignatureString(tx.V, tx.R, tx.S)
}

// String implements the fmt.Stringer interface for logging.
func (tx SignedTx) String() string {
	return fmt.Sprintf("%s:%d", tx.FromID, tx.Value)
}
