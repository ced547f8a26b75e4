package public

import (
	"github.com/pullchain/pullchain/foundation/blockchain/database"
	"github.com/pullchain/pullchain/foundation/blockchain/signature"
	"github.com/pullchain/pullchain/foundation/nameservice"
)

// tx is the view model for a signed transaction.
type tx struct {
	From     database.AccountID `json:"from"`
	FromName string             `json:"from_name"`
	To       database.AccountID `json:"to"`
	ToName   string             `json:"to_name"`
	Value    uint8              `json:"value"`
	Sig      string             `json:"sig"`
}

func toTx(ns *nameservice.NameService, signedTx database.SignedTx) tx {
	return tx{
		From:     signedTx.FromID,
		FromName: ns.Lookup(signedTx.FromID),
		To:       signedTx.ToID,
		ToName:   ns.Lookup(signedTx.ToID),
		Value:    signedTx.Value,
		Sig:      signedTx.SignatureString(),
	}
}

// block is the view model for a block and its transactions.
type block struct {
	Hash       signature.Hash `json:"hash"`
	Parent     signature.Hash `json:"parent"`
	Nonce      uint32         `json:"nonce"`
	Difficulty signature.Hash `json:"difficulty"`
	TimeStamp  uint32         `json:"timestamp"`
	TransRoot  signature.Hash `json:"trans_root"`
	Height     uint64         `json:"height"`
	Trans      []tx           `json:"trans"`
}

func toBlock(ns *nameservice.NameService, blk database.Block, height uint64) block {
	trans := make([]tx, len(blk.Trans))
	for i, signedTx := range blk.Trans {
		trans[i] = toTx(ns, signedTx)
	}

	return block{
		Hash:       blk.Hash(),
		Parent:     blk.Header.Parent,
		Nonce:      blk.Header.Nonce,
		Difficulty: blk.Header.Difficulty,
		TimeStamp:  blk.Header.TimeStamp,
		TransRoot:  blk.Header.TransRoot,
		Height:     height,
		Trans:      trans,
	}
}
