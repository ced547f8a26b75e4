// Package p2p provides the peer to peer transport for the node: the wire
// message vocabulary and the TCP server that frames messages between peers.
// The transport is fire and forget: writes and broadcasts carry no delivery
// guarantee.
package p2p

import (
	"encoding/json"
	"fmt"

	"github.com/pullchain/pullchain/foundation/blockchain/database"
	"github.com/pullchain/pullchain/foundation/blockchain/signature"
)

// MessageKind identifies a P2P message variant on the wire.
type MessageKind string

// The set of message kinds peers exchange. Block propagation is pull based:
// hashes are announced, bodies are requested only for hashes the receiver
// lacks.
const (
	KindPing                 MessageKind = "ping"
	KindPong                 MessageKind = "pong"
	KindNewBlockHashes       MessageKind = "new_block_hashes"
	KindGetBlocks            MessageKind = "get_blocks"
	KindBlocks               MessageKind = "blocks"
	KindNewTransactionHashes MessageKind = "new_tx_hashes"
)

// Message is the envelope every P2P exchange travels in.
type Message struct {
	Kind    MessageKind     `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// PingPayload is a keepalive probe.
type PingPayload struct {
	Nonce uint32 `json:"nonce"`
}

// PongPayload is the keepalive reply. The nonce echoes the probe's as a
// string.
type PongPayload struct {
	Nonce string `json:"nonce"`
}

// HashesPayload carries an ordered list of digests. Used by the
// NewBlockHashes, GetBlocks and NewTransactionHashes kinds.
type HashesPayload struct {
	Hashes []signature.Hash `json:"hashes"`
}

// BlocksPayload delivers full block bodies.
type BlocksPayload struct {
	Blocks []database.BlockData `json:"blocks"`
}

// =============================================================================

// NewMessage constructs a message envelope around the specified payload.
func NewMessage(kind MessageKind, payload any) (Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Message{}, err
	}

	return Message{
		Kind:    kind,
		Payload: data,
	}, nil
}

// ParsePayload unmarshals the message payload into the provided value.
func (m Message) ParsePayload(payload any) error {
	return json.Unmarshal(m.Payload, payload)
}

// Encode serializes a message for the wire.
func Encode(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

// Decode deserializes a message from the wire and rejects unknown kinds.
func Decode(data []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return Message{}, fmt.Errorf("decode message: %w", err)
	}

	switch msg.Kind {
	case KindPing, KindPong, KindNewBlockHashes, KindGetBlocks, KindBlocks, KindNewTransactionHashes:
		return msg, nil
	}

	return Message{}, fmt.Errorf("unknown message kind %q", msg.Kind)
}
