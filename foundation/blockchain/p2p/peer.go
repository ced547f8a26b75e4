package p2p

import (
	"bufio"
	"net"
	"sync"
)

// Sender represents one connected peer a message can be written back to.
// The network workers receive inbound payloads attributed to a Sender so
// replies reach the peer that sent the payload.
type Sender interface {
	Write(msg Message) error
	Host() string
}

// Inbound is one peer attributed payload pulled off the wire, exactly as it
// arrived. Decoding is the consumer's job so a malformed payload can be
// isolated without touching the connection.
type Inbound struct {
	Payload []byte
	Peer    Sender
}

// =============================================================================

// Peer represents a connected remote node. Frames are newline delimited
// JSON documents.
type Peer struct {
	conn     net.Conn
	server   *Server
	outbound bool
	wrMu     sync.Mutex
	quit     chan struct{}
	once     sync.Once
}

func newPeer(conn net.Conn, server *Server, outbound bool) *Peer {
	return &Peer{
		conn:     conn,
		server:   server,
		outbound: outbound,
		quit:     make(chan struct{}),
	}
}

// Host returns the remote address of the peer.
func (p *Peer) Host() string {
	return p.conn.RemoteAddr().String()
}

// Write frames and sends one message to this peer. Fire and forget: an
// error means the connection is gone, not that the message was rejected.
func (p *Peer) Write(msg Message) error {
	data, err := Encode(msg)
	if err != nil {
		return err
	}

	p.wrMu.Lock()
	defer p.wrMu.Unlock()

	if _, err := p.conn.Write(append(data, '\n')); err != nil {
		return err
	}

	return nil
}

// close shuts the connection down once, regardless of who noticed the
// failure first.
func (p *Peer) close() {
	p.once.Do(func() {
		close(p.quit)
		p.conn.Close()
	})
}

// readLoop continuously reads frames from the connection and hands them to
// the server's inbound queue. The loop ends when the connection errors or
// the peer is closed.
func (p *Peer) readLoop() {
	defer p.server.removePeer(p)

	scanner := bufio.NewScanner(p.conn)
	scanner.Buffer(make([]byte, 0, 64*1024), maxFrameSize)

	for scanner.Scan() {
		payload := make([]byte, len(scanner.Bytes()))
		copy(payload, scanner.Bytes())

		select {
		case p.server.inbox <- Inbound{Payload: payload, Peer: p}:
		case <-p.server.quit:
			return
		}
	}

	select {
	case <-p.quit:
	default:
		p.server.ev("p2p: peer %s: read loop ended: %v", p.Host(), scanner.Err())
	}
}
