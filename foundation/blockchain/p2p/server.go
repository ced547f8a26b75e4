package p2p

import (
	"fmt"
	"net"
	"sync"

	"github.com/pullchain/pullchain/foundation/blockchain/peer"
)

// maxFrameSize bounds a single wire frame. A frame carries at most one
// Blocks payload, which is small in this chain (blocks hold tens of
// transactions).
const maxFrameSize = 8 * 1024 * 1024

// EventHandler defines a function that is called when events occur in the
// transport.
type EventHandler func(v string, args ...any)

// Config represents the configuration required to start the transport.
type Config struct {
	Host       string
	KnownPeers *peer.PeerSet
	EvHandler  EventHandler
}

// Server owns the listening socket and the set of live peer connections.
// Every frame read from any connection lands in one shared inbound queue
// consumed by the network worker pool.
type Server struct {
	host     string
	known    *peer.PeerSet
	ev       EventHandler
	listener net.Listener
	inbox    chan Inbound
	peers    map[string]*Peer
	mu       sync.RWMutex
	quit     chan struct{}
	wg       sync.WaitGroup
}

// NewServer constructs a transport server ready to start.
func NewServer(cfg Config) *Server {
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	return &Server{
		host:  cfg.Host,
		known: cfg.KnownPeers,
		ev:    ev,
		inbox: make(chan Inbound, 256),
		peers: make(map[string]*Peer),
		quit:  make(chan struct{}),
	}
}

// Start begins listening for inbound connections and dials every known
// peer.
func (s *Server) Start() error {
	l, err := net.Listen("tcp", s.host)
	if err != nil {
		return fmt.Errorf("p2p listen on %s: %w", s.host, err)
	}
	s.listener = l

	s.ev("p2p: listening on %s", s.host)

	for _, pr := range s.known.Copy() {
		go s.Connect(pr.Host)
	}

	s.wg.Add(1)
	go s.acceptLoop()

	return nil
}

// Shutdown closes the listener and every peer connection.
func (s *Server) Shutdown() {
	close(s.quit)

	if s.listener != nil {
		s.listener.Close()
	}

	s.mu.Lock()
	for _, p := range s.peers {
		p.close()
	}
	s.mu.Unlock()

	s.wg.Wait()
}

// Inbox returns the shared queue of peer attributed payloads.
func (s *Server) Inbox() <-chan Inbound {
	return s.inbox
}

// Connect dials the specified host and registers the connection.
func (s *Server) Connect(host string) {
	conn, err := net.Dial("tcp", host)
	if err != nil {
		s.ev("p2p: connect to %s: %v", host, err)
		return
	}

	s.addPeer(conn, true)
}

// Broadcast sends one message to every connected peer. Fire and forget.
func (s *Server) Broadcast(msg Message) {
	s.mu.RLock()
	peers := make([]*Peer, 0, len(s.peers))
	for _, p := range s.peers {
		peers = append(peers, p)
	}
	s.mu.RUnlock()

	for _, p := range peers {
		if err := p.Write(msg); err != nil {
			s.ev("p2p: broadcast to %s: %v", p.Host(), err)
		}
	}
}

// =============================================================================

func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.quit:
				return
			default:
				s.ev("p2p: accept: %v", err)
				continue
			}
		}

		s.addPeer(conn, false)
	}
}

func (s *Server) addPeer(conn net.Conn, outbound bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	addr := conn.RemoteAddr().String()
	if _, exists := s.peers[addr]; exists {
		conn.Close()
		return
	}

	p := newPeer(conn, s, outbound)
	s.peers[addr] = p

	go p.readLoop()

	s.ev("p2p: peer connected: %s outbound[%v]", addr, outbound)
}

func (s *Server) removePeer(p *Peer) {
	p.close()

	s.mu.Lock()
	defer s.mu.Unlock()

	addr := p.conn.RemoteAddr().String()
	if existing, exists := s.peers[addr]; exists && existing == p {
		delete(s.peers, addr)
		s.ev("p2p: peer removed: %s", addr)
	}
}
