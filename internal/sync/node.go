package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	libp2p "github.com/libp2p/go-libp2p"
	"github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"
	ma "github.com/multiformats/go-multiaddr"

	"github.com/jsfuzz/jsfuzz/internal/config"
	"github.com/jsfuzz/jsfuzz/internal/corpus"
	"github.com/jsfuzz/jsfuzz/internal/errs"
	"github.com/jsfuzz/jsfuzz/internal/il"
	"github.com/jsfuzz/jsfuzz/internal/logging"
)

// ProtocolID is the libp2p stream protocol every sync connection
// negotiates, the generalization of a single fixed
// "/packet/1.0.0" handler to this package's own exchange.
const ProtocolID = "/jsfuzz/sync/1.0.0"

// origin records which side of a node a frame arrived from, so broadcast
// knows which directions still need it.
type origin int

const (
	originChild origin = iota
	originParent
)

// Config wires one Node to this process's already-constructed corpus,
// crash store, and role (spec.md §4.10: "A node runs in one of three
// roles: root, intermediate, leaf").
type Config struct {
	Role config.Role

	// StorageDir holds this node's libp2p identity, persisted the same
	// way PersistentIdentity/node_identity.json is.
	StorageDir string

	// ListenAddr is "host:port" to accept child connections on; empty for
	// a leaf, which has no children.
	ListenAddr string

	// ParentAddr is the parent's full libp2p multiaddr, including a
	// "/p2p/<peer id>" suffix; empty for the root, which has no parent.
	ParentAddr string

	Corpus  *corpus.Corpus
	Crashes *corpus.CrashStore
	Log     *logging.Logger
}

// Node is this process's participant in the synchronization tree: a
// libp2p host plus the set of currently connected children and, unless
// this node is root, one parent connection maintained with reconnect and
// backoff.
type Node struct {
	cfg  Config
	host host.Host
	log  *logging.Logger

	mu       sync.Mutex
	children map[peer.ID]*session
	parent   *session

	ctx    context.Context
	cancel context.CancelFunc
}

// NewNode stands up the libp2p host for cfg. The host listens on
// ListenAddr (if set) and accepts child streams as soon as NewNode
// returns; it does not dial the parent until Start is called.
func NewNode(ctx context.Context, cfg Config) (*Node, error) {
	if cfg.Log == nil {
		cfg.Log = logging.Default("sync")
	}

	priv, err := loadOrCreateIdentity(cfg.StorageDir)
	if err != nil {
		return nil, errs.Wrap(errs.CodeSyncDialFailed, "loading node identity", err)
	}

	opts := []libp2p.Option{libp2p.Identity(priv)}
	if cfg.ListenAddr != "" {
		maddr, err := listenMultiaddr(cfg.ListenAddr)
		if err != nil {
			return nil, err
		}
		opts = append(opts, libp2p.ListenAddrStrings(maddr))
	}

	h, err := libp2p.New(opts...)
	if err != nil {
		return nil, errs.Wrap(errs.CodeSyncDialFailed, "starting libp2p host", err)
	}

	nctx, cancel := context.WithCancel(ctx)
	n := &Node{
		cfg:      cfg,
		host:     h,
		log:      cfg.Log,
		children: make(map[peer.ID]*session),
		ctx:      nctx,
		cancel:   cancel,
	}
	h.SetStreamHandler(ProtocolID, n.acceptChild)
	return n, nil
}

// Start begins dialing the parent (if ParentAddr is set); child
// connections are already accepted from NewNode on. It returns
// immediately; connection handling runs on background goroutines until
// Stop.
func (n *Node) Start() {
	if n.cfg.ParentAddr != "" {
		go n.maintainParentConnection()
	}
}

// Stop tears down every connection and the underlying libp2p host.
func (n *Node) Stop() error {
	n.cancel()
	return n.host.Close()
}

// PeerID is this node's libp2p peer identity, stable across restarts via
// the persisted identity file.
func (n *Node) PeerID() string { return n.host.ID().String() }

// ListenAddrs returns this node's dialable multiaddrs (including peer
// ID), for handing to a child's ParentAddr out of band.
func (n *Node) ListenAddrs() []string {
	addrs := n.host.Addrs()
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, fmt.Sprintf("%s/p2p/%s", a.String(), n.host.ID().String()))
	}
	return out
}

func (n *Node) acceptChild(s network.Stream) {
	pid := s.Conn().RemotePeer()
	sess := newSession(s, n.log.Named("child:"+pid.String()))

	n.mu.Lock()
	n.children[pid] = sess
	n.mu.Unlock()
	n.log.Info("child connected", logging.String("peer", pid.String()))

	sess.serve(n.ctx, func(f Frame) { n.handleFrame(sess, originChild, f) })

	n.mu.Lock()
	delete(n.children, pid)
	n.mu.Unlock()
	n.log.Info("child disconnected", logging.String("peer", pid.String()))
}

// maintainParentConnection dials the parent, replays this node's corpus
// to it (spec.md §4.10 "on reconnect, a child resynchronizes by replaying
// its corpus to its parent"), then serves the connection until it drops,
// reconnecting with exponential backoff (spec.md §5 "Cancellation &
// timeouts").
func (n *Node) maintainParentConnection() {
	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		select {
		case <-n.ctx.Done():
			return
		default:
		}

		sess, err := n.dialParent()
		if err != nil {
			n.log.Warn("sync dial to parent failed, retrying",
				logging.Err(err), logging.Duration("backoff", backoff))
			select {
			case <-time.After(backoff):
			case <-n.ctx.Done():
				return
			}
			if backoff *= 2; backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}
		backoff = time.Second

		n.mu.Lock()
		n.parent = sess
		n.mu.Unlock()
		n.log.Info("connected to parent", logging.String("addr", n.cfg.ParentAddr))

		n.replayCorpusTo(sess)
		go n.keepAliveLoop(sess)

		sess.serve(n.ctx, func(f Frame) { n.handleFrame(sess, originParent, f) })

		n.mu.Lock()
		n.parent = nil
		n.mu.Unlock()
	}
}

func (n *Node) keepAliveLoop(sess *session) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			sess.send(Frame{Tag: TagKeepAlive})
		case <-sess.done:
			return
		case <-n.ctx.Done():
			return
		}
	}
}

func (n *Node) dialParent() (*session, error) {
	addr := n.cfg.ParentAddr
	maddr, err := ma.NewMultiaddr(addr)
	if err != nil {
		return nil, errs.SyncDialFailed(addr, err)
	}
	info, err := peer.AddrInfoFromP2pAddr(maddr)
	if err != nil {
		return nil, errs.SyncDialFailed(addr, err)
	}
	if err := n.host.Connect(n.ctx, *info); err != nil {
		return nil, errs.SyncDialFailed(addr, err)
	}
	stream, err := n.host.NewStream(n.ctx, info.ID, ProtocolID)
	if err != nil {
		return nil, errs.SyncDialFailed(addr, err)
	}
	return newSession(stream, n.log.Named("parent")), nil
}

func (n *Node) replayCorpusTo(sess *session) {
	for _, p := range n.cfg.Corpus.All() {
		blob, err := p.Encode()
		if err != nil {
			n.log.Warn("failed to encode program for replay", logging.Err(err))
			continue
		}
		sess.send(Frame{Tag: TagCorpusSample, Payload: blob})
	}
}

func (n *Node) handleFrame(from *session, o origin, f Frame) {
	switch f.Tag {
	case TagCorpusSample:
		n.onCorpusSample(from, o, f.Payload)
	case TagCrash:
		n.onCrash(f.Payload)
	case TagStatistics:
		n.log.Debug("received statistics frame", logging.Int("bytes", len(f.Payload)))
	case TagKeepAlive:
	default:
		n.log.Warn("unknown sync frame tag", logging.Int("tag", int(f.Tag)))
	}
}

func (n *Node) onCorpusSample(from *session, o origin, payload []byte) {
	prog, err := il.DecodeProgram(payload)
	if err != nil {
		n.log.Warn("dropping malformed corpus sample", logging.Err(err))
		return
	}
	if err := n.cfg.Corpus.Insert(prog); err != nil && !corpus.IsDuplicate(err) {
		n.log.Warn("failed to insert synced program", logging.Err(err))
		return
	}
	n.broadcast(Frame{Tag: TagCorpusSample, Payload: payload}, from, o)
}

// broadcast propagates a sample on: down to every other connected child
// (parent→child distribution, or a sibling fan-out when it arrived from a
// child), and up to our own parent when it didn't come from the parent in
// the first place (child→parent discovery), per spec.md §4.10 "Samples
// propagate both down ... and up ... so that every node's corpus
// converges".
func (n *Node) broadcast(f Frame, from *session, o origin) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for _, child := range n.children {
		if child == from {
			continue
		}
		child.send(f)
	}
	if o == originChild && n.parent != nil && n.parent != from {
		n.parent.send(f)
	}
}

// onCrash implements "Crash(...) — leaf→root (forwarded by parents
// without retention)": only a root persists it; every other role just
// relays to its own parent.
func (n *Node) onCrash(payload []byte) {
	if n.cfg.Role == config.RoleRoot {
		programBlob, stderr, signal, err := decodeCrashPayload(payload)
		if err != nil {
			n.log.Warn("dropping malformed crash frame", logging.Err(err))
			return
		}
		prog, err := il.DecodeProgram(programBlob)
		if err != nil {
			n.log.Warn("dropping crash with malformed program", logging.Err(err))
			return
		}
		if _, err := n.cfg.Crashes.Record(&corpus.Crash{Program: prog, Stderr: string(stderr), Signal: signal}); err != nil {
			n.log.Warn("failed to record synced crash", logging.Err(err))
		}
		return
	}

	n.mu.Lock()
	parent := n.parent
	n.mu.Unlock()
	if parent != nil {
		parent.send(Frame{Tag: TagCrash, Payload: payload})
	}
}

// NotifyLocal tells the tree about a program this node itself just found
// interesting and inserted into its own corpus (spec.md §4.10 "up on
// discovery"). internal/fuzzer calls this right after a successful local
// corpus.Insert.
func (n *Node) NotifyLocal(p *il.Program) {
	blob, err := p.Encode()
	if err != nil {
		n.log.Warn("failed to encode program for sync", logging.Err(err))
		return
	}
	f := Frame{Tag: TagCorpusSample, Payload: blob}

	n.mu.Lock()
	defer n.mu.Unlock()
	for _, child := range n.children {
		child.send(f)
	}
	if n.parent != nil {
		n.parent.send(f)
	}
}

// NotifyCrash relays a crash this node's own executor just recorded
// locally up toward the root, which is the only node that retains it
// (spec.md §4.10). A root calling this is a no-op: it already persisted
// the crash itself.
func (n *Node) NotifyCrash(c *corpus.Crash) {
	if n.cfg.Role == config.RoleRoot {
		return
	}
	blob, err := c.Program.Encode()
	if err != nil {
		n.log.Warn("failed to encode crashing program for sync", logging.Err(err))
		return
	}

	n.mu.Lock()
	parent := n.parent
	n.mu.Unlock()
	if parent != nil {
		parent.send(Frame{Tag: TagCrash, Payload: encodeCrashPayload(blob, []byte(c.Stderr), c.Signal)})
	}
}

// SendStatistics forwards a periodic statistics snapshot toward the root
// (spec.md §4.10 "Statistics(payload) — periodic").
func (n *Node) SendStatistics(payload []byte) {
	n.mu.Lock()
	parent := n.parent
	n.mu.Unlock()
	if parent != nil {
		parent.send(Frame{Tag: TagStatistics, Payload: payload})
	}
}

func listenMultiaddr(hostport string) (string, error) {
	host, port, err := net.SplitHostPort(hostport)
	if err != nil {
		return "", errs.New(errs.CodeConfigInvalid, fmt.Sprintf("invalid listenAddr %q: %v", hostport, err))
	}
	if host == "" {
		host = "0.0.0.0"
	}
	return fmt.Sprintf("/ip4/%s/tcp/%s", host, port), nil
}

const identityFileName = "node_identity.json"

// persistedIdentity mirrors PersistentIdentity, namespaced
// to this package since internal/sync owns its own libp2p host rather
// than sharing that package directly.
type persistedIdentity struct {
	PrivKey []byte `json:"priv_key"`
	PeerID  string `json:"peer_id"`
}

func loadOrCreateIdentity(storageDir string) (crypto.PrivKey, error) {
	path := filepath.Join(storageDir, identityFileName)
	if data, err := os.ReadFile(path); err == nil {
		var id persistedIdentity
		if err := json.Unmarshal(data, &id); err != nil {
			return nil, err
		}
		return crypto.UnmarshalPrivateKey(id.PrivKey)
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	priv, _, err := crypto.GenerateEd25519Key(nil)
	if err != nil {
		return nil, err
	}
	pid, err := peer.IDFromPrivateKey(priv)
	if err != nil {
		return nil, err
	}
	raw, err := crypto.MarshalPrivateKey(priv)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(persistedIdentity{PrivKey: raw, PeerID: pid.String()})
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(storageDir, 0o755); err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return nil, err
	}
	return priv, nil
}
