package connio

import (
	"encoding/binary"
	"errors"
	"io"
	"net"
	"sync"

	"github.com/rainlink/swarmcore/internal/logger"
	"github.com/rainlink/swarmcore/internal/peer"
	"github.com/rainlink/swarmcore/internal/wire"
)

// ErrSendFailed is returned by PostMessage once the connection has failed.
var ErrSendFailed = errors.New("connio: post message on failed connection")

const inboundQueueSize = 64

// message IDs, as defined by BEP 3.
const (
	idChoke         = 0
	idUnchoke       = 1
	idInterested    = 2
	idNotInterested = 3
	idHave          = 4
	idBitfield      = 5
	idRequest       = 6
	idPiece         = 7
	idCancel        = 8
	idPort          = 9
)

// TCPConn is a minimal net.Conn-backed Connection, adapted from the
// reference client's btconn read/write wrapper and its peerconn.Peer
// reader/writer goroutine split. It is deliberately small: message framing
// is a collaborator concern the core treats as external, so this exists
// only to let the registry and connection worker be driven against a real
// socket in tests and the bootstrap command rather than only against fakes.
type TCPConn struct {
	conn   net.Conn
	remote *peer.Peer
	log    logger.Logger

	inboundC  chan wire.Message
	outboundC chan wire.Message

	closeOnce sync.Once
	closeC    chan struct{}

	mu     sync.Mutex
	closed bool
}

// NewTCPConn wraps conn, spawning reader and writer goroutines, mirroring
// the reference client's peerconn.Peer.Run split into a reader and a writer
// pump joined on whichever finishes (or is asked to close) first.
func NewTCPConn(conn net.Conn, remote *peer.Peer, log logger.Logger) *TCPConn {
	c := &TCPConn{
		conn:      conn,
		remote:    remote,
		log:       log,
		inboundC:  make(chan wire.Message, inboundQueueSize),
		outboundC: make(chan wire.Message, inboundQueueSize),
		closeC:    make(chan struct{}),
	}
	go c.readLoop()
	go c.writeLoop()
	return c
}

func (c *TCPConn) readLoop() {
	defer close(c.inboundC)
	for {
		msg, err := readMessage(c.conn)
		if err != nil {
			c.fail()
			return
		}
		select {
		case c.inboundC <- msg:
		case <-c.closeC:
			return
		}
	}
}

func (c *TCPConn) writeLoop() {
	for {
		select {
		case msg, ok := <-c.outboundC:
			if !ok {
				return
			}
			if err := writeMessage(c.conn, msg); err != nil {
				c.fail()
				return
			}
		case <-c.closeC:
			return
		}
	}
}

func (c *TCPConn) fail() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.closeOnce.Do(func() { close(c.closeC) })
}

// ReadMessageNow implements Connection.
func (c *TCPConn) ReadMessageNow() (wire.Message, bool) {
	select {
	case msg, ok := <-c.inboundC:
		if !ok {
			return nil, false
		}
		return msg, true
	default:
		return nil, false
	}
}

// PostMessage implements Connection.
func (c *TCPConn) PostMessage(msg wire.Message) error {
	if c.IsClosed() {
		return ErrSendFailed
	}
	select {
	case c.outboundC <- msg:
		return nil
	case <-c.closeC:
		return ErrSendFailed
	}
}

// IsClosed implements Connection.
func (c *TCPConn) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// RemotePeer implements Connection.
func (c *TCPConn) RemotePeer() *peer.Peer {
	return c.remote
}

// Close implements Connection.
func (c *TCPConn) Close() error {
	c.fail()
	return c.conn.Close()
}

func readMessage(r io.Reader) (wire.Message, error) {
	var length uint32
	if err := binary.Read(r, binary.BigEndian, &length); err != nil {
		return nil, err
	}
	if length == 0 {
		return wire.KeepAlive{}, nil
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return decode(buf[0], buf[1:])
}

func decode(id byte, payload []byte) (wire.Message, error) {
	switch id {
	case idChoke:
		return wire.Choke{}, nil
	case idUnchoke:
		return wire.Unchoke{}, nil
	case idInterested:
		return wire.Interested{}, nil
	case idNotInterested:
		return wire.NotInterested{}, nil
	case idHave:
		if len(payload) != 4 {
			return nil, errors.New("connio: malformed have message")
		}
		return wire.Have{Index: binary.BigEndian.Uint32(payload)}, nil
	case idBitfield:
		data := make([]byte, len(payload))
		copy(data, payload)
		return wire.Bitfield{Data: data}, nil
	case idRequest:
		if len(payload) != 12 {
			return nil, errors.New("connio: malformed request message")
		}
		return wire.Request{
			Index:  binary.BigEndian.Uint32(payload[0:4]),
			Begin:  binary.BigEndian.Uint32(payload[4:8]),
			Length: binary.BigEndian.Uint32(payload[8:12]),
		}, nil
	case idPiece:
		if len(payload) < 8 {
			return nil, errors.New("connio: malformed piece message")
		}
		block := make([]byte, len(payload)-8)
		copy(block, payload[8:])
		return wire.Piece{
			Index: binary.BigEndian.Uint32(payload[0:4]),
			Begin: binary.BigEndian.Uint32(payload[4:8]),
			Block: block,
		}, nil
	case idCancel:
		if len(payload) != 12 {
			return nil, errors.New("connio: malformed cancel message")
		}
		return wire.Cancel{
			Index:  binary.BigEndian.Uint32(payload[0:4]),
			Begin:  binary.BigEndian.Uint32(payload[4:8]),
			Length: binary.BigEndian.Uint32(payload[8:12]),
		}, nil
	case idPort:
		if len(payload) != 2 {
			return nil, errors.New("connio: malformed port message")
		}
		return wire.Port{Port: binary.BigEndian.Uint16(payload)}, nil
	default:
		return nil, errors.New("connio: unknown message id")
	}
}

func writeMessage(w io.Writer, msg wire.Message) error {
	body, err := encode(msg)
	if err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, uint32(len(body))); err != nil {
		return err
	}
	if len(body) == 0 {
		return nil
	}
	_, err = w.Write(body)
	return err
}

func encode(msg wire.Message) ([]byte, error) {
	switch m := msg.(type) {
	case wire.KeepAlive:
		return nil, nil
	case wire.Choke:
		return []byte{idChoke}, nil
	case wire.Unchoke:
		return []byte{idUnchoke}, nil
	case wire.Interested:
		return []byte{idInterested}, nil
	case wire.NotInterested:
		return []byte{idNotInterested}, nil
	case wire.Have:
		buf := make([]byte, 5)
		buf[0] = idHave
		binary.BigEndian.PutUint32(buf[1:], m.Index)
		return buf, nil
	case wire.Bitfield:
		buf := make([]byte, 1+len(m.Data))
		buf[0] = idBitfield
		copy(buf[1:], m.Data)
		return buf, nil
	case wire.Request:
		buf := make([]byte, 13)
		buf[0] = idRequest
		binary.BigEndian.PutUint32(buf[1:5], m.Index)
		binary.BigEndian.PutUint32(buf[5:9], m.Begin)
		binary.BigEndian.PutUint32(buf[9:13], m.Length)
		return buf, nil
	case wire.Piece:
		buf := make([]byte, 9+len(m.Block))
		buf[0] = idPiece
		binary.BigEndian.PutUint32(buf[1:5], m.Index)
		binary.BigEndian.PutUint32(buf[5:9], m.Begin)
		copy(buf[9:], m.Block)
		return buf, nil
	case wire.Cancel:
		buf := make([]byte, 13)
		buf[0] = idCancel
		binary.BigEndian.PutUint32(buf[1:5], m.Index)
		binary.BigEndian.PutUint32(buf[5:9], m.Begin)
		binary.BigEndian.PutUint32(buf[9:13], m.Length)
		return buf, nil
	case wire.Port:
		buf := make([]byte, 3)
		buf[0] = idPort
		binary.BigEndian.PutUint16(buf[1:], m.Port)
		return buf, nil
	default:
		return nil, errors.New("connio: unknown message type")
	}
}
