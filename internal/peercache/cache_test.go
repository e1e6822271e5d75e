package peercache

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rainlink/swarmcore/internal/peer"
)

func TestCacheRegisterInterns(t *testing.T) {
	r := require.New(t)
	c := New()
	addr := &net.TCPAddr{IP: net.ParseIP("1.2.3.4"), Port: 6881}

	p1 := c.Register(peer.New(addr, nil, nil))
	p2 := c.Register(peer.New(addr, nil, nil))

	r.Same(p1, p2)
	r.Equal(1, c.Len())
}

func TestCacheLookupCreatesOnMiss(t *testing.T) {
	r := require.New(t)
	c := New()
	addr := &net.TCPAddr{IP: net.ParseIP("1.2.3.4"), Port: 6881}

	looked := c.Lookup(addr)
	r.NotNil(looked)
	r.Equal(1, c.Len())

	registered := c.Register(peer.New(addr, nil, nil))
	r.Same(looked, registered)
}

func TestCacheRegisterReplacesOptions(t *testing.T) {
	r := require.New(t)
	c := New()
	addr := &net.TCPAddr{IP: net.ParseIP("1.2.3.4"), Port: 6881}

	c.Register(peer.New(addr, nil, nil))
	updated := c.Register(peer.New(addr, nil, &peer.Options{FastExtension: true}))

	r.True(updated.Options().FastExtension)
	r.Equal(1, c.Len())
}
