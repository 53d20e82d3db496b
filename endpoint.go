package udtnet

import (
	"net"
	"strconv"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

type Endpoint struct {
	IP   net.IP
	Port int
}

func (e Endpoint) String() string {
	return net.JoinHostPort(e.IP.String(), strconv.Itoa(e.Port))
}

func (e Endpoint) toSockaddr() (*unix.SockaddrInet4, error) {
	ip4 := e.IP.To4()
	if ip4 == nil {
		return nil, errors.Errorf("not an IPv4 endpoint: %s", e.IP)
	}
	sa := &unix.SockaddrInet4{Port: e.Port}
	copy(sa.Addr[:], ip4)
	return sa, nil
}

func endpointFromSockaddr(sa unix.Sockaddr) (Endpoint, error) {
	inet4, ok := sa.(*unix.SockaddrInet4)
	if !ok {
		return Endpoint{}, errors.New("not an IPv4 socket address")
	}
	ip := make(net.IP, net.IPv4len)
	copy(ip, inet4.Addr[:])
	return Endpoint{IP: ip, Port: inet4.Port}, nil
}

type ResolverConfig struct {
	CacheEnabled    bool
	CacheMaxEntries int64
	CacheTTLSec     int
}

// EndpointResolver converts "host:port" strings into endpoints, caching
// lookups so hot connect paths do not repeat DNS queries.
type EndpointResolver struct {
	cache *ristretto.Cache
	ttl   time.Duration
}

func NewEndpointResolver(config ResolverConfig) (*EndpointResolver, error) {
	resolver := &EndpointResolver{
		ttl: time.Duration(config.CacheTTLSec) * time.Second,
	}
	if config.CacheEnabled {
		cache, err := ristretto.NewCache(&ristretto.Config{
			NumCounters: config.CacheMaxEntries * 10,
			MaxCost:     config.CacheMaxEntries,
			BufferItems: 64,
		})
		if err != nil {
			return nil, errors.Wrap(err, "can't init resolver cache")
		}
		resolver.cache = cache
	}
	return resolver, nil
}

func (r *EndpointResolver) Resolve(address string) (Endpoint, error) {
	if r.cache != nil {
		if cached, ok := r.cache.Get(address); ok {
			return cached.(Endpoint), nil
		}
	}
	udpAddr, err := net.ResolveUDPAddr("udp4", address)
	if err != nil {
		return Endpoint{}, errors.Wrapf(err, "can't resolve endpoint %s", address)
	}
	endpoint := Endpoint{IP: udpAddr.IP.To4(), Port: udpAddr.Port}
	if r.cache != nil {
		r.cache.SetWithTTL(address, endpoint, 1, r.ttl)
	}
	return endpoint, nil
}
