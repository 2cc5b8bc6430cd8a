package session

import "github.com/leapstack-labs/leapmapper/pkg/reflection"

// ProxyFactory creates the lazy-loading proxies of result objects.
type ProxyFactory interface {
	CreateProxy(target any) (any, error)
}

// DirectProxyFactory returns targets unchanged, so results are always
// loaded eagerly.
type DirectProxyFactory struct{}

func (DirectProxyFactory) CreateProxy(target any) (any, error) { return target, nil }

func init() {
	reflection.Register(
		reflection.InterfaceType[ProxyFactory](),
		reflection.NewType[DirectProxyFactory](reflection.WithAlias("DIRECT")),
	)
}
