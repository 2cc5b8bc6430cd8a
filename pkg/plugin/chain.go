package plugin

import (
	"fmt"
	"reflect"
)

// InterceptorChain is the ordered list of configured interceptors.
// It is filled while a configuration is assembled and only read afterwards.
type InterceptorChain struct {
	interceptors []Interceptor
}

// AddInterceptor appends ic.
func (c *InterceptorChain) AddInterceptor(ic Interceptor) {
	c.interceptors = append(c.interceptors, ic)
}

// Interceptors returns a copy of the list in registration order.
func (c *InterceptorChain) Interceptors() []Interceptor {
	return append([]Interceptor(nil), c.interceptors...)
}

// Len returns the number of interceptors.
func (c *InterceptorChain) Len() int { return len(c.interceptors) }

// PluginAll wraps target with every interceptor, the first registered
// innermost.
func (c *InterceptorChain) PluginAll(target any) any {
	for _, ic := range c.interceptors {
		if p, ok := ic.(Plugger); ok {
			target = p.Plugin(target)
			continue
		}
		target = Wrap(target, ic)
	}
	return target
}

// Apply runs PluginAll and checks the result still implements T.
func Apply[T any](c *InterceptorChain, target T) (T, error) {
	v := c.PluginAll(target)
	t, ok := v.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("plugin replaced %T with %T, which does not implement %s", target, v, reflect.TypeFor[T]())
	}
	return t, nil
}
