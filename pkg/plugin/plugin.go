// Package plugin implements interception of calls made on extension points.
//
// An extension point is an interface whose owner registers a wrapper type
// for it with RegisterExtensionPoint. Interceptors declare the
// (extension point, method, argument types) signatures they want to see.
// Wrap puts an interceptor around a target; InterceptorChain.PluginAll
// applies every configured interceptor, so the one registered last is the
// first to see a call.
package plugin

import (
	"context"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/leapstack-labs/leapmapper/pkg/core"
)

// Method identifies a method of an extension point by name and argument
// type names (context excluded).
type Method struct {
	Name string
	Args []string
}

func (m Method) String() string {
	return m.Name + "(" + strings.Join(m.Args, ", ") + ")"
}

// Equal reports whether m and o have the same name and argument types.
func (m Method) Equal(o Method) bool {
	return m.Name == o.Name && slices.Equal(m.Args, o.Args)
}

// Signature is a method of an extension point an interceptor wants to see.
type Signature struct {
	Type   reflect.Type
	Method string
	Args   []string
}

// On builds the Signature of m on the extension point interface T.
func On[T any](m Method) Signature {
	return Signature{Type: reflect.TypeFor[T](), Method: m.Name, Args: m.Args}
}

func (s Signature) String() string {
	name := "<nil>"
	if s.Type != nil {
		name = s.Type.String()
	}
	return name + "." + Method{Name: s.Method, Args: s.Args}.String()
}

func (s Signature) method() Method { return Method{Name: s.Method, Args: s.Args} }

// Interceptor sees the calls matching its signatures.
type Interceptor interface {
	// Intercept handles one call. Call inv.Proceed to reach the next layer.
	Intercept(inv *Invocation) (any, error)
	// Signatures lists the calls to intercept.
	Signatures() []Signature
}

// Configurable interceptors receive the properties declared with them.
type Configurable interface {
	SetProperties(props core.Properties) error
}

// Plugger interceptors decide themselves what to put in place of a target.
// The result may be any value implementing the target's extension point.
type Plugger interface {
	Plugin(target any) any
}

// Invocation is one intercepted call.
type Invocation struct {
	Target any
	Method Method
	// Args may be replaced before calling Proceed.
	Args []any

	ctx     context.Context
	proceed func(args []any) (any, error)
}

// Context returns the context of the call.
func (i *Invocation) Context() context.Context {
	if i.ctx == nil {
		return context.Background()
	}
	return i.ctx
}

// Proceed calls the next layer with the current Args.
func (i *Invocation) Proceed() (any, error) {
	return i.proceed(i.Args)
}

// Handler is what an extension point wrapper routes its calls through.
type Handler interface {
	Invoke(ctx context.Context, m Method, args []any, call func(args []any) (any, error)) (any, error)
}

type interceptHandler struct {
	target      any
	interceptor Interceptor
	methods     []Method
}

func (h *interceptHandler) Invoke(ctx context.Context, m Method, args []any, call func([]any) (any, error)) (any, error) {
	if !slices.ContainsFunc(h.methods, m.Equal) {
		return call(args)
	}
	return h.interceptor.Intercept(&Invocation{
		Target:  h.target,
		Method:  m,
		Args:    args,
		ctx:     ctx,
		proceed: call,
	})
}

// Call routes a typed call through h. The interceptor's result must be an R
// (or nil); its error is returned unchanged.
func Call[R any](ctx context.Context, h Handler, m Method, args []any, call func(args []any) (R, error)) (R, error) {
	var zero R
	v, err := h.Invoke(ctx, m, args, func(a []any) (any, error) {
		r, err := call(a)
		return r, err
	})
	if err != nil {
		return zero, err
	}
	if v == nil {
		return zero, nil
	}
	r, ok := v.(R)
	if !ok {
		return zero, fmt.Errorf("interceptor returned %T from %s, want %s", v, m, reflect.TypeFor[R]())
	}
	return r, nil
}

// CallErr routes a call that only returns an error through h.
func CallErr(ctx context.Context, h Handler, m Method, args []any, call func(args []any) error) error {
	_, err := h.Invoke(ctx, m, args, func(a []any) (any, error) {
		return nil, call(a)
	})
	return err
}

// Wrap returns target wrapped so that calls matching ic's signatures go
// through ic. Targets implementing none of the declared extension points are
// returned unchanged. A target implementing several extension points is
// wrapped for the first one, in registration order, that ic declares.
func Wrap(target any, ic Interceptor) any {
	if target == nil {
		return nil
	}
	sigs := ic.Signatures()
	for _, ep := range extensionPoints() {
		if !ep.implementedBy(target) {
			continue
		}
		var methods []Method
		for _, s := range sigs {
			if s.Type == ep.Type {
				methods = append(methods, s.method())
			}
		}
		if len(methods) == 0 {
			continue
		}
		return ep.Wrap(target, &interceptHandler{target: target, interceptor: ic, methods: methods})
	}
	return target
}
