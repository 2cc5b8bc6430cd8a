package plugin

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"sync"
)

// ErrUnknownSignature is returned for a signature naming a method no
// extension point has.
var ErrUnknownSignature = errors.New("unknown signature")

// ExtensionPoint describes an interface whose implementations may be
// intercepted.
type ExtensionPoint struct {
	Name string
	// Type is the interface type, e.g. reflect.TypeFor[executor.Executor]().
	Type reflect.Type
	// Methods are the interceptable methods of Type.
	Methods []Method
	// Wrap returns a value implementing Type that forwards every method to
	// target through h.
	Wrap func(target any, h Handler) any
}

func (ep ExtensionPoint) implementedBy(target any) bool {
	return reflect.TypeOf(target).Implements(ep.Type)
}

var (
	extensionMu sync.RWMutex
	extensions  []ExtensionPoint
)

// RegisterExtensionPoint makes ep available to Wrap.
// Called by extension point owners in their init() functions.
func RegisterExtensionPoint(ep ExtensionPoint) {
	if ep.Type == nil || ep.Type.Kind() != reflect.Interface {
		panic(fmt.Sprintf("plugin: extension point %q must be an interface type", ep.Name))
	}
	extensionMu.Lock()
	defer extensionMu.Unlock()
	for i, existing := range extensions {
		if existing.Type == ep.Type {
			extensions[i] = ep
			return
		}
	}
	extensions = append(extensions, ep)
}

func extensionPoints() []ExtensionPoint {
	extensionMu.RLock()
	defer extensionMu.RUnlock()
	return append([]ExtensionPoint(nil), extensions...)
}

// ExtensionPoints returns the registered extension point names in
// registration order.
func ExtensionPoints() []string {
	eps := extensionPoints()
	names := make([]string, len(eps))
	for i, ep := range eps {
		names[i] = ep.Name
	}
	return names
}

// CheckSignatures fails when ic declares a signature on a type that is not a
// registered extension point, or on a method the extension point does not
// have with exactly those argument types.
func CheckSignatures(ic Interceptor) error {
	eps := extensionPoints()
	var errs []error
	for _, sig := range ic.Signatures() {
		i := slices.IndexFunc(eps, func(ep ExtensionPoint) bool { return ep.Type == sig.Type })
		if i < 0 {
			errs = append(errs, fmt.Errorf("%w: %T declares %s, which is not an extension point", ErrUnknownSignature, ic, sig))
			continue
		}
		if !slices.ContainsFunc(eps[i].Methods, sig.method().Equal) {
			errs = append(errs, fmt.Errorf("%w: %T declares %s, which %s does not have", ErrUnknownSignature, ic, sig, eps[i].Name))
		}
	}
	return errors.Join(errs...)
}
