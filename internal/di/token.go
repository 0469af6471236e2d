package di

import "fmt"

// Token is a typed handle for a service registered in the container.
// It pairs a unique name with the compile-time type of the service.
type Token[T any] struct {
	name string
}

// NewToken creates a token with a unique name.
func NewToken[T any](name string) Token[T] {
	return Token[T]{name: name}
}

// Name returns the registry key of the token.
func (t Token[T]) Name() string { return t.name }

// RegisterToken registers a lazy factory for the token's service.
func RegisterToken[T any](c Container, tok Token[T], factory func(ServiceRegistry) T) {
	c.RegisterFactory(tok.name, func(sr ServiceRegistry) any {
		return factory(sr)
	})
}

// GetToken resolves the token's service with its static type restored.
func GetToken[T any](sr ServiceRegistry, tok Token[T]) T {
	svc, ok := sr.Get(tok.name).(T)
	if !ok {
		panic(fmt.Sprintf("di: service %q has unexpected type %T", tok.name, sr.Get(tok.name)))
	}
	return svc
}
