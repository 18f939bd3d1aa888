package cache

// Disabled is a Cache that stores nothing. It lets callers switch caching off
// without branching: compute operations call their function every time and
// lookups always miss. The zero value is ready to use and has no state, so
// it is never shut down.
type Disabled[K comparable, V any] struct{}

var _ Cache[string, any] = Disabled[string, any]{}

// NewDisabled returns a Cache that stores nothing.
func NewDisabled[K comparable, V any]() Disabled[K, V] {
	return Disabled[K, V]{}
}

func (Disabled[K, V]) Put(_ K, val V) (V, error) {
	return val, nil
}

func (Disabled[K, V]) PutIfPresent(K, V) (bool, V, error) {
	var zero V
	return false, zero, nil
}

func (Disabled[K, V]) PutIfAbsent(K, V) (bool, V, error) {
	var zero V
	return false, zero, nil
}

func (Disabled[K, V]) ComputeIfAbsent(key K, fn MappingFunc[K, V]) (V, error) {
	return fn(key)
}

func (Disabled[K, V]) ComputeIfPresent(K, RemappingFunc[K, V]) (bool, V, error) {
	var zero V
	return false, zero, nil
}

func (Disabled[K, V]) Compute(key K, fn RemappingFunc[K, V]) (V, error) {
	var zero V
	return fn(key, zero, false)
}

func (Disabled[K, V]) Remove(K) (bool, V, error) {
	var zero V
	return false, zero, nil
}

func (Disabled[K, V]) Get(K) (bool, V, error) {
	var zero V
	return false, zero, nil
}

func (Disabled[K, V]) ContainsKey(K) (bool, error) {
	return false, nil
}

func (Disabled[K, V]) Size() (int, error) {
	return 0, nil
}

func (Disabled[K, V]) Clear() error {
	return nil
}

func (Disabled[K, V]) Alive() bool {
	return true
}

func (Disabled[K, V]) Shutdown() {}

func (Disabled[K, V]) Close() error {
	return nil
}
