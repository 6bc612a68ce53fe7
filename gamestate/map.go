package gamestate

// MapStorage is the in-memory key/value storage the engine keeps its bookkeeping in.
type MapStorage[K comparable, V any] struct {
	internalMap map[K]V
}

func NewMapStorage[K comparable, V any]() *MapStorage[K, V] {
	return &MapStorage[K, V]{
		internalMap: make(map[K]V),
	}
}

func (m *MapStorage[K, V]) Keys() []K {
	acc := make([]K, 0, len(m.internalMap))
	for k := range m.internalMap {
		acc = append(acc, k)
	}
	return acc
}

func (m *MapStorage[K, V]) Delete(key K) {
	delete(m.internalMap, key)
}

func (m *MapStorage[K, V]) Get(key K) (V, bool) {
	v, ok := m.internalMap[key]
	return v, ok
}

func (m *MapStorage[K, V]) Set(key K, value V) {
	m.internalMap[key] = value
}

func (m *MapStorage[K, V]) Len() int {
	return len(m.internalMap)
}
