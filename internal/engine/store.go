package engine

// cacheEntry is one per-identity cached value with its validity flag.
// Invalidation clears the flag and discards the value, so observers can
// never see a stale value once valid is false.
type cacheEntry struct {
	value any
	valid bool
}

// valueStore holds the per-identity cache and the independent override
// slots, keyed by identity key. Overrides take precedence when present;
// their lifecycle never touches the cache entry itself.
type valueStore struct {
	cache     map[string]*cacheEntry
	overrides map[string]any
}

func newValueStore() *valueStore {
	return &valueStore{
		cache:     make(map[string]*cacheEntry),
		overrides: make(map[string]any),
	}
}

// cached returns the stored value if the entry exists and is valid.
func (s *valueStore) cached(key string) (any, bool) {
	entry, ok := s.cache[key]
	if !ok || !entry.valid {
		return nil, false
	}
	return entry.value, true
}

// setCache stores a freshly computed value and marks it valid.
func (s *valueStore) setCache(key string, value any) {
	s.cache[key] = &cacheEntry{value: value, valid: true}
}

// invalidate marks an entry invalid and drops the value. Missing entries
// are a no-op: an identity that was never computed has nothing to mark.
func (s *valueStore) invalidate(key string) {
	if entry, ok := s.cache[key]; ok {
		entry.value = nil
		entry.valid = false
	}
}

// override returns the active override value for an identity, if any.
func (s *valueStore) override(key string) (any, bool) {
	v, ok := s.overrides[key]
	return v, ok
}

// setOverride activates an override for an identity.
func (s *valueStore) setOverride(key string, value any) {
	s.overrides[key] = value
}

// clearOverride deactivates an override, reporting whether one was active.
func (s *valueStore) clearOverride(key string) bool {
	if _, ok := s.overrides[key]; !ok {
		return false
	}
	delete(s.overrides, key)
	return true
}
