// Package cache provides a generic, thread-safe LRU cache with optional
// per-entry expiry.
//
//	keys := cache.New[string, KeyMap](16, cache.WithTTL[string, KeyMap](24*time.Hour))
//	keys.Put(url, parsed)
//	if km, ok := keys.Get(url); ok {
//	    ...
//	}
//
// Get, Put and Remove are O(1). Expired entries are removed the next time
// they are looked up or pushed out by capacity pressure.
package cache
