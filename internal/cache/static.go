package cache

// Static asset hashes, keyed by URL path. Populated once at startup
// and read by the ETag middleware.
var staticCache = NewCache[string, string]()

func GetStaticHash(path string) (string, bool) {
	return staticCache.Get(path)
}

func SetStaticHash(path, hash string) {
	staticCache.Set(path, hash)
}
