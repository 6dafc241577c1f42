package service

// ScrapeCacheKey exposes the cache key derivation to tests.
var ScrapeCacheKey = scrapeCacheKey
