// Package artwork resolves catalog artwork refs into size-parameterized
// locators for the UI and the media-control surface.
package artwork

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// MediaSurfaceSizes are the pixel sizes mirrored into the OS now-playing
// surface, smallest to largest.
var MediaSurfaceSizes = []int{96, 128, 192, 256, 384, 512, 2048}

// URLResolver is the slice of the catalog client the resolver needs.
type URLResolver interface {
	ArtworkURL(ref string, sizePx int) string
}

// Image is one resolved artwork variant.
type Image struct {
	URL    string
	SizePx int
}

// Resolver caches resolved artwork locators. Resolution itself is cheap
// string work, but the cache keeps the locator set stable per (ref,size)
// so downstream consumers can compare by value.
type Resolver struct {
	client URLResolver
	cache  *lru.Cache[string, string]
}

func NewResolver(client URLResolver, cacheSize int) (*Resolver, error) {
	if cacheSize <= 0 {
		cacheSize = 256
	}
	cache, err := lru.New[string, string](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("artwork cache: %w", err)
	}
	return &Resolver{client: client, cache: cache}, nil
}

// URL resolves one ref at one size.
func (r *Resolver) URL(ref string, sizePx int) string {
	if ref == "" {
		return ""
	}
	key := fmt.Sprintf("%s:%d", ref, sizePx)
	if url, ok := r.cache.Get(key); ok {
		return url
	}
	url := r.client.ArtworkURL(ref, sizePx)
	r.cache.Add(key, url)
	return url
}

// SurfaceSet resolves the full ladder of sizes for the media surface.
// A track without artwork yields an empty set.
func (r *Resolver) SurfaceSet(ref string) []Image {
	if ref == "" {
		return nil
	}
	out := make([]Image, 0, len(MediaSurfaceSizes))
	for _, size := range MediaSurfaceSizes {
		out = append(out, Image{URL: r.URL(ref, size), SizePx: size})
	}
	return out
}
