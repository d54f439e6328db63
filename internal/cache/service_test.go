package cache

import (
	"strings"
	"testing"
	"time"

	"modelctl/internal/core"
)

func TestCacheService_Catalog(t *testing.T) {
	service := NewCacheService(time.Hour)
	defer func() { _ = service.Close() }()

	key := GenerateCatalogCacheKey("http://localhost:11434")
	if _, found := service.GetCatalog(key); found {
		t.Fatal("empty service should miss")
	}

	models := []core.BackendModel{{Name: "llama2:latest"}}
	service.SetCatalog(key, models)
	models[0].Name = "mutated"

	got, found := service.GetCatalog(key)
	if !found || len(got) != 1 || got[0].Name != "llama2:latest" {
		t.Fatalf("GetCatalog = %v, %v", got, found)
	}

	got[0].Name = "mutated again"
	again, _ := service.GetCatalog(key)
	if again[0].Name != "llama2:latest" {
		t.Error("cached catalog should not be shared with callers")
	}

	service.InvalidateCatalog()
	if _, found := service.GetCatalog(key); found {
		t.Error("catalog should be invalidated")
	}
}

func TestCacheService_Expiration(t *testing.T) {
	service := NewCacheService(20 * time.Millisecond)
	defer func() { _ = service.Close() }()

	key := GenerateCatalogCacheKey("http://localhost:11434")
	service.SetCatalog(key, []core.BackendModel{{Name: "llama2:latest"}})
	if _, found := service.GetCatalog(key); !found {
		t.Fatal("fresh entry should hit")
	}

	time.Sleep(100 * time.Millisecond)
	if _, found := service.GetCatalog(key); found {
		t.Error("entry should expire after its ttl")
	}
}

func TestCacheService_Disabled(t *testing.T) {
	for _, ttl := range []time.Duration{0, -time.Second} {
		service := NewCacheService(ttl)
		if service.Enabled() {
			t.Errorf("ttl %v should disable the cache", ttl)
		}
		service.SetCatalog("k", []core.BackendModel{{Name: "llama2"}})
		if _, found := service.GetCatalog("k"); found {
			t.Errorf("ttl %v should never store", ttl)
		}
		_ = service.Close()
	}
}

func TestGenerateCatalogCacheKey(t *testing.T) {
	a := GenerateCatalogCacheKey("http://a:11434")
	if a == GenerateCatalogCacheKey("http://b:11434") {
		t.Error("different backends should get different keys")
	}
	if a != GenerateCatalogCacheKey("http://a:11434") {
		t.Error("keys should be stable")
	}
	if !strings.HasPrefix(a, core.CatalogCacheKey+":"+cacheKeyVersion+":") || len(a) != len("catalog:v1:")+40 {
		t.Errorf("unexpected key format %q", a)
	}
	if got := TruncateCacheKey(a, 10); got != a[:10] {
		t.Errorf("TruncateCacheKey = %q", got)
	}
	if got := TruncateCacheKey("short", 10); got != "short" {
		t.Errorf("short keys should be kept, got %q", got)
	}
}
