package cache_test

import (
	"testing"
	"time"

	"github.com/boddenberg/sms-onboarding-bfa/internal/domain"
	"github.com/boddenberg/sms-onboarding-bfa/internal/infra/cache"
)

func TestCache_SetAndGet(t *testing.T) {
	c := cache.New[*domain.OnboardingStatus](5 * time.Minute)
	defer c.Close()

	c.Set("status:u1", &domain.OnboardingStatus{State: "campaign"})
	val, ok := c.Get("status:u1")
	if !ok {
		t.Fatal("expected key to exist")
	}
	if val.State != "campaign" {
		t.Errorf("expected 'campaign', got '%s'", val.State)
	}
}

func TestCache_GetMiss(t *testing.T) {
	c := cache.New[string](5 * time.Minute)
	defer c.Close()

	if _, ok := c.Get("nonexistent"); ok {
		t.Fatal("expected cache miss for nonexistent key")
	}
}

func TestCache_Expiration(t *testing.T) {
	c := cache.New[string](50 * time.Millisecond)
	defer c.Close()

	c.Set("key1", "value1")
	time.Sleep(100 * time.Millisecond)

	if _, ok := c.Get("key1"); ok {
		t.Fatal("expected cache entry to be expired")
	}
}

func TestCache_Delete(t *testing.T) {
	c := cache.New[string](5 * time.Minute)
	defer c.Close()

	c.Set("key1", "value1")
	c.Delete("key1")

	if _, ok := c.Get("key1"); ok {
		t.Fatal("expected key to be deleted")
	}
}

func TestCache_DeletePrefix(t *testing.T) {
	c := cache.New[string](5 * time.Minute)
	defer c.Close()

	c.Set("status:u1", "a")
	c.Set("status:u2", "b")
	c.Set("other", "c")

	if n := c.DeletePrefix("status:"); n != 2 {
		t.Fatalf("expected 2 evictions, got %d", n)
	}
	if c.Len() != 1 {
		t.Fatalf("expected 1 remaining entry, got %d", c.Len())
	}
	if _, ok := c.Get("other"); !ok {
		t.Fatal("unrelated key should survive")
	}
}

func TestCache_CloseTwice(t *testing.T) {
	c := cache.New[string](time.Second)
	c.Close()
	c.Close()
}
