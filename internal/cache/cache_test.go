package cache

import (
	"testing"
	"time"
)

type payload struct {
	Method string  `json:"method"`
	Score  float64 `json:"score"`
}

func TestKey(t *testing.T) {
	a := Key("verify", "news", "The vaccine works")
	b := Key("verify", "news", "The vaccine works")
	c := Key("verify", "academic", "The vaccine works")

	if a != b {
		t.Errorf("expected stable key, got %s and %s", a, b)
	}
	if a == c {
		t.Error("expected different keys for different parts")
	}
}

func TestMemoryCache_JSONRoundTrip(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)
	key := Key("verify", "news", "claim")

	if err := SetJSON(c, key, payload{Method: "news", Score: 0.8}, 0); err != nil {
		t.Fatalf("SetJSON failed: %v", err)
	}

	var got payload
	if !GetJSON(c, key, &got) {
		t.Fatal("expected cache hit")
	}
	if got.Method != "news" || got.Score != 0.8 {
		t.Errorf("unexpected payload %+v", got)
	}
	if c.Len() != 1 {
		t.Errorf("expected 1 item, got %d", c.Len())
	}

	_ = c.Delete(key)
	if GetJSON(c, key, &got) {
		t.Error("expected miss after delete")
	}
}

func TestDiskCache_Expiry(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Hour)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	key := Key("verify", "government", "claim")
	if err := c.Set(key, []byte("value"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	if val, ok := c.Get(key); !ok || string(val) != "value" {
		t.Fatalf("expected hit, got %q %v", val, ok)
	}

	now = now.Add(2 * time.Hour)
	if _, ok := c.Get(key); ok {
		t.Error("expected expired entry to miss")
	}

	if err := c.Delete(key); err != nil {
		t.Errorf("Delete of missing key should not fail: %v", err)
	}
}

func TestLayeredCache_PromotesDiskHits(t *testing.T) {
	dir := t.TempDir()
	layered := NewLayeredCache(time.Minute, dir, time.Hour)

	key := Key("verify", "news", "claim")
	if err := layered.disk.Set(key, []byte("from-disk"), 0); err != nil {
		t.Fatalf("disk Set failed: %v", err)
	}

	if val, ok := layered.Get(key); !ok || string(val) != "from-disk" {
		t.Fatalf("expected disk hit, got %q %v", val, ok)
	}
	if _, ok := layered.memory.Get(key); !ok {
		t.Error("expected disk hit promoted to memory")
	}

	if err := layered.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if _, ok := layered.Get(key); ok {
		t.Error("expected miss after clear")
	}
}

func TestNew(t *testing.T) {
	if New(false, time.Minute, "", time.Hour) != nil {
		t.Error("expected nil cache when disabled")
	}
	if _, ok := New(true, time.Minute, "", time.Hour).(*MemoryCache); !ok {
		t.Error("expected memory cache without a directory")
	}
	if _, ok := New(true, time.Minute, t.TempDir(), time.Hour).(*LayeredCache); !ok {
		t.Error("expected layered cache with a directory")
	}
}
