package realm

import (
	"testing"
	"time"
)

func TestCacheLazyExpiry(t *testing.T) {
	now := time.Now()
	offset := time.Duration(0)
	c := newCache(func() time.Time { return now.Add(offset) })
	var fp fingerprint
	fp[0] = 1
	c.storeCredential(u1, fp, time.Minute)
	if !c.credential(u1, fp) {
		t.Fatal("fresh entry must hit")
	}
	offset = time.Minute
	if c.credential(u1, fp) {
		t.Fatal("entry at its deadline must be treated as absent")
	}
}

func TestCacheSweepSparesFreshEntries(t *testing.T) {
	now := time.Now()
	offset := time.Duration(0)
	c := newCache(func() time.Time { return now.Add(offset) })
	var fp fingerprint
	c.storeCredential("stale", fp, time.Second)
	c.storeGroupSet("stale", nil, time.Second)
	offset = 30 * time.Second
	// a newer write for the same key must survive a sweep scheduled before it
	c.storeCredential("stale", fp, time.Minute)
	c.storeCredential("fresh", fp, time.Minute)
	c.storeGroupSet("fresh", []string{g1}, time.Minute)
	c.sweep()
	creds, groups := c.sizes()
	if creds != 2 || groups != 0 {
		t.Fatalf("sweep removed the wrong entries, creds: %v groups: %v", creds, groups)
	}
	if !c.credential("stale", fp) {
		t.Fatal("the replacement entry carries its own deadline and must survive")
	}
}

func TestCacheFingerprintMismatchIsAMiss(t *testing.T) {
	c := newCache(nil)
	var a, b fingerprint
	b[0] = 1
	c.storeCredential(u1, a, time.Minute)
	if c.credential(u1, b) {
		t.Fatal("mismatching fingerprint must miss")
	}
}

func TestCacheEmptyGroupSetDistinctFromMiss(t *testing.T) {
	c := newCache(nil)
	if _, ok := c.groupSet(u1); ok {
		t.Fatal("unknown key must miss")
	}
	c.storeGroupSet(u1, []string{}, time.Minute)
	groups, ok := c.groupSet(u1)
	if !ok {
		t.Fatal("cached empty set must hit")
	}
	if len(groups) != 0 {
		t.Fatal("cached empty set must stay empty")
	}
}
