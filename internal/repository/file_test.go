package repository

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"rirblocks/internal/model"
)

func testIndex() model.AllocationIndex {
	index := model.NewAllocationIndex()
	index.Add(model.AllocationRecord{Country: "AU", Family: model.FamilyIPv4, CIDR: "1.0.0.0/24"})
	index.Add(model.AllocationRecord{Country: "AU", Family: model.FamilyIPv4, CIDR: "1.0.4.0/22"})
	index.Add(model.AllocationRecord{Country: "JP", Family: model.FamilyIPv6, CIDR: "2001:200::/35"})
	return index
}

func TestFileStore_SaveLoad(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	store := NewFileStore(t.TempDir(), logger)
	ctx := context.Background()

	if err := store.Save(ctx, "apnic", testIndex()); err != nil {
		t.Fatalf("unexpected save error: %v", err)
	}

	loaded, age, err := store.Load(ctx, "apnic")
	if err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}
	if age < 0 || age > time.Minute {
		t.Errorf("unexpected age %v for a just-written entry", age)
	}

	au := loaded.Blocks(model.FamilyIPv4, "AU")
	if len(au) != 2 || au[0] != "1.0.0.0/24" || au[1] != "1.0.4.0/22" {
		t.Errorf("expected AU blocks to round-trip in order, got %v", au)
	}
	if jp := loaded.Blocks(model.FamilyIPv6, "JP"); len(jp) != 1 || jp[0] != "2001:200::/35" {
		t.Errorf("expected JP block to round-trip, got %v", jp)
	}
}

func TestFileStore_OwnerOnlyPermissions(t *testing.T) {
	dir := t.TempDir()
	logger, _ := zap.NewDevelopment()
	store := NewFileStore(dir, logger)

	if err := store.Save(context.Background(), "apnic", testIndex()); err != nil {
		t.Fatalf("unexpected save error: %v", err)
	}

	info, err := os.Stat(filepath.Join(dir, "delegated-apnic.json"))
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("expected permissions 0600, got %o", perm)
	}
}

func TestFileStore_Load_Missing(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	store := NewFileStore(t.TempDir(), logger)

	_, _, err := store.Load(context.Background(), "apnic")
	if !errors.Is(err, model.ErrCacheMiss) {
		t.Errorf("expected ErrCacheMiss, got %v", err)
	}
}

func TestFileStore_Load_Corrupt(t *testing.T) {
	dir := t.TempDir()
	logger, _ := zap.NewDevelopment()
	store := NewFileStore(dir, logger)

	if err := os.WriteFile(filepath.Join(dir, "delegated-apnic.json"), []byte("not json{"), 0o600); err != nil {
		t.Fatal(err)
	}

	_, _, err := store.Load(context.Background(), "apnic")
	if !errors.Is(err, model.ErrCacheCorrupt) {
		t.Errorf("expected ErrCacheCorrupt, got %v", err)
	}
	if errors.Is(err, model.ErrCacheMiss) {
		t.Error("corrupt entry must not read as a miss")
	}
}

func TestFileStore_Load_MissingFamilyBackfilled(t *testing.T) {
	dir := t.TempDir()
	logger, _ := zap.NewDevelopment()
	store := NewFileStore(dir, logger)

	// An entry written before a family existed in the payload.
	payload := []byte(`{"ipv4":{"AU":["1.0.0.0/24"]}}`)
	if err := os.WriteFile(filepath.Join(dir, "delegated-apnic.json"), payload, 0o600); err != nil {
		t.Fatal(err)
	}

	loaded, _, err := store.Load(context.Background(), "apnic")
	if err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}
	if loaded[model.FamilyIPv6] == nil {
		t.Error("expected the ipv6 family key to be backfilled")
	}
}

func TestFileStore_Save_Overwrite(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	store := NewFileStore(t.TempDir(), logger)
	ctx := context.Background()

	if err := store.Save(ctx, "apnic", testIndex()); err != nil {
		t.Fatal(err)
	}

	replacement := model.NewAllocationIndex()
	replacement.Add(model.AllocationRecord{Country: "NZ", Family: model.FamilyIPv4, CIDR: "1.0.8.0/21"})
	if err := store.Save(ctx, "apnic", replacement); err != nil {
		t.Fatal(err)
	}

	loaded, _, err := store.Load(ctx, "apnic")
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded.Blocks(model.FamilyIPv4, "AU")) != 0 {
		t.Error("expected the old entry to be replaced wholesale")
	}
	if nz := loaded.Blocks(model.FamilyIPv4, "NZ"); len(nz) != 1 || nz[0] != "1.0.8.0/21" {
		t.Errorf("expected replacement blocks, got %v", nz)
	}
}
