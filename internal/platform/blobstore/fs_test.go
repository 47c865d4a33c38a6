package blobstore

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/yungbote/rastion-hub/internal/platform/logger"
)

func newTestFSStore(t *testing.T) *FSStore {
	t.Helper()
	s, err := NewFSStore(logger.NewNop(), t.TempDir())
	if err != nil {
		t.Fatalf("NewFSStore: %v", err)
	}
	return s
}

func TestFSStoreCreateOpenDelete(t *testing.T) {
	ctx := context.Background()
	s := newTestFSStore(t)
	key := "problems/1/knapsack/1.0.zip"

	if err := s.Create(ctx, key, strings.NewReader("PK")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	ok, err := s.Exists(ctx, key)
	if err != nil || !ok {
		t.Fatalf("Exists: want=true got=%v err=%v", ok, err)
	}
	rc, err := s.Open(ctx, key)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(body) != "PK" {
		t.Fatalf("body: want=%q got=%q", "PK", body)
	}

	if err := s.Delete(ctx, key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(ctx, key); err != nil {
		t.Fatalf("Delete missing: %v", err)
	}
	if _, err := s.Open(ctx, key); !errors.Is(err, ErrNotExist) {
		t.Fatalf("Open after delete: want=%v got=%v", ErrNotExist, err)
	}
}

func TestFSStoreCreateIsExclusive(t *testing.T) {
	ctx := context.Background()
	s := newTestFSStore(t)
	key := "solvers/2/tabu/0.1.zip"

	if err := s.Create(ctx, key, strings.NewReader("first")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.Create(ctx, key, strings.NewReader("second")); !errors.Is(err, ErrExists) {
		t.Fatalf("second Create: want=%v got=%v", ErrExists, err)
	}
	rc, _ := s.Open(ctx, key)
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(body) != "first" {
		t.Fatalf("body: want=%q got=%q", "first", body)
	}
}

func TestFSStoreConcurrentCreateOneWinner(t *testing.T) {
	ctx := context.Background()
	s := newTestFSStore(t)
	key := "problems/3/race/1.zip"

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.Create(ctx, key, strings.NewReader("payload"))
			if err == nil {
				mu.Lock()
				winners++
				mu.Unlock()
			} else if !errors.Is(err, ErrExists) {
				t.Errorf("Create: unexpected error %v", err)
			}
		}()
	}
	wg.Wait()
	if winners != 1 {
		t.Fatalf("winners: want=1 got=%d", winners)
	}
	entries, _ := os.ReadDir(filepath.Join(s.Root(), "problems", "3", "race"))
	if len(entries) != 1 {
		t.Fatalf("leftover files: want=1 got=%d", len(entries))
	}
}

func TestFSStoreRejectsTraversal(t *testing.T) {
	s := newTestFSStore(t)
	for _, key := range []string{"../escape.zip", "problems/../../escape.zip", "problems/1/..", "", "/"} {
		if err := s.Create(context.Background(), key, strings.NewReader("x")); err == nil {
			t.Fatalf("Create(%q): want error got=nil", key)
		}
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(s.Root()), "escape.zip")); !os.IsNotExist(err) {
		t.Fatalf("escape.zip outside root: want absent got err=%v", err)
	}
}

func TestFSStoreAcceptsDotsInsideSegments(t *testing.T) {
	ctx := context.Background()
	s := newTestFSStore(t)
	for _, key := range []string{"problems/1/knapsack..v2/1.0.zip", "problems/1/knapsack/1..0.zip", "solvers/2/a...b/..v.zip"} {
		if err := s.Create(ctx, key, strings.NewReader("PK")); err != nil {
			t.Fatalf("Create(%q): %v", key, err)
		}
		ok, err := s.Exists(ctx, key)
		if err != nil || !ok {
			t.Fatalf("Exists(%q): want=true got=%v err=%v", key, ok, err)
		}
	}
}

func TestFSStorePruneEmptyParents(t *testing.T) {
	ctx := context.Background()
	s := newTestFSStore(t)
	keep := "problems/1/keep/1.zip"
	gone := "problems/1/gone/1.zip"
	for _, k := range []string{keep, gone} {
		if err := s.Create(ctx, k, strings.NewReader("x")); err != nil {
			t.Fatalf("Create %s: %v", k, err)
		}
	}
	_ = s.Delete(ctx, gone)
	if err := s.PruneEmptyParents(ctx, gone, "problems"); err != nil {
		t.Fatalf("PruneEmptyParents: %v", err)
	}
	if _, err := os.Stat(filepath.Join(s.Root(), "problems", "1", "gone")); !os.IsNotExist(err) {
		t.Fatalf("gone dir: want removed got err=%v", err)
	}
	if _, err := os.Stat(filepath.Join(s.Root(), "problems", "1")); err != nil {
		t.Fatalf("owner dir: want kept got err=%v", err)
	}

	_ = s.Delete(ctx, keep)
	if err := s.PruneEmptyParents(ctx, keep, "problems"); err != nil {
		t.Fatalf("PruneEmptyParents: %v", err)
	}
	if _, err := os.Stat(filepath.Join(s.Root(), "problems", "1")); !os.IsNotExist(err) {
		t.Fatalf("owner dir: want removed got err=%v", err)
	}
	if _, err := os.Stat(filepath.Join(s.Root(), "problems")); err != nil {
		t.Fatalf("kind root: want kept got err=%v", err)
	}
}
