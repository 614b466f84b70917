package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/boorucrawl/internal/model"
)

// setupTestStore creates a temporary database for testing.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})

	return s
}

// TestOpen tests database opening and creation.
func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "newdir", "subdir")
		s, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer s.Close()

		if _, err := os.Stat(filepath.Join(dbDir, DBFileName)); os.IsNotExist(err) {
			t.Error("database file was not created")
		}
		if s.Path() != filepath.Join(dbDir, DBFileName) {
			t.Errorf("unexpected path %q", s.Path())
		}
	})

	t.Run("CreateIfNotExists=false returns error when database does not exist", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "missing")
		_, err := Open(dbDir, Options{CreateIfNotExists: false, EnableWAL: true})
		if err == nil {
			t.Fatal("expected error when database does not exist")
		}
		if !strings.Contains(err.Error(), "database not found") {
			t.Errorf("expected informative error, got %q", err.Error())
		}
		if _, statErr := os.Stat(dbDir); !os.IsNotExist(statErr) {
			t.Error("database directory should not have been created")
		}
	})

	t.Run("CreateIfNotExists=false opens existing database", func(t *testing.T) {
		t.Parallel()

		dbDir := t.TempDir()
		s1, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		if err := s1.Save(context.Background(), map[string]string{"source": "Gelbooru"}); err != nil {
			t.Fatalf("failed to save: %v", err)
		}
		s1.Close()

		s2, err := Open(dbDir, Options{CreateIfNotExists: false, EnableWAL: true})
		if err != nil {
			t.Fatalf("failed to reopen database: %v", err)
		}
		defer s2.Close()

		got, err := s2.Load(context.Background())
		if err != nil {
			t.Fatalf("failed to load: %v", err)
		}
		if got["source"] != "Gelbooru" {
			t.Errorf("expected persisted source, got %v", got)
		}
	})
}

// TestSettings tests the key-value settings table.
func TestSettings(t *testing.T) {
	t.Parallel()

	t.Run("empty store loads empty map", func(t *testing.T) {
		t.Parallel()
		s := setupTestStore(t)

		got, err := s.Load(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 0 {
			t.Errorf("expected no settings, got %v", got)
		}
	})

	t.Run("save overwrites previous values", func(t *testing.T) {
		t.Parallel()
		s := setupTestStore(t)
		ctx := context.Background()

		first := model.CrawlParameters{
			Source: model.SourceDanbooru, SearchTerm: "blue_hair",
			ResizeSize: 1200, EnableTagging: true, MaxCount: 50, OutputPath: "/tmp/out",
		}
		second := first
		second.SearchTerm = "a b c"
		second.OutputPath = ""

		if err := s.Save(ctx, first.ToSettings()); err != nil {
			t.Fatalf("failed to save: %v", err)
		}
		if err := s.Save(ctx, second.ToSettings()); err != nil {
			t.Fatalf("failed to save: %v", err)
		}

		got, err := s.Load(ctx)
		if err != nil {
			t.Fatalf("failed to load: %v", err)
		}
		if params := model.ParametersFromSettings(got); params != second {
			t.Errorf("expected %+v, got %+v", second, params)
		}
	})

	t.Run("save respects cancelled context", func(t *testing.T) {
		t.Parallel()
		s := setupTestStore(t)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := s.Save(ctx, map[string]string{"k": "v"})
		if err == nil {
			t.Fatal("expected error for cancelled context")
		}
		if !errors.Is(err, context.Canceled) {
			t.Logf("error does not wrap context.Canceled: %v", err)
		}
	})
}

// TestRuns tests the run history table.
func TestRuns(t *testing.T) {
	t.Parallel()

	t.Run("save and get run", func(t *testing.T) {
		t.Parallel()
		s := setupTestStore(t)
		ctx := context.Background()

		record := model.NewRunRecord("run-1", model.DefaultCrawlParameters())
		record.Fetched = 12
		record.Exported = 10
		record.Dropped["filter_similar"] = 2
		record.Finish(nil)

		if err := s.SaveRun(ctx, record); err != nil {
			t.Fatalf("failed to save run: %v", err)
		}

		got, err := s.GetRun(ctx, "run-1")
		if err != nil {
			t.Fatalf("failed to get run: %v", err)
		}
		if got == nil {
			t.Fatal("expected run record")
		}
		if got.Exported != 10 || got.Fetched != 12 {
			t.Errorf("unexpected counts: %+v", got)
		}
		if got.Status != model.RunStatusCompleted {
			t.Errorf("expected completed status, got %q", got.Status)
		}
		if got.Dropped["filter_similar"] != 2 {
			t.Errorf("expected dropped counts, got %v", got.Dropped)
		}
	})

	t.Run("get unknown run returns nil", func(t *testing.T) {
		t.Parallel()
		s := setupTestStore(t)

		got, err := s.GetRun(context.Background(), "missing")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != nil {
			t.Errorf("expected nil, got %+v", got)
		}
	})

	t.Run("list runs newest first with limit", func(t *testing.T) {
		t.Parallel()
		s := setupTestStore(t)
		ctx := context.Background()

		base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
		for i, id := range []string{"old", "middle", "new"} {
			record := model.NewRunRecord(id, model.DefaultCrawlParameters())
			record.StartedAt = base.Add(time.Duration(i) * time.Hour)
			record.Finish(nil)
			if err := s.SaveRun(ctx, record); err != nil {
				t.Fatalf("failed to save run %s: %v", id, err)
			}
		}

		all, err := s.ListRuns(ctx, 0)
		if err != nil {
			t.Fatalf("failed to list runs: %v", err)
		}
		if len(all) != 3 {
			t.Fatalf("expected 3 runs, got %d", len(all))
		}
		if all[0].ID != "new" || all[2].ID != "old" {
			t.Errorf("unexpected order: %s, %s, %s", all[0].ID, all[1].ID, all[2].ID)
		}

		limited, err := s.ListRuns(ctx, 2)
		if err != nil {
			t.Fatalf("failed to list runs: %v", err)
		}
		if len(limited) != 2 {
			t.Errorf("expected 2 runs, got %d", len(limited))
		}
	})

	t.Run("save run twice updates record", func(t *testing.T) {
		t.Parallel()
		s := setupTestStore(t)
		ctx := context.Background()

		record := model.NewRunRecord("run-x", model.DefaultCrawlParameters())
		if err := s.SaveRun(ctx, record); err != nil {
			t.Fatalf("failed to save run: %v", err)
		}
		record.Exported = 3
		record.Finish(errors.New("network down"))
		if err := s.SaveRun(ctx, record); err != nil {
			t.Fatalf("failed to update run: %v", err)
		}

		got, err := s.GetRun(ctx, "run-x")
		if err != nil {
			t.Fatalf("failed to get run: %v", err)
		}
		if got.Status != model.RunStatusFailed || got.Error != "network down" {
			t.Errorf("unexpected record: %+v", got)
		}
	})
}

func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	for _, s := range []string{
		"2026-01-02T03:04:05.000000000Z",
		"2026-01-02 03:04:05",
		"2026-01-02T03:04:05Z",
	} {
		if parseTimestamp(s).IsZero() {
			t.Errorf("failed to parse %q", s)
		}
	}
	if !parseTimestamp("garbage").IsZero() {
		t.Error("expected zero time for garbage")
	}
}
