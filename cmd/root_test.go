package cmd

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"pulsegin/trends/internal/db"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatal(err)
	}
}

func resetDiscovery(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("TRENDS_DB", "")
	old := dbPath
	dbPath = ""
	t.Cleanup(func() { dbPath = old })
	return home
}

func TestDiscoverDB_EnvWins(t *testing.T) {
	resetDiscovery(t)
	envDB := filepath.Join(t.TempDir(), "env.db")
	touch(t, envDB)
	t.Setenv("TRENDS_DB", envDB)
	dbPath = filepath.Join(t.TempDir(), "flag.db")

	got, err := DiscoverDB()
	if err != nil {
		t.Fatal(err)
	}
	if got != envDB {
		t.Errorf("got %q, want %q", got, envDB)
	}
}

func TestDiscoverDB_MissingFlagPath(t *testing.T) {
	resetDiscovery(t)
	dbPath = filepath.Join(t.TempDir(), "missing.db")

	_, err := DiscoverDB()
	if err == nil || !strings.Contains(err.Error(), "--db") {
		t.Errorf("expected --db error, got %v", err)
	}
}

func TestDiscoverDB_WalksUp(t *testing.T) {
	resetDiscovery(t)
	root := t.TempDir()
	touch(t, filepath.Join(root, dbFileName))
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}
	t.Chdir(nested)

	got, err := DiscoverDB()
	if err != nil {
		t.Fatal(err)
	}
	want, _ := filepath.EvalSymlinks(filepath.Join(root, dbFileName))
	if resolved, _ := filepath.EvalSymlinks(got); resolved != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestDiscoverDB_XDGFallback(t *testing.T) {
	home := resetDiscovery(t)
	t.Chdir(t.TempDir())
	xdg := filepath.Join(home, ".local", "share", "trends", dbFileName)
	touch(t, xdg)

	got, err := DiscoverDB()
	if err != nil {
		t.Fatal(err)
	}
	if got != xdg {
		t.Errorf("got %q, want %q", got, xdg)
	}
}

func TestOpenOrCreateDatabase_CreatesAtFlagPath(t *testing.T) {
	resetDiscovery(t)
	t.Chdir(t.TempDir())
	dbPath = filepath.Join(t.TempDir(), "nested", "new.db")

	if _, err := DiscoverDB(); err == nil {
		t.Fatal("expected discovery to fail before creation")
	}
	d, err := OpenOrCreateDatabase()
	if err != nil {
		t.Fatal(err)
	}
	d.Close()
	if _, err := os.Stat(dbPath); err != nil {
		t.Errorf("database not created: %v", err)
	}
}

func TestResolveTopic(t *testing.T) {
	ctx := context.Background()
	d, err := db.CreateDB(filepath.Join(t.TempDir(), dbFileName))
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()

	var ids []int64
	for _, label := range []string{"Missing items in order", "Wrong items delivered", "Wrong items"} {
		err := d.InTx(ctx, func(tx *db.Tx) error {
			id, err := tx.InsertTopic(ctx, label, "", []float32{1, 0}, time.Now())
			ids = append(ids, id)
			return err
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name    string
		ref     string
		want    int64
		wantErr string
	}{
		{"numeric id", "2", ids[1], ""},
		{"single label match", "missing", ids[0], ""},
		{"exact label wins", "wrong items", ids[2], ""},
		{"ambiguous", "items", 0, "ambiguous reference"},
		{"not found", "refund", 0, "topic not found"},
		{"unknown id searches labels", "99", 0, "topic not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveTopic(ctx, d, tt.ref)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got.ID != tt.want {
				t.Errorf("got topic %d, want %d", got.ID, tt.want)
			}
		})
	}
}
