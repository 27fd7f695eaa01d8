package storage

import (
	"bytes"
	"errors"
	"os"
	"reflect"
	"testing"
	"time"

	"github.com/valter-silva-au/session-vault/internal/fsutil"
	"github.com/valter-silva-au/session-vault/pkg/models"
)

func testConfig() models.StorageConfig {
	return models.StorageConfig{
		Compression:      true,
		CompressionLevel: 3,
		Checksum:         true,
		MaxFileSize:      10 * 1024 * 1024,
	}
}

func testSession(id string) *models.Session {
	created := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	return &models.Session{
		ID:            id,
		Version:       "1.0",
		Created:       created,
		LastModified:  created.Add(30 * time.Minute),
		Model:         "sonnet-4",
		Provider:      "anthropic",
		WorkspaceRoot: "/home/user/project",
		TokenCount:    models.TokenCount{Total: 1200, Input: 800, Output: 400},
		Messages: []models.Message{
			{ID: "m1", Role: "user", Content: "refactor the parser", Timestamp: created},
			{ID: "m2", Role: "assistant", Content: "done, see diff", Timestamp: created.Add(time.Minute)},
		},
		ContextFiles:  []string{"parser.go"},
		FilesAccessed: []string{"parser.go", "lexer.go"},
		Tags:          []string{"refactor"},
		Title:         "parser cleanup",
	}
}

func TestStore_RoundTrip(t *testing.T) {
	cases := []struct {
		name        string
		compression bool
		checksum    bool
	}{
		{"plain", false, false},
		{"compressed", true, false},
		{"checksummed", false, true},
		{"compressed_checksummed", true, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.Compression = tc.compression
			cfg.Checksum = tc.checksum
			store := NewStore(t.TempDir(), cfg, nil)

			want := testSession("s-round-trip")
			if err := store.WriteSession(want.ID, want); err != nil {
				t.Fatalf("write: %v", err)
			}

			got, err := store.ReadSession(want.ID)
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			if !reflect.DeepEqual(got, want) {
				t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, want)
			}
		})
	}
}

func TestStore_ReadMissingSession(t *testing.T) {
	store := NewStore(t.TempDir(), testConfig(), nil)

	_, err := store.ReadSession("no-such-session")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_WriteRejectsIDMismatch(t *testing.T) {
	store := NewStore(t.TempDir(), testConfig(), nil)

	session := testSession("real-id")
	if err := store.WriteSession("other-id", session); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestStore_WriteRejectsPathEscapingID(t *testing.T) {
	store := NewStore(t.TempDir(), testConfig(), nil)

	for _, id := range []string{"", "..", "a/b", `a\b`} {
		session := testSession(id)
		if err := store.WriteSession(id, session); !errors.Is(err, ErrValidation) {
			t.Errorf("id %q: expected ErrValidation, got %v", id, err)
		}
	}
}

func TestStore_CorruptedPayloadFailsRead(t *testing.T) {
	cfg := testConfig()
	cfg.Compression = false // keep payload bytes addressable for tampering
	store := NewStore(t.TempDir(), cfg, nil)

	session := testSession("s-corrupt")
	session.Title = "corruption target"
	if err := store.WriteSession(session.ID, session); err != nil {
		t.Fatal(err)
	}

	path := store.SessionPath(session.ID)
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	tampered := bytes.Replace(raw, []byte("corruption target"), []byte("corruption tArget"), 1)
	if bytes.Equal(tampered, raw) {
		t.Fatal("tampering had no effect")
	}
	if err := os.WriteFile(path, tampered, 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := store.ReadSession(session.ID); !errors.Is(err, ErrCorruption) {
		t.Errorf("expected ErrCorruption, got %v", err)
	}
}

func TestStore_UndecodableEnvelopeFailsRead(t *testing.T) {
	store := NewStore(t.TempDir(), testConfig(), nil)

	session := testSession("s-garbage")
	if err := store.WriteSession(session.ID, session); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(store.SessionPath(session.ID), []byte("{{not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := store.ReadSession(session.ID); !errors.Is(err, ErrCorruption) {
		t.Errorf("expected ErrCorruption, got %v", err)
	}
}

func TestStore_ReadRespectsSizeLimit(t *testing.T) {
	store := NewStore(t.TempDir(), testConfig(), nil)
	session := testSession("s-big")
	if err := store.WriteSession(session.ID, session); err != nil {
		t.Fatal(err)
	}

	small := NewStore(store.basePath, models.StorageConfig{MaxFileSize: 10}, nil)
	if _, err := small.ReadSession(session.ID); !errors.Is(err, ErrSizeLimit) {
		t.Errorf("expected ErrSizeLimit, got %v", err)
	}
}

func TestStore_OverwriteKeepsSingleBackup(t *testing.T) {
	store := NewStore(t.TempDir(), testConfig(), nil)

	v1 := testSession("s-bak")
	v1.Title = "first"
	if err := store.WriteSession(v1.ID, v1); err != nil {
		t.Fatal(err)
	}
	bakPath := store.SessionPath(v1.ID) + fsutil.BackupSuffix
	if fsutil.FileExists(bakPath) {
		t.Fatal("backup exists after first write")
	}

	v2 := testSession("s-bak")
	v2.Title = "second"
	if err := store.WriteSession(v2.ID, v2); err != nil {
		t.Fatal(err)
	}
	if !fsutil.FileExists(bakPath) {
		t.Fatal("no backup after overwrite")
	}

	// The .bak holds the immediately-preceding envelope, reinstallable via
	// the normal restore path.
	id, err := store.RestoreFromBackup(bakPath)
	if err != nil {
		t.Fatalf("restoring .bak: %v", err)
	}
	if id != "s-bak" {
		t.Errorf("restored id %q", id)
	}
	got, err := store.ReadSession(id)
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "first" {
		t.Errorf("restored title %q, want first", got.Title)
	}
}

func TestStore_ExplicitBackupAndRestore(t *testing.T) {
	store := NewStore(t.TempDir(), testConfig(), nil)

	v1 := testSession("s-checkpoint")
	v1.Notes = "before migration"
	if err := store.WriteSession(v1.ID, v1); err != nil {
		t.Fatal(err)
	}

	path, err := store.CreateBackup(v1.ID)
	if err != nil {
		t.Fatalf("create backup: %v", err)
	}

	v2 := testSession("s-checkpoint")
	v2.Notes = "after migration"
	if err := store.WriteSession(v2.ID, v2); err != nil {
		t.Fatal(err)
	}

	id, err := store.RestoreFromBackup(path)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if id != "s-checkpoint" {
		t.Errorf("restored id %q", id)
	}

	got, err := store.ReadSession(id)
	if err != nil {
		t.Fatal(err)
	}
	if got.Notes != "before migration" {
		t.Errorf("notes %q, want pre-migration state", got.Notes)
	}

	// Restore goes through the normal write path, so the index is current.
	idx, err := store.Index()
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := idx.Sessions[id]; !ok {
		t.Error("restored session missing from index")
	}
}

func TestStore_BackupOfMissingSession(t *testing.T) {
	store := NewStore(t.TempDir(), testConfig(), nil)

	if _, err := store.CreateBackup("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_DeleteSessionIdempotent(t *testing.T) {
	store := NewStore(t.TempDir(), testConfig(), nil)

	session := testSession("s-delete")
	if err := store.WriteSession(session.ID, session); err != nil {
		t.Fatal(err)
	}
	// Force a .bak into existence.
	if err := store.WriteSession(session.ID, session); err != nil {
		t.Fatal(err)
	}

	if err := store.DeleteSession(session.ID); err != nil {
		t.Fatalf("first delete: %v", err)
	}
	if fsutil.FileExists(store.SessionPath(session.ID)) {
		t.Error("session file still exists")
	}
	if fsutil.FileExists(store.SessionPath(session.ID) + fsutil.BackupSuffix) {
		t.Error("backup file still exists")
	}
	idx, err := store.Index()
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := idx.Sessions[session.ID]; ok {
		t.Error("index entry still exists")
	}

	// Retry must succeed silently.
	if err := store.DeleteSession(session.ID); err != nil {
		t.Fatalf("second delete: %v", err)
	}
}

func TestStore_MissingIndexIsEmpty(t *testing.T) {
	store := NewStore(t.TempDir(), testConfig(), nil)

	idx, err := store.Index()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(idx.Sessions) != 0 {
		t.Errorf("expected empty index, got %d entries", len(idx.Sessions))
	}
	if idx.Version != IndexVersion {
		t.Errorf("version %q", idx.Version)
	}
}

func TestStore_IndexEntryDerivedFromSession(t *testing.T) {
	store := NewStore(t.TempDir(), testConfig(), nil)

	session := testSession("s-meta")
	if err := store.WriteSession(session.ID, session); err != nil {
		t.Fatal(err)
	}

	idx, err := store.Index()
	if err != nil {
		t.Fatal(err)
	}
	md, ok := idx.Sessions[session.ID]
	if !ok {
		t.Fatal("entry missing")
	}
	if md.MessageCount != 2 {
		t.Errorf("message count %d, want 2", md.MessageCount)
	}
	if md.Preview != "refactor the parser" {
		t.Errorf("preview %q", md.Preview)
	}
	if md.LastMessage != "done, see diff" {
		t.Errorf("last message %q", md.LastMessage)
	}
	if md.Provider != "anthropic" || md.Model != "sonnet-4" {
		t.Errorf("model/provider %q/%q", md.Model, md.Provider)
	}
}

func TestStore_IndexSurvivesCacheInvalidation(t *testing.T) {
	store := NewStore(t.TempDir(), testConfig(), nil)

	session := testSession("s-cache")
	if err := store.WriteSession(session.ID, session); err != nil {
		t.Fatal(err)
	}

	store.InvalidateIndexCache()
	idx, err := store.Index()
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := idx.Sessions[session.ID]; !ok {
		t.Error("entry lost after cache invalidation")
	}
}

func TestStore_CompressionShrinksRepetitiveSessions(t *testing.T) {
	base := t.TempDir()
	plain := NewStore(base+"/plain", models.StorageConfig{MaxFileSize: 1 << 20}, nil)
	zipped := NewStore(base+"/zipped", models.StorageConfig{Compression: true, CompressionLevel: 3, MaxFileSize: 1 << 20}, nil)

	session := testSession("s-compressible")
	session.Messages = nil
	content := ""
	for i := 0; i < 12; i++ {
		content += "the same long repeated pattern of assistant output "
	}
	for i := 0; i < 12; i++ {
		session.Messages = append(session.Messages, models.Message{
			ID: "m", Role: "assistant", Content: content, Timestamp: session.Created,
		})
	}

	if err := plain.WriteSession(session.ID, session); err != nil {
		t.Fatal(err)
	}
	if err := zipped.WriteSession(session.ID, session); err != nil {
		t.Fatal(err)
	}

	plainInfo, err := os.Stat(plain.SessionPath(session.ID))
	if err != nil {
		t.Fatal(err)
	}
	zippedInfo, err := os.Stat(zipped.SessionPath(session.ID))
	if err != nil {
		t.Fatal(err)
	}
	if zippedInfo.Size() >= plainInfo.Size() {
		t.Errorf("compressed file %d bytes, uncompressed %d", zippedInfo.Size(), plainInfo.Size())
	}
}

func TestStore_ReadsLegacyPlainEnvelope(t *testing.T) {
	// A store configured for compression and checksums must still read old
	// files written without either.
	base := t.TempDir()
	legacy := NewStore(base, models.StorageConfig{MaxFileSize: 1 << 20}, nil)
	session := testSession("s-legacy")
	if err := legacy.WriteSession(session.ID, session); err != nil {
		t.Fatal(err)
	}

	modern := NewStore(base, testConfig(), nil)
	got, err := modern.ReadSession(session.ID)
	if err != nil {
		t.Fatalf("reading legacy envelope: %v", err)
	}
	if !reflect.DeepEqual(got, session) {
		t.Error("legacy round trip mismatch")
	}
}
