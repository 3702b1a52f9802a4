package repo

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/kasunw/whatsapp-relay/internal/domain"
)

func TestOpenSQLite_CreatesDatabaseAndMigrates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relay.db")

	db, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	if err := AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}

	// Schema usable end to end.
	ex := &domain.Exchange{ID: "wamid.db1", Sender: "s", RequestText: "q", ReplyText: "a"}
	if err := CreateExchange(context.Background(), db, ex); err != nil {
		t.Fatalf("CreateExchange: %v", err)
	}
	if _, err := GetExchange(context.Background(), db, "wamid.db1"); err != nil {
		t.Fatalf("GetExchange: %v", err)
	}
}

func TestOpenSQLite_MissingParentDirFailsEarly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "does-not-exist", "relay.db")
	if _, err := OpenSQLite(path); err == nil {
		t.Fatal("expected error for missing parent directory")
	}
}
