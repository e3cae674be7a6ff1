// Package archive persists finished capture sessions to SQLite so their
// entries outlive the bounded in-memory collections.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/winahq/walnut_agent/internal/collection"
	"github.com/winahq/walnut_agent/internal/entry"
)

// Session is one archived capture session.
type Session struct {
	ID         string    `gorm:"primaryKey" json:"id"`
	PageURL    string    `json:"page_url"`
	ArchivedAt time.Time `json:"archived_at"`
	EntryCount int       `json:"entry_count"`
}

// Record is one archived entry, stored as its JSON encoding.
type Record struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	SessionID string    `gorm:"index" json:"session_id"`
	Domain    string    `gorm:"index" json:"domain"`
	Payload   string    `json:"payload"`
	CreatedAt time.Time `json:"created_at"`
}

// Store wraps the archive database.
type Store struct {
	db *gorm.DB
}

// Open opens (or creates) the archive database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("archive: mkdir %s: %w", dir, err)
		}
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("archive: open %s: %w", path, err)
	}
	if err := db.AutoMigrate(&Session{}, &Record{}); err != nil {
		return nil, fmt.Errorf("archive: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ArchiveSession stores the current contents of all collections as one
// session and returns its ID. The collections themselves are untouched.
func (s *Store) ArchiveSession(ctx context.Context, pageURL string, logs *collection.Logs) (Session, error) {
	sess := Session{
		ID:         uuid.New().String(),
		PageURL:    pageURL,
		ArchivedAt: time.Now().UTC(),
	}

	var records []Record
	add := func(domain entry.Domain, v any) error {
		payload, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("archive: encode %s entry: %w", domain, err)
		}
		records = append(records, Record{
			ID:        uuid.New().String(),
			SessionID: sess.ID,
			Domain:    string(domain),
			Payload:   string(payload),
			CreatedAt: sess.ArchivedAt,
		})
		return nil
	}

	for _, e := range logs.Console.Snapshot() {
		if err := add(entry.DomainConsole, e); err != nil {
			return Session{}, err
		}
	}
	for _, e := range logs.Resources.Snapshot() {
		if err := add(entry.DomainResource, e); err != nil {
			return Session{}, err
		}
	}
	for _, e := range logs.Network.Snapshot() {
		if err := add(entry.DomainNetwork, e); err != nil {
			return Session{}, err
		}
	}
	for _, e := range logs.Accessibility.Snapshot() {
		if err := add(entry.DomainAccessibility, e); err != nil {
			return Session{}, err
		}
	}
	sess.EntryCount = len(records)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&sess).Error; err != nil {
			return err
		}
		if len(records) == 0 {
			return nil
		}
		return tx.CreateInBatches(records, 200).Error
	})
	if err != nil {
		return Session{}, fmt.Errorf("archive: store session: %w", err)
	}
	return sess, nil
}

// Sessions lists archived sessions, newest first.
func (s *Store) Sessions(ctx context.Context) ([]Session, error) {
	var out []Session
	err := s.db.WithContext(ctx).Order("archived_at DESC").Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("archive: list sessions: %w", err)
	}
	return out, nil
}

// Entries returns the archived records for a session. An empty domain
// returns every record in the session.
func (s *Store) Entries(ctx context.Context, sessionID string, domain entry.Domain) ([]Record, error) {
	q := s.db.WithContext(ctx).Where("session_id = ?", sessionID)
	if domain != "" {
		q = q.Where("domain = ?", string(domain))
	}
	var out []Record
	if err := q.Order("created_at ASC, id ASC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("archive: load entries: %w", err)
	}
	return out, nil
}

// DeleteSession removes a session and its records.
func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ?", sessionID).Delete(&Record{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", sessionID).Delete(&Session{}).Error
	})
}
