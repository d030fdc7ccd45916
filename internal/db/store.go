// Package db provides CRUD store operations for Little Moments data models.
package db

import (
	"database/sql"
	"fmt"

	"github.com/kimhsiao/littlemoments/backend/internal/models"
)

// Store provides collection-level access to the local database: get-all,
// get-by-secondary-index (child, synced flag), upsert by id, delete by id,
// bulk delete by child (cascade), and the synced-flag transitions the sync
// engine depends on.
type Store struct {
	db *sql.DB
}

// NewStore creates a new Store instance.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const (
	profileColumns = "id, name, dob, birth_time, hospital_name, birth_location, gender, profile_image, synced"
	memoryColumns  = "id, child_id, title, date, description, image_url, tags, synced"
	growthColumns  = "id, child_id, month, height, weight, synced"
)

// =====================================================
// ChildProfile Operations
// =====================================================

// CountProfiles returns the number of stored profiles.
func (s *Store) CountProfiles() (int, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM child_profile").Scan(&count)
	return count, err
}

// GetProfile retrieves a profile by ID.
func (s *Store) GetProfile(id string) (*models.ChildProfile, error) {
	row := s.db.QueryRow("SELECT "+profileColumns+" FROM child_profile WHERE id = ?", id)
	return scanProfile(row)
}

// ListProfiles returns all profiles.
func (s *Store) ListProfiles() ([]*models.ChildProfile, error) {
	rows, err := s.db.Query("SELECT " + profileColumns + " FROM child_profile")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanProfiles(rows)
}

// ListUnsyncedProfiles returns profiles with pending local changes.
func (s *Store) ListUnsyncedProfiles() ([]*models.ChildProfile, error) {
	rows, err := s.db.Query("SELECT " + profileColumns + " FROM child_profile WHERE synced = 0")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanProfiles(rows)
}

// PutProfile upserts a profile by ID.
func (s *Store) PutProfile(p *models.ChildProfile) error {
	query := `
	INSERT INTO child_profile (` + profileColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		name = excluded.name,
		dob = excluded.dob,
		birth_time = excluded.birth_time,
		hospital_name = excluded.hospital_name,
		birth_location = excluded.birth_location,
		gender = excluded.gender,
		profile_image = excluded.profile_image,
		synced = excluded.synced
	`
	_, err := s.db.Exec(query, p.ID, p.Name, p.DOB, p.BirthTime, p.HospitalName,
		p.BirthLocation, p.Gender, p.ProfileImage, p.Synced)
	return err
}

// PutProfilesSynced bulk-upserts remote profiles with synced forced to 1 in a
// single transaction, skipping any row whose local copy is still dirty
// (synced=0) except the empty-name bootstrap profile. Returns the number of
// rows written; the remainder were protected.
func (s *Store) PutProfilesSynced(profiles []*models.ChildProfile) (int, error) {
	if len(profiles) == 0 {
		return 0, nil
	}
	written := 0
	err := s.inTx(func(tx *sql.Tx) error {
		// The dirty check lives in the upsert itself, so a local edit
		// landing just before this transaction is still protected. The
		// empty-name bootstrap profile is the one dirty row a remote copy
		// may replace.
		query := `
		INSERT INTO child_profile (` + profileColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			dob = excluded.dob,
			birth_time = excluded.birth_time,
			hospital_name = excluded.hospital_name,
			birth_location = excluded.birth_location,
			gender = excluded.gender,
			profile_image = excluded.profile_image,
			synced = 1
		WHERE child_profile.synced = 1 OR child_profile.name = ''
		`
		for _, p := range profiles {
			res, err := tx.Exec(query, p.ID, p.Name, p.DOB, p.BirthTime,
				p.HospitalName, p.BirthLocation, p.Gender, p.ProfileImage)
			if err != nil {
				return err
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			written += int(n)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return written, nil
}

// MarkProfilesSynced flips synced=1 for exactly the given IDs, in a single
// transaction.
func (s *Store) MarkProfilesSynced(ids []models.UUID) error {
	return s.markSynced("child_profile", ids)
}

// DeleteProfile deletes a profile by ID. Cascade to memories and growth is
// the facade's responsibility.
func (s *Store) DeleteProfile(id string) error {
	_, err := s.db.Exec("DELETE FROM child_profile WHERE id = ?", id)
	return err
}

// =====================================================
// Memory Operations
// =====================================================

// GetMemory retrieves a memory by ID.
func (s *Store) GetMemory(id string) (*models.Memory, error) {
	row := s.db.QueryRow("SELECT "+memoryColumns+" FROM memories WHERE id = ?", id)
	return scanMemory(row)
}

// ListMemoriesByChild returns a child's memories sorted by date descending.
func (s *Store) ListMemoriesByChild(childID string) ([]*models.Memory, error) {
	rows, err := s.db.Query(
		"SELECT "+memoryColumns+" FROM memories WHERE child_id = ? ORDER BY date DESC", childID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMemories(rows)
}

// ListUnsyncedMemories returns memories with pending local changes.
func (s *Store) ListUnsyncedMemories() ([]*models.Memory, error) {
	rows, err := s.db.Query("SELECT " + memoryColumns + " FROM memories WHERE synced = 0")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMemories(rows)
}

// PutMemory upserts a memory by ID.
func (s *Store) PutMemory(m *models.Memory) error {
	query := `
	INSERT INTO memories (` + memoryColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		child_id = excluded.child_id,
		title = excluded.title,
		date = excluded.date,
		description = excluded.description,
		image_url = excluded.image_url,
		tags = excluded.tags,
		synced = excluded.synced
	`
	_, err := s.db.Exec(query, m.ID, m.ChildID, m.Title, m.Date, m.Description,
		m.ImageURL, m.Tags, m.Synced)
	return err
}

// PutMemoriesSynced bulk-upserts remote memories with synced forced to 1 in a
// single transaction, skipping any row whose local copy is still dirty
// (synced=0). Returns the number of rows written; the remainder were
// protected.
func (s *Store) PutMemoriesSynced(memories []*models.Memory) (int, error) {
	if len(memories) == 0 {
		return 0, nil
	}
	written := 0
	err := s.inTx(func(tx *sql.Tx) error {
		query := `
		INSERT INTO memories (` + memoryColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, 1)
		ON CONFLICT(id) DO UPDATE SET
			child_id = excluded.child_id,
			title = excluded.title,
			date = excluded.date,
			description = excluded.description,
			image_url = excluded.image_url,
			tags = excluded.tags,
			synced = 1
		WHERE memories.synced = 1
		`
		for _, m := range memories {
			res, err := tx.Exec(query, m.ID, m.ChildID, m.Title, m.Date,
				m.Description, m.ImageURL, m.Tags)
			if err != nil {
				return err
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			written += int(n)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return written, nil
}

// MarkMemoriesSynced flips synced=1 for exactly the given IDs.
func (s *Store) MarkMemoriesSynced(ids []models.UUID) error {
	return s.markSynced("memories", ids)
}

// DeleteMemory deletes a memory by ID.
func (s *Store) DeleteMemory(id string) error {
	_, err := s.db.Exec("DELETE FROM memories WHERE id = ?", id)
	return err
}

// DeleteMemoriesByChild bulk-deletes all memories owned by a profile.
func (s *Store) DeleteMemoriesByChild(childID string) error {
	_, err := s.db.Exec("DELETE FROM memories WHERE child_id = ?", childID)
	return err
}

// =====================================================
// GrowthData Operations
// =====================================================

// GetGrowth retrieves a growth record by ID.
func (s *Store) GetGrowth(id string) (*models.GrowthData, error) {
	row := s.db.QueryRow("SELECT "+growthColumns+" FROM growth_data WHERE id = ?", id)
	return scanGrowth(row)
}

// ListGrowthByChild returns a child's growth records sorted by month ascending.
func (s *Store) ListGrowthByChild(childID string) ([]*models.GrowthData, error) {
	rows, err := s.db.Query(
		"SELECT "+growthColumns+" FROM growth_data WHERE child_id = ? ORDER BY month ASC", childID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanGrowthRows(rows)
}

// ListUnsyncedGrowth returns growth records with pending local changes.
func (s *Store) ListUnsyncedGrowth() ([]*models.GrowthData, error) {
	rows, err := s.db.Query("SELECT " + growthColumns + " FROM growth_data WHERE synced = 0")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanGrowthRows(rows)
}

// PutGrowth upserts a growth record by ID.
func (s *Store) PutGrowth(g *models.GrowthData) error {
	query := `
	INSERT INTO growth_data (` + growthColumns + `)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		child_id = excluded.child_id,
		month = excluded.month,
		height = excluded.height,
		weight = excluded.weight,
		synced = excluded.synced
	`
	_, err := s.db.Exec(query, g.ID, g.ChildID, g.Month, g.Height, g.Weight, g.Synced)
	return err
}

// PutGrowthSynced bulk-upserts remote growth records with synced forced to 1
// in a single transaction, skipping any row whose local copy is still dirty
// (synced=0). Returns the number of rows written; the remainder were
// protected.
func (s *Store) PutGrowthSynced(records []*models.GrowthData) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	written := 0
	err := s.inTx(func(tx *sql.Tx) error {
		query := `
		INSERT INTO growth_data (` + growthColumns + `)
		VALUES (?, ?, ?, ?, ?, 1)
		ON CONFLICT(id) DO UPDATE SET
			child_id = excluded.child_id,
			month = excluded.month,
			height = excluded.height,
			weight = excluded.weight,
			synced = 1
		WHERE growth_data.synced = 1
		`
		for _, g := range records {
			res, err := tx.Exec(query, g.ID, g.ChildID, g.Month, g.Height, g.Weight)
			if err != nil {
				return err
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			written += int(n)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return written, nil
}

// MarkGrowthSynced flips synced=1 for exactly the given IDs.
func (s *Store) MarkGrowthSynced(ids []models.UUID) error {
	return s.markSynced("growth_data", ids)
}

// DeleteGrowth deletes a growth record by ID.
func (s *Store) DeleteGrowth(id string) error {
	_, err := s.db.Exec("DELETE FROM growth_data WHERE id = ?", id)
	return err
}

// DeleteGrowthByChild bulk-deletes all growth records owned by a profile.
func (s *Store) DeleteGrowthByChild(childID string) error {
	_, err := s.db.Exec("DELETE FROM growth_data WHERE child_id = ?", childID)
	return err
}

// =====================================================
// Shared Operations
// =====================================================

// ClearAll removes every record from all three collections.
func (s *Store) ClearAll() error {
	return s.inTx(func(tx *sql.Tx) error {
		for _, table := range []string{"memories", "growth_data", "child_profile"} {
			if _, err := tx.Exec("DELETE FROM " + table); err != nil {
				return err
			}
		}
		return nil
	})
}

// markSynced flips synced=1 for the given IDs in one transaction, so a crash
// mid-flip cannot leave the pushed set half-marked.
func (s *Store) markSynced(table string, ids []models.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return s.inTx(func(tx *sql.Tx) error {
		stmt, err := tx.Prepare("UPDATE " + table + " SET synced = 1 WHERE id = ?")
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, id := range ids {
			if _, err := stmt.Exec(id); err != nil {
				return err
			}
		}
		return nil
	})
}

// inTx runs fn inside a transaction, rolling back on error.
func (s *Store) inTx(fn func(tx *sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// =====================================================
// Row Scanning
// =====================================================

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProfile(row rowScanner) (*models.ChildProfile, error) {
	var p models.ChildProfile
	err := row.Scan(&p.ID, &p.Name, &p.DOB, &p.BirthTime, &p.HospitalName,
		&p.BirthLocation, &p.Gender, &p.ProfileImage, &p.Synced)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func scanProfiles(rows *sql.Rows) ([]*models.ChildProfile, error) {
	var profiles []*models.ChildProfile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

func scanMemory(row rowScanner) (*models.Memory, error) {
	var m models.Memory
	err := row.Scan(&m.ID, &m.ChildID, &m.Title, &m.Date, &m.Description,
		&m.ImageURL, &m.Tags, &m.Synced)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func scanMemories(rows *sql.Rows) ([]*models.Memory, error) {
	var memories []*models.Memory
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, err
		}
		memories = append(memories, m)
	}
	return memories, rows.Err()
}

func scanGrowth(row rowScanner) (*models.GrowthData, error) {
	var g models.GrowthData
	err := row.Scan(&g.ID, &g.ChildID, &g.Month, &g.Height, &g.Weight, &g.Synced)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func scanGrowthRows(rows *sql.Rows) ([]*models.GrowthData, error) {
	var records []*models.GrowthData
	for rows.Next() {
		g, err := scanGrowth(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, g)
	}
	return records, rows.Err()
}
