package remote

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"github.com/kimhsiao/littlemoments/backend/internal/models"
)

// Compile-time contract assertion.
var _ Client = (*PostgresClient)(nil)

// PostgresClient talks to the hosted Postgres backend through the pgx
// stdlib driver. Column names are the quoted camelCase identifiers of the
// hosted schema.
type PostgresClient struct {
	db *sql.DB
}

// Open connects to the remote store using the given DSN. An empty DSN
// returns an unconfigured client whose Configured() is false; this is not
// an error, it just disables sync.
func Open(dsn string) (*PostgresClient, error) {
	if dsn == "" {
		return &PostgresClient{}, nil
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open remote store: %w", err)
	}
	return &PostgresClient{db: db}, nil
}

// NewPostgresClient wraps an existing connection, used by tests and by
// callers that manage the pool themselves.
func NewPostgresClient(db *sql.DB) *PostgresClient {
	return &PostgresClient{db: db}
}

// Configured implements Client.
func (c *PostgresClient) Configured() bool {
	return c != nil && c.db != nil
}

// Ping implements Client.
func (c *PostgresClient) Ping(ctx context.Context) error {
	if !c.Configured() {
		return fmt.Errorf("remote store not configured")
	}
	return c.db.PingContext(ctx)
}

// Close closes the underlying connection pool.
func (c *PostgresClient) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

// =====================================================
// Upserts (push phase)
// =====================================================

// UpsertProfiles implements Client. Conflict target is the primary key.
func (c *PostgresClient) UpsertProfiles(ctx context.Context, profiles []*models.ChildProfile) error {
	query := `
	INSERT INTO child_profile (id, name, dob, "birthTime", "hospitalName", "birthLocation", gender, "profileImage")
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (id) DO UPDATE SET
		name = EXCLUDED.name,
		dob = EXCLUDED.dob,
		"birthTime" = EXCLUDED."birthTime",
		"hospitalName" = EXCLUDED."hospitalName",
		"birthLocation" = EXCLUDED."birthLocation",
		gender = EXCLUDED.gender,
		"profileImage" = EXCLUDED."profileImage"
	`
	for _, p := range profiles {
		_, err := c.db.ExecContext(ctx, query, p.ID, p.Name, p.DOB, p.BirthTime,
			p.HospitalName, p.BirthLocation, p.Gender, p.ProfileImage)
		if err != nil {
			return fmt.Errorf("upsert profile %s: %w", p.ID, err)
		}
	}
	return nil
}

// UpsertMemories implements Client. Conflict target is the primary key.
func (c *PostgresClient) UpsertMemories(ctx context.Context, memories []*models.Memory) error {
	query := `
	INSERT INTO memories (id, "childId", title, date, description, "imageUrl", tags)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (id) DO UPDATE SET
		"childId" = EXCLUDED."childId",
		title = EXCLUDED.title,
		date = EXCLUDED.date,
		description = EXCLUDED.description,
		"imageUrl" = EXCLUDED."imageUrl",
		tags = EXCLUDED.tags
	`
	for _, m := range memories {
		_, err := c.db.ExecContext(ctx, query, m.ID, m.ChildID, m.Title, m.Date,
			m.Description, m.ImageURL, m.Tags)
		if err != nil {
			return fmt.Errorf("upsert memory %s: %w", m.ID, err)
		}
	}
	return nil
}

// UpsertGrowth implements Client. The conflict target is the composite
// ("childId", month), not id alone: two growth entries for the same child
// and month must collapse to one remote row.
func (c *PostgresClient) UpsertGrowth(ctx context.Context, records []*models.GrowthData) error {
	query := `
	INSERT INTO growth_data (id, "childId", month, height, weight)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT ("childId", month) DO UPDATE SET
		id = EXCLUDED.id,
		height = EXCLUDED.height,
		weight = EXCLUDED.weight
	`
	for _, g := range records {
		_, err := c.db.ExecContext(ctx, query, g.ID, g.ChildID, g.Month, g.Height, g.Weight)
		if err != nil {
			return fmt.Errorf("upsert growth %s: %w", g.ID, err)
		}
	}
	return nil
}

// =====================================================
// Fetches (pull phase)
// =====================================================

// FetchProfiles implements Client.
func (c *PostgresClient) FetchProfiles(ctx context.Context) ([]*models.ChildProfile, error) {
	query := `SELECT id, name, dob, "birthTime", "hospitalName", "birthLocation", gender, "profileImage" FROM child_profile`
	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("fetch profiles: %w", err)
	}
	defer rows.Close()

	var profiles []*models.ChildProfile
	for rows.Next() {
		var p models.ChildProfile
		var birthTime, hospitalName, birthLocation, profileImage sql.NullString
		err := rows.Scan(&p.ID, &p.Name, &p.DOB, &birthTime, &hospitalName,
			&birthLocation, &p.Gender, &profileImage)
		if err != nil {
			return nil, err
		}
		p.BirthTime = birthTime.String
		p.HospitalName = hospitalName.String
		p.BirthLocation = birthLocation.String
		p.ProfileImage = profileImage.String
		profiles = append(profiles, &p)
	}
	return profiles, rows.Err()
}

// FetchMemories implements Client.
func (c *PostgresClient) FetchMemories(ctx context.Context) ([]*models.Memory, error) {
	query := `SELECT id, "childId", title, date, description, "imageUrl", tags FROM memories`
	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("fetch memories: %w", err)
	}
	defer rows.Close()

	var memories []*models.Memory
	for rows.Next() {
		var m models.Memory
		var description, imageURL sql.NullString
		err := rows.Scan(&m.ID, &m.ChildID, &m.Title, &m.Date, &description,
			&imageURL, &m.Tags)
		if err != nil {
			return nil, err
		}
		m.Description = description.String
		m.ImageURL = imageURL.String
		memories = append(memories, &m)
	}
	return memories, rows.Err()
}

// FetchGrowth implements Client.
func (c *PostgresClient) FetchGrowth(ctx context.Context) ([]*models.GrowthData, error) {
	query := `SELECT id, "childId", month, height, weight FROM growth_data`
	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("fetch growth: %w", err)
	}
	defer rows.Close()

	var records []*models.GrowthData
	for rows.Next() {
		var g models.GrowthData
		if err := rows.Scan(&g.ID, &g.ChildID, &g.Month, &g.Height, &g.Weight); err != nil {
			return nil, err
		}
		records = append(records, &g)
	}
	return records, rows.Err()
}

// =====================================================
// Deletes (best-effort, from the facade)
// =====================================================

// DeleteProfile implements Client.
func (c *PostgresClient) DeleteProfile(ctx context.Context, id string) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM child_profile WHERE id = $1`, id)
	return err
}

// DeleteMemory implements Client.
func (c *PostgresClient) DeleteMemory(ctx context.Context, id string) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM memories WHERE id = $1`, id)
	return err
}

// DeleteGrowth implements Client.
func (c *PostgresClient) DeleteGrowth(ctx context.Context, id string) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM growth_data WHERE id = $1`, id)
	return err
}

// DeleteMemoriesByChild implements Client.
func (c *PostgresClient) DeleteMemoriesByChild(ctx context.Context, childID string) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM memories WHERE "childId" = $1`, childID)
	return err
}

// DeleteGrowthByChild implements Client.
func (c *PostgresClient) DeleteGrowthByChild(ctx context.Context, childID string) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM growth_data WHERE "childId" = $1`, childID)
	return err
}
