package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"mubawab-scraper/models"
)

// rawBatchSize bounds how many raw captures EachRawCapture reads per query.
const rawBatchSize = 200

// PostgresStore implements ListingStore on PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a connection, waits for the database to come up,
// runs schema setup, and returns a ready-to-use store.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	store := &PostgresStore{db: db}
	if err := store.migrate(); err != nil {
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}
	return store, nil
}

func (s *PostgresStore) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS raw_listings (
			external_id TEXT        NOT NULL,
			source      TEXT        NOT NULL,
			url         TEXT        NOT NULL,
			html        TEXT        NOT NULL,
			scraped_at  TIMESTAMPTZ NOT NULL,
			image_urls  TEXT[]      NOT NULL DEFAULT '{}',
			tier        TEXT        NOT NULL DEFAULT 'standard',
			boosted     BOOLEAN     NOT NULL DEFAULT FALSE,
			agent_type  TEXT,
			agent_name  TEXT,
			agent_url   TEXT,
			PRIMARY KEY (external_id, source)
		);

		CREATE TABLE IF NOT EXISTS normalised_listings (
			external_id      TEXT    NOT NULL,
			source           TEXT    NOT NULL,
			listing_type     TEXT    NOT NULL,
			title            TEXT,
			description      TEXT,
			property_type    TEXT,
			city             TEXT,
			area             TEXT,
			size             INTEGER,
			rooms            INTEGER,
			bedrooms         INTEGER,
			bathrooms        INTEGER,
			price            BIGINT,
			features         TEXT,
			condition        TEXT,
			age              TEXT,
			orientation      TEXT,
			flooring         TEXT,
			floor_number     INTEGER,
			number_of_floors INTEGER,
			lat              DOUBLE PRECISION,
			lon              DOUBLE PRECISION,
			url              TEXT,
			main_image_path  TEXT,
			agent_type       TEXT,
			agent_name       TEXT,
			tier             TEXT        NOT NULL DEFAULT 'standard',
			boosted          BOOLEAN     NOT NULL DEFAULT FALSE,
			updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (external_id, source)
		);

		CREATE TABLE IF NOT EXISTS listing_images (
			external_id  TEXT    NOT NULL,
			image_index  INTEGER NOT NULL,
			original_url TEXT    NOT NULL,
			storage_path TEXT,
			PRIMARY KEY (external_id, image_index)
		);

		CREATE INDEX IF NOT EXISTS idx_raw_listings_scraped_at ON raw_listings(source, scraped_at DESC);
		CREATE INDEX IF NOT EXISTS idx_normalised_city  ON normalised_listings(city);
		CREATE INDEX IF NOT EXISTS idx_normalised_price ON normalised_listings(price);
	`)
	return err
}

// SaveRawCapture upserts the latest HTML for a listing; earlier captures
// are overwritten, never appended to.
func (s *PostgresStore) SaveRawCapture(c *models.RawCapture) error {
	var agentType, agentName, agentURL *string
	if c.Agent != nil {
		t := c.Agent.Type
		agentType = &t
		agentName = c.Agent.Name
		agentURL = c.Agent.ProfileURL
	}

	_, err := s.db.Exec(`
		INSERT INTO raw_listings
			(external_id, source, url, html, scraped_at, image_urls, tier, boosted, agent_type, agent_name, agent_url)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (external_id, source) DO UPDATE SET
			url        = EXCLUDED.url,
			html       = EXCLUDED.html,
			scraped_at = EXCLUDED.scraped_at,
			image_urls = EXCLUDED.image_urls,
			tier       = EXCLUDED.tier,
			boosted    = EXCLUDED.boosted,
			agent_type = EXCLUDED.agent_type,
			agent_name = EXCLUDED.agent_name,
			agent_url  = EXCLUDED.agent_url
	`, c.ExternalID, c.Source, c.URL, c.HTML, c.CapturedAt,
		pq.Array(c.ImageURLs), c.Tier, c.Boosted, agentType, agentName, agentURL)
	if err != nil {
		return fmt.Errorf("postgres: save raw capture %s: %w", c.ExternalID, err)
	}
	return nil
}

// UpsertListing writes a normalized row keyed on (external_id, source).
func (s *PostgresStore) UpsertListing(l *models.Listing) error {
	var agentType, agentName *string
	if l.Agent != nil {
		t := l.Agent.Type
		agentType = &t
		agentName = l.Agent.Name
	}

	_, err := s.db.Exec(`
		INSERT INTO normalised_listings
			(external_id, source, listing_type, title, description, property_type,
			 city, area, size, rooms, bedrooms, bathrooms, price, features,
			 condition, age, orientation, flooring, floor_number, number_of_floors,
			 lat, lon, url, main_image_path, agent_type, agent_name, tier, boosted, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,
			$19,$20,$21,$22,$23,$24,$25,$26,$27,$28,NOW())
		ON CONFLICT (external_id, source) DO UPDATE SET
			listing_type     = EXCLUDED.listing_type,
			title            = EXCLUDED.title,
			description      = EXCLUDED.description,
			property_type    = EXCLUDED.property_type,
			city             = EXCLUDED.city,
			area             = EXCLUDED.area,
			size             = EXCLUDED.size,
			rooms            = EXCLUDED.rooms,
			bedrooms         = EXCLUDED.bedrooms,
			bathrooms        = EXCLUDED.bathrooms,
			price            = EXCLUDED.price,
			features         = EXCLUDED.features,
			condition        = EXCLUDED.condition,
			age              = EXCLUDED.age,
			orientation      = EXCLUDED.orientation,
			flooring         = EXCLUDED.flooring,
			floor_number     = EXCLUDED.floor_number,
			number_of_floors = EXCLUDED.number_of_floors,
			lat              = EXCLUDED.lat,
			lon              = EXCLUDED.lon,
			url              = EXCLUDED.url,
			main_image_path  = EXCLUDED.main_image_path,
			agent_type       = EXCLUDED.agent_type,
			agent_name       = EXCLUDED.agent_name,
			tier             = EXCLUDED.tier,
			boosted          = EXCLUDED.boosted,
			updated_at       = NOW()
	`, l.ExternalID, l.Source, l.ListingType, l.Title, l.Description, l.PropertyType,
		l.City, l.Area, l.Size, l.Rooms, l.Bedrooms, l.Bathrooms, l.Price, l.Features,
		l.Condition, l.Age, l.Orientation, l.Flooring, l.FloorNumber, l.FloorCount,
		l.Lat, l.Lon, l.URL, l.MainImagePath, agentType, agentName, l.Tier, l.Boosted)
	if err != nil {
		return fmt.Errorf("postgres: upsert listing %s: %w", l.ExternalID, err)
	}
	return nil
}

// SetMainImage patches main_image_path on an existing normalized row.
func (s *PostgresStore) SetMainImage(source, externalID, storagePath string) error {
	_, err := s.db.Exec(`
		UPDATE normalised_listings SET main_image_path = $1, updated_at = NOW()
		WHERE external_id = $2 AND source = $3
	`, storagePath, externalID, source)
	if err != nil {
		return fmt.Errorf("postgres: set main image %s: %w", externalID, err)
	}
	return nil
}

// LastExternalID returns the watermark: the external ID of the most recent
// raw capture for a source.
func (s *PostgresStore) LastExternalID(source string) (string, error) {
	var id string
	err := s.db.QueryRow(`
		SELECT external_id FROM raw_listings
		WHERE source = $1
		ORDER BY scraped_at DESC
		LIMIT 1
	`, source).Scan(&id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("postgres: last external id: %w", err)
	}
	return id, nil
}

// KnownExternalIDs returns every captured external ID for a source.
func (s *PostgresStore) KnownExternalIDs(source string) (map[string]struct{}, error) {
	rows, err := s.db.Query(`SELECT external_id FROM raw_listings WHERE source = $1`, source)
	if err != nil {
		return nil, fmt.Errorf("postgres: known external ids: %w", err)
	}
	defer rows.Close()

	known := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("postgres: scan external id: %w", err)
		}
		known[id] = struct{}{}
	}
	return known, rows.Err()
}

// GetImageRecord returns the image row for (external_id, index), nil when absent.
func (s *PostgresStore) GetImageRecord(externalID string, index int) (*models.ImageRecord, error) {
	rec := &models.ImageRecord{}
	err := s.db.QueryRow(`
		SELECT external_id, image_index, original_url, storage_path
		FROM listing_images
		WHERE external_id = $1 AND image_index = $2
	`, externalID, index).Scan(&rec.ExternalID, &rec.ImageIndex, &rec.OriginalURL, &rec.StoragePath)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get image record %s/%d: %w", externalID, index, err)
	}
	return rec, nil
}

// SaveImageRecord upserts an image row keyed on (external_id, image_index).
func (s *PostgresStore) SaveImageRecord(rec *models.ImageRecord) error {
	_, err := s.db.Exec(`
		INSERT INTO listing_images (external_id, image_index, original_url, storage_path)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (external_id, image_index) DO UPDATE SET
			original_url = EXCLUDED.original_url,
			storage_path = EXCLUDED.storage_path
	`, rec.ExternalID, rec.ImageIndex, rec.OriginalURL, rec.StoragePath)
	if err != nil {
		return fmt.Errorf("postgres: save image record %s/%d: %w", rec.ExternalID, rec.ImageIndex, err)
	}
	return nil
}

// GetRawCapture returns the stored capture for one listing, nil when absent.
func (s *PostgresStore) GetRawCapture(source, externalID string) (*models.RawCapture, error) {
	c := &models.RawCapture{}
	var agentType, agentName, agentURL *string
	err := s.db.QueryRow(`
		SELECT external_id, source, url, html, scraped_at, image_urls, tier, boosted,
			agent_type, agent_name, agent_url
		FROM raw_listings
		WHERE source = $1 AND external_id = $2
	`, source, externalID).Scan(&c.ExternalID, &c.Source, &c.URL, &c.HTML,
		&c.CapturedAt, pq.Array(&c.ImageURLs), &c.Tier, &c.Boosted,
		&agentType, &agentName, &agentURL)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get raw capture %s: %w", externalID, err)
	}
	c.Agent = agentFromColumns(agentType, agentName, agentURL)
	return c, nil
}

// EachRawCapture streams raw captures for a source ordered by external_id,
// reading in batches so the whole table never sits in memory at once.
func (s *PostgresStore) EachRawCapture(source string, fn func(*models.RawCapture) error) error {
	lastID := ""
	for {
		rows, err := s.db.Query(`
			SELECT external_id, source, url, html, scraped_at, image_urls, tier, boosted,
				agent_type, agent_name, agent_url
			FROM raw_listings
			WHERE source = $1 AND external_id > $2
			ORDER BY external_id
			LIMIT $3
		`, source, lastID, rawBatchSize)
		if err != nil {
			return fmt.Errorf("postgres: fetch raw batch after %q: %w", lastID, err)
		}

		batch := make([]*models.RawCapture, 0, rawBatchSize)
		for rows.Next() {
			c := &models.RawCapture{}
			var agentType, agentName, agentURL *string
			if err := rows.Scan(&c.ExternalID, &c.Source, &c.URL, &c.HTML,
				&c.CapturedAt, pq.Array(&c.ImageURLs), &c.Tier, &c.Boosted,
				&agentType, &agentName, &agentURL); err != nil {
				rows.Close()
				return fmt.Errorf("postgres: scan raw capture: %w", err)
			}
			c.Agent = agentFromColumns(agentType, agentName, agentURL)
			batch = append(batch, c)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return err
		}
		rows.Close()

		for _, c := range batch {
			if err := fn(c); err != nil {
				return err
			}
		}

		if len(batch) < rawBatchSize {
			return nil
		}
		lastID = batch[len(batch)-1].ExternalID
	}
}

// MissingNormalizedIDs lists external IDs captured raw but never normalized.
func (s *PostgresStore) MissingNormalizedIDs(source string) ([]string, error) {
	rows, err := s.db.Query(`
		SELECT r.external_id
		FROM raw_listings r
		LEFT JOIN normalised_listings n
			ON n.external_id = r.external_id AND n.source = r.source
		WHERE r.source = $1 AND n.external_id IS NULL
		ORDER BY r.external_id
	`, source)
	if err != nil {
		return nil, fmt.Errorf("postgres: missing normalized ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("postgres: scan missing id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DeleteListings removes all normalized rows for a source. Raw captures
// are untouched; a rebuild follows this call.
func (s *PostgresStore) DeleteListings(source string) error {
	_, err := s.db.Exec(`DELETE FROM normalised_listings WHERE source = $1`, source)
	if err != nil {
		return fmt.Errorf("postgres: delete listings for %s: %w", source, err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// agentFromColumns reassembles an AgentInfo from its nullable columns.
func agentFromColumns(agentType, agentName, agentURL *string) *models.AgentInfo {
	if agentType == nil {
		return nil
	}
	return &models.AgentInfo{Type: *agentType, Name: agentName, ProfileURL: agentURL}
}
