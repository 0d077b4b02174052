package recipe

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteCatalog implements Provider backed by a SQLite database.
// Recipe documents are stored as JSON; the catalog seeds the sample
// recipes on first open so a fresh install has something to cook.
type SQLiteCatalog struct {
	db *sql.DB
}

// NewSQLite opens (creating if needed) a SQLite-backed catalog.
func NewSQLite(dbPath string) (*SQLiteCatalog, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	c := &SQLiteCatalog{db: db}
	if err := c.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	if err := c.seed(); err != nil {
		return nil, fmt.Errorf("seed catalog: %w", err)
	}

	return c, nil
}

func (c *SQLiteCatalog) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS recipes (
		recipe_id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		document TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);`
	_, err := c.db.Exec(query)
	return err
}

// seed inserts the sample recipes if they are not already present.
func (c *SQLiteCatalog) seed() error {
	for _, r := range SampleRecipes() {
		doc, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("marshal recipe %s: %w", r.ID, err)
		}
		_, err = c.db.Exec(
			`INSERT OR IGNORE INTO recipes (recipe_id, name, document, created_at) VALUES (?, ?, ?, ?)`,
			r.ID, r.Name, string(doc), time.Now().Unix(),
		)
		if err != nil {
			return fmt.Errorf("insert recipe %s: %w", r.ID, err)
		}
	}
	return nil
}

// Get returns the recipe with the given ID.
func (c *SQLiteCatalog) Get(id string) (*Recipe, error) {
	var doc string
	err := c.db.QueryRow(`SELECT document FROM recipes WHERE recipe_id = ?`, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query recipe: %w", err)
	}

	var r Recipe
	if err := json.Unmarshal([]byte(doc), &r); err != nil {
		return nil, fmt.Errorf("decode recipe %s: %w", id, err)
	}
	return &r, nil
}

// List returns all recipes ordered by ID.
func (c *SQLiteCatalog) List() ([]*Recipe, error) {
	rows, err := c.db.Query(`SELECT document FROM recipes ORDER BY recipe_id`)
	if err != nil {
		return nil, fmt.Errorf("query recipes: %w", err)
	}
	defer rows.Close()

	var out []*Recipe
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan recipe: %w", err)
		}
		var r Recipe
		if err := json.Unmarshal([]byte(doc), &r); err != nil {
			return nil, fmt.Errorf("decode recipe: %w", err)
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

// Put inserts or replaces a recipe.
func (c *SQLiteCatalog) Put(r *Recipe) error {
	doc, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal recipe: %w", err)
	}
	_, err = c.db.Exec(
		`INSERT INTO recipes (recipe_id, name, document, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(recipe_id) DO UPDATE SET name = excluded.name, document = excluded.document`,
		r.ID, r.Name, string(doc), time.Now().Unix(),
	)
	return err
}

// Close closes the underlying database.
func (c *SQLiteCatalog) Close() error {
	return c.db.Close()
}

var _ Provider = (*SQLiteCatalog)(nil)
