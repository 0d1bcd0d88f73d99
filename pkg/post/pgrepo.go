package post

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v4/stdlib"
)

const pgSchema = `
CREATE TABLE IF NOT EXISTS posts (
	date       TEXT    NOT NULL,
	rank       INTEGER NOT NULL,
	title      TEXT    NOT NULL,
	author     TEXT    NOT NULL,
	created_at TEXT    NOT NULL,
	upvotes    INTEGER NOT NULL DEFAULT 0,
	awards     INTEGER NOT NULL DEFAULT 0,
	url        TEXT    NOT NULL,
	media_type TEXT    NOT NULL DEFAULT '',
	gif_url    TEXT    NOT NULL DEFAULT '',
	video_url  TEXT    NOT NULL DEFAULT '',
	PRIMARY KEY (date, rank)
)`

const pgUpsert = `INSERT INTO posts
	(date, rank, title, author, created_at, upvotes, awards, url, media_type, gif_url, video_url)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (date, rank) DO UPDATE SET
	title = excluded.title,
	author = excluded.author,
	created_at = excluded.created_at,
	upvotes = excluded.upvotes,
	awards = excluded.awards,
	url = excluded.url,
	media_type = excluded.media_type,
	gif_url = excluded.gif_url,
	video_url = excluded.video_url`

// PgRepo is the PostgreSQL flavour of Store.
type PgRepo struct {
	db *sql.DB
}

func NewPgRepo(db *sql.DB) *PgRepo {
	return &PgRepo{
		db: db,
	}
}

func (r *PgRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, pgSchema); err != nil {
		return fmt.Errorf("post/pgrepo: failed creating schema: %w", err)
	}
	return nil
}

func (r *PgRepo) ByDate(ctx context.Context, date string) ([]*Post, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT date, rank, title, author, created_at, upvotes, awards, url, media_type, gif_url, video_url FROM posts WHERE date = $1 ORDER BY rank",
		date)
	if err != nil {
		return nil, fmt.Errorf("post/pgrepo: failed querying posts: %w", err)
	}
	defer rows.Close()

	posts := []*Post{}
	for rows.Next() {
		p := new(Post)
		var mediaType string
		err := rows.Scan(&p.Date, &p.Rank, &p.Title, &p.Author, &p.CreatedAt,
			&p.Upvotes, &p.Awards, &p.URL, &mediaType, &p.GifURL, &p.VideoURL)
		if err != nil {
			return nil, fmt.Errorf("post/pgrepo: could not scan row: %w", err)
		}
		p.MediaType = MediaType(mediaType)
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("post/pgrepo: failed iterating rows: %w", err)
	}
	return posts, nil
}

// SaveAll writes the batch in one transaction.
func (r *PgRepo) SaveAll(ctx context.Context, posts []*Post) error {
	if len(posts) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("post/pgrepo: failed starting transaction: %w", err)
	}
	defer tx.Rollback()

	for _, p := range posts {
		_, err := tx.ExecContext(ctx, pgUpsert,
			p.Date, p.Rank, p.Title, p.Author, p.CreatedAt, p.Upvotes, p.Awards,
			p.URL, string(p.MediaType), p.GifURL, p.VideoURL)
		if err != nil {
			return fmt.Errorf("post/pgrepo: failed saving post %s/%d: %w", p.Date, p.Rank, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("post/pgrepo: failed committing posts: %w", err)
	}
	return nil
}
