package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/jonwraymond/blockpress/hooks"
)

// Post is a row of the posts table.
type Post struct {
	ID            int64     `json:"id"`
	Author        int64     `json:"author"`
	Date          time.Time `json:"date_gmt"`
	Content       string    `json:"content"`
	Title         string    `json:"title"`
	Excerpt       string    `json:"excerpt"`
	Status        string    `json:"status"`
	CommentStatus string    `json:"comment_status"`
	Name          string    `json:"slug"`
	Modified      time.Time `json:"modified_gmt"`
	Parent        int64     `json:"parent"`
	MenuOrder     int64     `json:"menu_order"`
	Type          string    `json:"type"`
	CommentCount  int64     `json:"comment_count"`
}

// PostColumns lists the posts columns in the order scanPost reads them.
const PostColumns = "posts.id, posts.post_author, posts.post_date_gmt, posts.post_content, posts.post_title, " +
	"posts.post_excerpt, posts.post_status, posts.comment_status, posts.post_name, posts.post_modified_gmt, " +
	"posts.post_parent, posts.menu_order, posts.post_type, posts.comment_count"

// Scanner is implemented by *sql.Row and *sql.Rows.
type Scanner interface {
	Scan(dest ...any) error
}

// ScanPost scans a row selected with PostColumns.
func ScanPost(row Scanner) (*Post, error) {
	var (
		p             Post
		date, modDate string
	)
	err := row.Scan(&p.ID, &p.Author, &date, &p.Content, &p.Title, &p.Excerpt, &p.Status,
		&p.CommentStatus, &p.Name, &modDate, &p.Parent, &p.MenuOrder, &p.Type, &p.CommentCount)
	if err != nil {
		return nil, err
	}
	p.Date = parseTime(date)
	p.Modified = parseTime(modDate)
	return &p, nil
}

func (p *Post) applyDefaults() {
	if p.Type == "" {
		p.Type = "post"
	}
	if p.Status == "" {
		p.Status = "draft"
	}
	if p.CommentStatus == "" {
		p.CommentStatus = "open"
	}
	if p.Name == "" {
		p.Name = Slugify(p.Title)
	}
	if p.Date.IsZero() {
		p.Date = time.Now().UTC().Truncate(time.Second)
	}
	p.Modified = time.Now().UTC().Truncate(time.Second)
}

func (p *Post) event() hooks.PostEvent {
	return hooks.PostEvent{ID: p.ID, PostType: p.Type, Status: p.Status, Author: p.Author}
}

// InsertPost stores p, assigning its ID and defaults.
func (s *Store) InsertPost(ctx context.Context, p *Post) (int64, error) {
	if p == nil {
		return 0, fmt.Errorf("%w: nil post", ErrInvalid)
	}
	p.applyDefaults()

	res, err := s.db.ExecContext(ctx, `INSERT INTO posts
		(post_author, post_date_gmt, post_content, post_title, post_excerpt, post_status, comment_status,
		 post_name, post_modified_gmt, post_parent, menu_order, post_type, comment_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0)`,
		p.Author, formatTime(p.Date), p.Content, p.Title, p.Excerpt, p.Status, p.CommentStatus,
		p.Name, formatTime(p.Modified), p.Parent, p.MenuOrder, p.Type)
	if err != nil {
		return 0, fmt.Errorf("store: insert post: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("store: insert post: %w", err)
	}
	p.ID = id

	s.hooks.PostSaved.Do(ctx, p.event())
	return id, nil
}

// UpdatePost overwrites the stored row for p.ID.
func (s *Store) UpdatePost(ctx context.Context, p *Post) error {
	if p == nil || p.ID <= 0 {
		return fmt.Errorf("%w: post without id", ErrInvalid)
	}
	p.applyDefaults()

	res, err := s.db.ExecContext(ctx, `UPDATE posts SET
		post_author = ?, post_date_gmt = ?, post_content = ?, post_title = ?, post_excerpt = ?,
		post_status = ?, comment_status = ?, post_name = ?, post_modified_gmt = ?, post_parent = ?,
		menu_order = ?, post_type = ?
		WHERE id = ?`,
		p.Author, formatTime(p.Date), p.Content, p.Title, p.Excerpt, p.Status, p.CommentStatus,
		p.Name, formatTime(p.Modified), p.Parent, p.MenuOrder, p.Type, p.ID)
	if err != nil {
		return fmt.Errorf("store: update post %d: %w", p.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("store: post %d: %w", p.ID, ErrNotFound)
	}

	s.hooks.PostSaved.Do(ctx, p.event())
	return nil
}

// DeletePost removes a post with its metadata, term relationships and
// comments.
func (s *Store) DeletePost(ctx context.Context, id int64) error {
	p, err := s.GetPost(ctx, id)
	if err != nil {
		return err
	}

	var ttIDs []int64
	err = s.inTx(ctx, func(tx *sql.Tx) error {
		ttIDs, err = txInt64s(ctx, tx, `SELECT term_taxonomy_id FROM term_relationships WHERE object_id = ?`, id)
		if err != nil {
			return err
		}
		stmts := []string{
			`DELETE FROM postmeta WHERE post_id = ?`,
			`DELETE FROM term_relationships WHERE object_id = ?`,
			`DELETE FROM comments WHERE comment_post_id = ?`,
			`DELETE FROM posts WHERE id = ?`,
		}
		for _, q := range stmts {
			if _, err := tx.ExecContext(ctx, q, id); err != nil {
				return fmt.Errorf("store: delete post %d: %w", id, err)
			}
		}
		return recountTerms(ctx, tx, ttIDs)
	})
	if err != nil {
		return err
	}

	s.hooks.PostDeleted.Do(ctx, p.event())
	if len(ttIDs) > 0 {
		s.hooks.ObjectTermsChanged.Do(ctx, hooks.ObjectTermsEvent{ObjectID: id})
	}
	return nil
}

// GetPost returns one post.
func (s *Store) GetPost(ctx context.Context, id int64) (*Post, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+PostColumns+` FROM posts WHERE id = ?`, id)
	p, err := ScanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("store: post %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get post %d: %w", id, err)
	}
	return p, nil
}

// GetPosts returns the posts with the given IDs in the order of ids.
// Missing IDs are skipped.
func (s *Store) GetPosts(ctx context.Context, ids []int64) ([]*Post, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+PostColumns+` FROM posts WHERE id IN (`+placeholders(len(ids))+`)`, int64Args(ids)...)
	if err != nil {
		return nil, fmt.Errorf("store: get posts: %w", err)
	}
	defer rows.Close()

	byID := make(map[int64]*Post, len(ids))
	for rows.Next() {
		p, err := ScanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan post: %w", err)
		}
		byID[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: get posts: %w", err)
	}

	out := make([]*Post, 0, len(byID))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// Slugify lowercases s and joins its alphanumeric runs with dashes.
func Slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			dash = false
			b.WriteRune(r)
			continue
		}
		dash = true
	}
	return b.String()
}

func txInt64s(ctx context.Context, tx *sql.Tx, q string, args ...any) ([]int64, error) {
	rows, err := tx.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query: %w", err)
	}
	defer rows.Close()
	var out []int64
	for rows.Next() {
		var v int64
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("store: scan: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
