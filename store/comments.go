package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jonwraymond/blockpress/hooks"
)

// Comment is a row of the comments table.
type Comment struct {
	ID       int64     `json:"id"`
	PostID   int64     `json:"post"`
	Author   string    `json:"author_name"`
	Date     time.Time `json:"date_gmt"`
	Content  string    `json:"content"`
	Approved string    `json:"status"`
	Parent   int64     `json:"parent"`
	UserID   int64     `json:"author"`
}

// InsertComment stores c and bumps the post's comment count.
func (s *Store) InsertComment(ctx context.Context, c *Comment) (int64, error) {
	if c == nil || c.PostID <= 0 {
		return 0, fmt.Errorf("%w: comment needs a post", ErrInvalid)
	}
	if c.Approved == "" {
		c.Approved = "1"
	}

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `INSERT INTO comments
			(comment_post_id, comment_author, comment_date_gmt, comment_content, comment_approved, comment_parent, user_id)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			c.PostID, c.Author, formatTime(c.Date), c.Content, c.Approved, c.Parent, c.UserID)
		if err != nil {
			return fmt.Errorf("store: insert comment: %w", err)
		}
		if c.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("store: insert comment: %w", err)
		}
		return recountComments(ctx, tx, c.PostID)
	})
	if err != nil {
		return 0, err
	}

	s.hooks.CommentChanged.Do(ctx, hooks.CommentEvent{ID: c.ID, PostID: c.PostID})
	return c.ID, nil
}

// DeleteComment removes a comment and reparents its replies.
func (s *Store) DeleteComment(ctx context.Context, id int64) error {
	var postID, parent int64
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx,
			`SELECT comment_post_id, comment_parent FROM comments WHERE comment_id = ?`, id).Scan(&postID, &parent)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("store: comment %d: %w", id, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("store: get comment %d: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE comments SET comment_parent = ? WHERE comment_parent = ?`, parent, id); err != nil {
			return fmt.Errorf("store: reparent comments: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM comments WHERE comment_id = ?`, id); err != nil {
			return fmt.Errorf("store: delete comment %d: %w", id, err)
		}
		return recountComments(ctx, tx, postID)
	})
	if err != nil {
		return err
	}

	s.hooks.CommentChanged.Do(ctx, hooks.CommentEvent{ID: id, PostID: postID})
	return nil
}

func recountComments(ctx context.Context, tx *sql.Tx, postID int64) error {
	_, err := tx.ExecContext(ctx, `UPDATE posts SET comment_count =
		(SELECT COUNT(*) FROM comments WHERE comment_post_id = posts.id AND comment_approved = '1')
		WHERE id = ?`, postID)
	if err != nil {
		return fmt.Errorf("store: recount comments: %w", err)
	}
	return nil
}
