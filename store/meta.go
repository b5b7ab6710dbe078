package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jonwraymond/blockpress/hooks"
)

// Meta maps meta keys to their values in insertion order.
type Meta map[string][]string

// metaTable describes a metadata table and its object column.
type metaTable struct {
	table  string
	column string
}

var (
	postMeta = metaTable{table: "postmeta", column: "post_id"}
	termMeta = metaTable{table: "termmeta", column: "term_id"}
)

// AddPostMeta appends a value under key.
func (s *Store) AddPostMeta(ctx context.Context, postID int64, key, value string) error {
	if err := s.addMeta(ctx, postMeta, postID, key, value); err != nil {
		return err
	}
	s.hooks.PostMetaChanged.Do(ctx, hooks.MetaEvent{ObjectID: postID, Key: key})
	return nil
}

// SetPostMeta replaces every value under key with values.
func (s *Store) SetPostMeta(ctx context.Context, postID int64, key string, values ...string) error {
	if err := s.setMeta(ctx, postMeta, postID, key, values); err != nil {
		return err
	}
	s.hooks.PostMetaChanged.Do(ctx, hooks.MetaEvent{ObjectID: postID, Key: key})
	return nil
}

// DeletePostMeta removes every value under key.
func (s *Store) DeletePostMeta(ctx context.Context, postID int64, key string) error {
	if err := s.setMeta(ctx, postMeta, postID, key, nil); err != nil {
		return err
	}
	s.hooks.PostMetaChanged.Do(ctx, hooks.MetaEvent{ObjectID: postID, Key: key})
	return nil
}

// GetPostMeta returns the metadata of each post. Posts without metadata
// map to an empty Meta.
func (s *Store) GetPostMeta(ctx context.Context, ids []int64) (map[int64]Meta, error) {
	return s.getMeta(ctx, postMeta, ids)
}

// SetTermMeta replaces every value under key for a term.
func (s *Store) SetTermMeta(ctx context.Context, termID int64, key string, values ...string) error {
	if err := s.setMeta(ctx, termMeta, termID, key, values); err != nil {
		return err
	}
	s.hooks.TermChanged.Do(ctx, hooks.TermEvent{TermID: termID})
	return nil
}

// GetTermMeta returns the metadata of each term.
func (s *Store) GetTermMeta(ctx context.Context, ids []int64) (map[int64]Meta, error) {
	return s.getMeta(ctx, termMeta, ids)
}

func (s *Store) addMeta(ctx context.Context, t metaTable, id int64, key, value string) error {
	if id <= 0 || key == "" {
		return fmt.Errorf("%w: meta needs an object id and key", ErrInvalid)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO `+t.table+` (`+t.column+`, meta_key, meta_value) VALUES (?, ?, ?)`, id, key, value)
	if err != nil {
		return fmt.Errorf("store: add %s: %w", t.table, err)
	}
	return nil
}

func (s *Store) setMeta(ctx context.Context, t metaTable, id int64, key string, values []string) error {
	if id <= 0 || key == "" {
		return fmt.Errorf("%w: meta needs an object id and key", ErrInvalid)
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM `+t.table+` WHERE `+t.column+` = ? AND meta_key = ?`, id, key); err != nil {
			return fmt.Errorf("store: set %s: %w", t.table, err)
		}
		for _, v := range values {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO `+t.table+` (`+t.column+`, meta_key, meta_value) VALUES (?, ?, ?)`, id, key, v); err != nil {
				return fmt.Errorf("store: set %s: %w", t.table, err)
			}
		}
		return nil
	})
}

func (s *Store) getMeta(ctx context.Context, t metaTable, ids []int64) (map[int64]Meta, error) {
	out := make(map[int64]Meta, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	for _, id := range ids {
		out[id] = Meta{}
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+t.column+`, meta_key, meta_value FROM `+t.table+
			` WHERE `+t.column+` IN (`+placeholders(len(ids))+`) ORDER BY meta_id`, int64Args(ids)...)
	if err != nil {
		return nil, fmt.Errorf("store: get %s: %w", t.table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id         int64
			key, value sql.NullString
		)
		if err := rows.Scan(&id, &key, &value); err != nil {
			return nil, fmt.Errorf("store: scan %s: %w", t.table, err)
		}
		m := out[id]
		m[key.String] = append(m[key.String], value.String)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: get %s: %w", t.table, err)
	}
	return out, nil
}
