package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jonwraymond/blockpress/hooks"
)

// Term is a term joined with its taxonomy row.
type Term struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Group       int64  `json:"term_group"`
	TaxonomyID  int64  `json:"term_taxonomy_id"`
	Taxonomy    string `json:"taxonomy"`
	Description string `json:"description"`
	Parent      int64  `json:"parent"`
	Count       int64  `json:"count"`
	// ObjectID is set by term queries that join relationships.
	ObjectID int64 `json:"object_id,omitempty"`
}

// TermColumns lists the term columns in the order ScanTerm reads them.
const TermColumns = "t.term_id, t.name, t.slug, t.term_group, tt.term_taxonomy_id, tt.taxonomy, " +
	"tt.description, tt.parent, tt.count"

// ScanTerm scans a row selected with TermColumns, followed by the extra
// destinations.
func ScanTerm(row Scanner, extra ...any) (*Term, error) {
	var t Term
	dest := append([]any{&t.ID, &t.Name, &t.Slug, &t.Group, &t.TaxonomyID, &t.Taxonomy,
		&t.Description, &t.Parent, &t.Count}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return &t, nil
}

// InsertTerm stores a term in a taxonomy and sets its IDs.
func (s *Store) InsertTerm(ctx context.Context, t *Term) (int64, error) {
	if t == nil || t.Name == "" || t.Taxonomy == "" {
		return 0, fmt.Errorf("%w: term needs a name and taxonomy", ErrInvalid)
	}
	if t.Slug == "" {
		t.Slug = Slugify(t.Name)
	}

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO terms (name, slug, term_group) VALUES (?, ?, ?)`, t.Name, t.Slug, t.Group)
		if err != nil {
			return fmt.Errorf("store: insert term: %w", err)
		}
		if t.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("store: insert term: %w", err)
		}
		res, err = tx.ExecContext(ctx,
			`INSERT INTO term_taxonomy (term_id, taxonomy, description, parent, count) VALUES (?, ?, ?, ?, 0)`,
			t.ID, t.Taxonomy, t.Description, t.Parent)
		if err != nil {
			return fmt.Errorf("store: insert term taxonomy: %w", err)
		}
		t.TaxonomyID, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return 0, err
	}

	s.hooks.TermChanged.Do(ctx, hooks.TermEvent{TermID: t.ID, Taxonomy: t.Taxonomy})
	return t.ID, nil
}

// GetTerm returns a term in a taxonomy.
func (s *Store) GetTerm(ctx context.Context, termID int64, taxonomy string) (*Term, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+TermColumns+`
		FROM terms AS t INNER JOIN term_taxonomy AS tt ON t.term_id = tt.term_id
		WHERE t.term_id = ? AND tt.taxonomy = ?`, termID, taxonomy)
	t, err := ScanTerm(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("store: term %d in %s: %w", termID, taxonomy, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get term: %w", err)
	}
	return t, nil
}

// DeleteTerm removes a term from a taxonomy, detaching it from every
// object. The term row itself goes once no taxonomy uses it.
func (s *Store) DeleteTerm(ctx context.Context, termID int64, taxonomy string) error {
	t, err := s.GetTerm(ctx, termID, taxonomy)
	if err != nil {
		return err
	}

	var objects []int64
	err = s.inTx(ctx, func(tx *sql.Tx) error {
		objects, err = txInt64s(ctx, tx,
			`SELECT object_id FROM term_relationships WHERE term_taxonomy_id = ?`, t.TaxonomyID)
		if err != nil {
			return err
		}
		stmts := []struct {
			q   string
			arg int64
		}{
			{`DELETE FROM term_relationships WHERE term_taxonomy_id = ?`, t.TaxonomyID},
			{`DELETE FROM term_taxonomy WHERE term_taxonomy_id = ?`, t.TaxonomyID},
			{`UPDATE term_taxonomy SET parent = 0 WHERE parent = ?`, termID},
			{`DELETE FROM terms WHERE term_id = ? AND NOT EXISTS
				(SELECT 1 FROM term_taxonomy WHERE term_taxonomy.term_id = terms.term_id)`, termID},
			{`DELETE FROM termmeta WHERE term_id = ? AND NOT EXISTS
				(SELECT 1 FROM terms WHERE terms.term_id = termmeta.term_id)`, termID},
		}
		for _, st := range stmts {
			if _, err := tx.ExecContext(ctx, st.q, st.arg); err != nil {
				return fmt.Errorf("store: delete term %d: %w", termID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.hooks.TermChanged.Do(ctx, hooks.TermEvent{TermID: termID, Taxonomy: taxonomy})
	for _, obj := range objects {
		s.hooks.ObjectTermsChanged.Do(ctx, hooks.ObjectTermsEvent{ObjectID: obj, Taxonomy: taxonomy})
	}
	return nil
}

// SetObjectTerms replaces the object's terms in taxonomy with termIDs,
// keeping their order, and refreshes term counts.
func (s *Store) SetObjectTerms(ctx context.Context, objectID int64, taxonomy string, termIDs []int64) error {
	if objectID <= 0 || taxonomy == "" {
		return fmt.Errorf("%w: object terms need an object id and taxonomy", ErrInvalid)
	}

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		old, err := txInt64s(ctx, tx, `SELECT tr.term_taxonomy_id FROM term_relationships AS tr
			INNER JOIN term_taxonomy AS tt ON tr.term_taxonomy_id = tt.term_taxonomy_id
			WHERE tr.object_id = ? AND tt.taxonomy = ?`, objectID, taxonomy)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM term_relationships WHERE object_id = ? AND term_taxonomy_id IN
			(SELECT term_taxonomy_id FROM term_taxonomy WHERE taxonomy = ?)`, objectID, taxonomy); err != nil {
			return fmt.Errorf("store: clear object terms: %w", err)
		}

		touched := old
		for order, termID := range termIDs {
			var ttID int64
			err := tx.QueryRowContext(ctx,
				`SELECT term_taxonomy_id FROM term_taxonomy WHERE term_id = ? AND taxonomy = ?`,
				termID, taxonomy).Scan(&ttID)
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("store: term %d in %s: %w", termID, taxonomy, ErrNotFound)
			}
			if err != nil {
				return fmt.Errorf("store: resolve term %d: %w", termID, err)
			}
			if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO term_relationships
				(object_id, term_taxonomy_id, term_order) VALUES (?, ?, ?)`, objectID, ttID, order); err != nil {
				return fmt.Errorf("store: set object terms: %w", err)
			}
			touched = append(touched, ttID)
		}
		return recountTerms(ctx, tx, touched)
	})
	if err != nil {
		return err
	}

	s.hooks.ObjectTermsChanged.Do(ctx, hooks.ObjectTermsEvent{
		ObjectID: objectID,
		Taxonomy: taxonomy,
		TermIDs:  append([]int64(nil), termIDs...),
	})
	return nil
}

func recountTerms(ctx context.Context, tx *sql.Tx, ttIDs []int64) error {
	if len(ttIDs) == 0 {
		return nil
	}
	_, err := tx.ExecContext(ctx, `UPDATE term_taxonomy SET count =
		(SELECT COUNT(*) FROM term_relationships AS tr WHERE tr.term_taxonomy_id = term_taxonomy.term_taxonomy_id)
		WHERE term_taxonomy_id IN (`+placeholders(len(ttIDs))+`)`, int64Args(ttIDs)...)
	if err != nil {
		return fmt.Errorf("store: recount terms: %w", err)
	}
	return nil
}
