package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/jonwraymond/blockpress/auth"
	"github.com/jonwraymond/blockpress/observe"
	"github.com/jonwraymond/blockpress/store"
)

// PostLookup adapts st to the authorizer's post lookup. Missing posts
// yield (nil, nil).
func PostLookup(st *store.Store) auth.PostLookup {
	return func(ctx context.Context, id int64) (*auth.PostInfo, error) {
		p, err := st.GetPost(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return &auth.PostInfo{ID: p.ID, Author: p.Author, Type: p.Type, Status: p.Status}, nil
	}
}

// postIDParam reads the {id} route parameter; invalid IDs become 0.
func postIDParam(r *http.Request) int64 {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 0 {
		return 0
	}
	return id
}

// authorize checks capability for the request identity and writes the
// rejection itself: 401 for visitors, 403 for users lacking it.
func (s *Server) authorize(w http.ResponseWriter, r *http.Request, capability string, objectID int64) bool {
	id := auth.IdentityFromContext(r.Context())
	err := s.deps.Authorizer.Authorize(r.Context(), &auth.AuthzRequest{
		Subject:    id,
		Capability: capability,
		ObjectID:   objectID,
	})
	switch {
	case err == nil:
		return true
	case !errors.Is(err, auth.ErrForbidden):
		s.logger.Error(r.Context(), "authorization failed", observe.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusInternalServerError, "authz_internal", "Authorization failed.")
	case id.IsAnonymous():
		writeError(w, http.StatusUnauthorized, "rest_forbidden", "Sorry, you are not allowed to do that.")
	default:
		writeError(w, http.StatusForbidden, "rest_forbidden", "Sorry, you are not allowed to do that.")
	}
	return false
}
