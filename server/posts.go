package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jonwraymond/blockpress/auth"
	"github.com/jonwraymond/blockpress/query"
	"github.com/jonwraymond/blockpress/store"
)

const maxPerPage = 100

type renderedField struct {
	Rendered string `json:"rendered"`
	Raw      string `json:"raw,omitempty"`
}

// postJSON is the REST representation of a post.
type postJSON struct {
	ID            int64         `json:"id"`
	Date          time.Time     `json:"date_gmt"`
	Modified      time.Time     `json:"modified_gmt"`
	Slug          string        `json:"slug"`
	Status        string        `json:"status"`
	Type          string        `json:"type"`
	Author        int64         `json:"author"`
	Parent        int64         `json:"parent"`
	MenuOrder     int64         `json:"menu_order"`
	CommentStatus string        `json:"comment_status"`
	Title         renderedField `json:"title"`
	Content       renderedField `json:"content"`
	Excerpt       renderedField `json:"excerpt"`
}

// postJSON renders p's content through a fresh pipeline. Raw fields are
// included when edit is set.
func (s *Server) postJSON(ctx context.Context, p *store.Post, edit bool) (postJSON, error) {
	content, err := s.renderContent(ctx, p.Content)
	if err != nil {
		return postJSON{}, err
	}
	out := postJSON{
		ID:            p.ID,
		Date:          p.Date,
		Modified:      p.Modified,
		Slug:          p.Name,
		Status:        p.Status,
		Type:          p.Type,
		Author:        p.Author,
		Parent:        p.Parent,
		MenuOrder:     p.MenuOrder,
		CommentStatus: p.CommentStatus,
		Title:         renderedField{Rendered: p.Title},
		Content:       renderedField{Rendered: content},
		Excerpt:       renderedField{Rendered: p.Excerpt},
	}
	if edit {
		out.Title.Raw = p.Title
		out.Content.Raw = p.Content
		out.Excerpt.Raw = p.Excerpt
	}
	return out, nil
}

func (s *Server) postsAvailable(w http.ResponseWriter) bool {
	if s.deps.Posts == nil || s.deps.Store == nil {
		writeError(w, http.StatusServiceUnavailable, "rest_posts_unavailable", "Posts are not available.")
		return false
	}
	return true
}

// invalidParam is a collection parameter that could not be parsed.
type invalidParam struct {
	name   string
	reason string
}

func (e *invalidParam) Error() string {
	return fmt.Sprintf("Invalid parameter: %s (%s).", e.name, e.reason)
}

// postListOrderBy maps collection orderby values to query orderby keys.
var postListOrderBy = map[string]string{
	"date":       "date",
	"modified":   "modified",
	"title":      "title",
	"slug":       "name",
	"id":         "id",
	"author":     "author",
	"parent":     "parent",
	"menu_order": "menu_order",
	"include":    "post__in",
}

// postListArgs translates collection query parameters into query args.
func postListArgs(r *http.Request) (query.PostArgs, error) {
	q := r.URL.Query()
	args := query.PostArgs{
		PostType:     []string{"post"},
		PostsPerPage: 10,
		Paged:        1,
		Search:       q.Get("search"),
		Name:         q.Get("slug"),
	}

	var err error
	if v := q.Get("page"); v != "" {
		if args.Paged, err = strconv.Atoi(v); err != nil || args.Paged < 1 {
			return args, &invalidParam{"page", "must be a positive integer"}
		}
	}
	if v := q.Get("per_page"); v != "" {
		args.PostsPerPage, err = strconv.Atoi(v)
		if err != nil || args.PostsPerPage < 1 || args.PostsPerPage > maxPerPage {
			return args, &invalidParam{"per_page", fmt.Sprintf("must be between 1 and %d", maxPerPage)}
		}
	}
	if v := q.Get("offset"); v != "" {
		if args.Offset, err = strconv.Atoi(v); err != nil || args.Offset < 0 {
			return args, &invalidParam{"offset", "must be a non-negative integer"}
		}
	}
	if args.Author, err = idList(q["author"]); err != nil {
		return args, &invalidParam{"author", err.Error()}
	}
	if args.IDs, err = idList(q["include"]); err != nil {
		return args, &invalidParam{"include", err.Error()}
	}
	if args.ExcludeIDs, err = idList(q["exclude"]); err != nil {
		return args, &invalidParam{"exclude", err.Error()}
	}

	switch order := strings.ToLower(q.Get("order")); order {
	case "":
	case "asc", "desc":
		args.Order = strings.ToUpper(order)
	default:
		return args, &invalidParam{"order", "must be asc or desc"}
	}
	if v := q.Get("orderby"); v != "" {
		key, ok := postListOrderBy[v]
		if !ok {
			return args, &invalidParam{"orderby", "unsupported value"}
		}
		args.OrderBy = []string{key}
	}

	for _, v := range q["status"] {
		for _, st := range strings.Split(v, ",") {
			if st = strings.TrimSpace(st); st != "" {
				args.PostStatus = append(args.PostStatus, st)
			}
		}
	}
	if len(args.PostStatus) == 0 {
		args.PostStatus = []string{"publish"}
	}
	return args, nil
}

func idList(values []string) ([]int64, error) {
	var out []int64
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil || id <= 0 {
				return nil, fmt.Errorf("%q is not a post ID", part)
			}
			out = append(out, id)
		}
	}
	return out, nil
}

func publishOnly(statuses []string) bool {
	for _, st := range statuses {
		if st != "publish" {
			return false
		}
	}
	return true
}

// handleListPosts serves the post collection. Statuses other than
// publish require edit_posts.
func (s *Server) handleListPosts(w http.ResponseWriter, r *http.Request) {
	if !s.postsAvailable(w) {
		return
	}
	args, err := postListArgs(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "rest_invalid_param", err.Error())
		return
	}
	edit := !publishOnly(args.PostStatus)
	if edit && !s.authorize(w, r, "edit_posts", 0) {
		return
	}

	res, err := s.deps.Posts.Query(r.Context(), args)
	if err != nil {
		s.writeQueryError(w, r, err)
		return
	}

	out := make([]postJSON, 0, len(res.Posts))
	for _, p := range res.Posts {
		pj, err := s.postJSON(r.Context(), p, edit)
		if err != nil {
			s.writeRenderError(w, r, err)
			return
		}
		out = append(out, pj)
	}

	w.Header().Set("X-WP-Total", strconv.FormatInt(res.FoundRows, 10))
	w.Header().Set("X-WP-TotalPages", strconv.Itoa(res.MaxPages))
	writeJSON(w, http.StatusOK, out)
}

// handleGetPost serves one post. Unknown IDs are 404 before any
// capability check.
func (s *Server) handleGetPost(w http.ResponseWriter, r *http.Request) {
	if !s.postsAvailable(w) {
		return
	}
	id := postIDParam(r)
	if id <= 0 {
		writeError(w, http.StatusNotFound, "rest_post_invalid_id", "Invalid post ID.")
		return
	}
	posts, err := s.deps.Posts.Get(r.Context(), []int64{id})
	if err != nil {
		s.writeQueryError(w, r, err)
		return
	}
	if len(posts) == 0 {
		writeError(w, http.StatusNotFound, "rest_post_invalid_id", "Invalid post ID.")
		return
	}
	if !s.authorize(w, r, auth.CapReadPost, id) {
		return
	}

	edit := r.URL.Query().Get("context") == "edit"
	if edit && !s.authorize(w, r, auth.CapEditPost, id) {
		return
	}
	pj, err := s.postJSON(r.Context(), posts[0], edit)
	if err != nil {
		s.writeRenderError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pj)
}

type createPostRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Excerpt string `json:"excerpt"`
	Status  string `json:"status"`
	Slug    string `json:"slug"`
}

var creatableStatuses = map[string]bool{
	"draft":   true,
	"pending": true,
	"private": true,
	"publish": true,
}

// handleCreatePost stores a new post authored by the caller.
func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	if !s.postsAvailable(w) {
		return
	}
	var req createPostRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if req.Status == "" {
		req.Status = "draft"
	}
	if !creatableStatuses[req.Status] {
		writeError(w, http.StatusBadRequest, "rest_invalid_param", "Invalid parameter: status.")
		return
	}

	p := &store.Post{
		Author:  auth.UserIDFromContext(r.Context()),
		Title:   req.Title,
		Content: req.Content,
		Excerpt: req.Excerpt,
		Status:  req.Status,
		Name:    store.Slugify(req.Slug),
		Type:    "post",
	}
	id, err := s.deps.Store.InsertPost(r.Context(), p)
	if err != nil {
		s.writeQueryError(w, r, err)
		return
	}

	pj, err := s.postJSON(r.Context(), p, true)
	if err != nil {
		s.writeRenderError(w, r, err)
		return
	}
	w.Header().Set("Location", "/wp/v2/posts/"+strconv.FormatInt(id, 10))
	writeJSON(w, http.StatusCreated, pj)
}

// writeQueryError maps query and store failures to responses.
func (s *Server) writeQueryError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, query.ErrInvalidArgs), errors.Is(err, query.ErrInvalidTaxonomy),
		errors.Is(err, store.ErrInvalid):
		writeError(w, http.StatusBadRequest, "rest_invalid_param", err.Error())
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "rest_post_invalid_id", "Invalid post ID.")
	case store.IsBusy(err):
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusServiceUnavailable, "rest_db_busy", "The database is busy.")
	default:
		s.writeRenderError(w, r, err)
	}
}
