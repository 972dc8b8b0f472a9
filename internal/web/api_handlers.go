package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/patrickmn/go-cache"

	"github.com/evcraddock/commentbox/internal/apperr"
	"github.com/evcraddock/commentbox/internal/auth"
	"github.com/evcraddock/commentbox/internal/comment"
	"github.com/evcraddock/commentbox/internal/mention"
	"github.com/evcraddock/commentbox/internal/reaction"
	"github.com/evcraddock/commentbox/internal/reply"
	"github.com/evcraddock/commentbox/internal/upload"
	"github.com/evcraddock/commentbox/internal/user"
)

const (
	maxBodyBytes = 1 << 20
	usersKey     = "users"
)

// apiError writes a JSON error response.
func apiError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	resp := map[string]string{"error": msg}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		http.Error(w, `{"error":"encode failed"}`, http.StatusInternalServerError)
	}
}

// apiJSON writes a JSON response with the given status code.
func apiJSON(w http.ResponseWriter, data interface{}, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, `{"error":"encode failed"}`, http.StatusInternalServerError)
	}
}

// writeError maps an error onto a status code. Unclassified errors are
// logged and reported as 500 without detail.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		apiError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, apperr.ErrAuthRequired):
		apiError(w, "authorization required", http.StatusUnauthorized)
	case errors.Is(err, apperr.ErrNotFound):
		apiError(w, err.Error(), http.StatusNotFound)
	default:
		slog.Error("api request failed", "error", err)
		apiError(w, "internal error", http.StatusInternalServerError)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		apiError(w, "invalid JSON", http.StatusBadRequest)
		return false
	}
	return true
}

// currentUser returns the user set by the API key middleware.
func currentUser(w http.ResponseWriter, r *http.Request) (user.User, bool) {
	u, ok := auth.UserFromContext(r.Context())
	if !ok {
		apiError(w, "authorization required", http.StatusUnauthorized)
	}
	return u, ok
}

// apiListComments handles GET /api/comments?cursor=&limit=.
func (s *Server) apiListComments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := comment.DefaultPageSize
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			apiError(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = comment.ClampLimit(n)
	}

	cur, err := comment.DecodeCursor(q.Get("cursor"))
	if err != nil {
		writeError(w, err)
		return
	}

	list, err := s.comments.ListComments(r.Context(), comment.PageRequest{After: cur, Limit: limit})
	if err != nil {
		writeError(w, err)
		return
	}

	page := comment.Page{
		Comments: list,
		Limit:    limit,
		Count:    len(list),
		HasMore:  len(list) == limit,
	}
	if len(list) > 0 {
		page.NextCursor = comment.EncodeCursor(comment.CursorOf(list[len(list)-1]))
	}

	apiJSON(w, page, http.StatusOK)
}

// apiCreateComment handles POST /api/comments. The author fields always come
// from the API key's user.
func (s *Server) apiCreateComment(w http.ResponseWriter, r *http.Request) {
	u, ok := currentUser(w, r)
	if !ok {
		return
	}

	var c comment.Comment
	if !decodeJSON(w, r, &c) {
		return
	}

	c.UserID = u.ID
	c.Username = u.Label()
	c.UserPhoto = u.PhotoURL
	if c.Mentions == nil {
		c.Mentions = mention.ExtractNames(c.Text)
	}

	created, err := s.comments.CreateComment(r.Context(), c)
	if err != nil {
		writeError(w, err)
		return
	}
	s.metrics.comments.Inc()

	apiJSON(w, created, http.StatusCreated)
}

// apiGetComment handles GET /api/comments/{id}.
func (s *Server) apiGetComment(w http.ResponseWriter, r *http.Request) {
	c, err := s.comments.GetComment(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	apiJSON(w, c, http.StatusOK)
}

// apiGetReactions handles GET /api/comments/{id}/reactions.
func (s *Server) apiGetReactions(w http.ResponseWriter, r *http.Request) {
	set, err := s.comments.GetReactions(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	apiJSON(w, set, http.StatusOK)
}

// apiPutReactions handles PUT /api/comments/{id}/reactions, overwriting all
// four counters.
func (s *Server) apiPutReactions(w http.ResponseWriter, r *http.Request) {
	var set reaction.Set
	if !decodeJSON(w, r, &set) {
		return
	}
	if err := s.comments.PutReactions(r.Context(), mux.Vars(r)["id"], set); err != nil {
		writeError(w, err)
		return
	}
	apiJSON(w, set, http.StatusOK)
}

// apiIncrementReaction handles POST /api/comments/{id}/reactions {"kind": "..."}.
func (s *Server) apiIncrementReaction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Kind string `json:"kind"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	k, err := reaction.ParseKind(req.Kind)
	if err != nil {
		writeError(w, err)
		return
	}

	set, err := s.comments.IncrementReaction(r.Context(), mux.Vars(r)["id"], k)
	if err != nil {
		writeError(w, err)
		return
	}
	s.metrics.reactions.WithLabelValues(string(k)).Inc()

	apiJSON(w, set, http.StatusOK)
}

// apiListReplies handles GET /api/comments/{id}/replies.
func (s *Server) apiListReplies(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, err := s.comments.GetComment(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	rs, err := s.replies.ListReplies(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	apiJSON(w, rs, http.StatusOK)
}

// apiCreateReply handles POST /api/comments/{id}/replies as the key's user.
func (s *Server) apiCreateReply(w http.ResponseWriter, r *http.Request) {
	u, ok := currentUser(w, r)
	if !ok {
		return
	}

	var d reply.Draft
	if !decodeJSON(w, r, &d) {
		return
	}

	created, err := s.replies.CreateReply(r.Context(), reply.Reply{
		Body:      strings.TrimSpace(d.Body),
		FileURL:   d.FileURL,
		Mentions:  d.Mentions,
		Author:    u.ID,
		CommentID: mux.Vars(r)["id"],
	})
	if err != nil {
		writeError(w, err)
		return
	}
	s.metrics.replies.Inc()

	apiJSON(w, created, http.StatusCreated)
}

// apiListUsers handles GET /api/users. The list is cached for a minute.
func (s *Server) apiListUsers(w http.ResponseWriter, r *http.Request) {
	if cached, ok := s.userCache.Get(usersKey); ok {
		apiJSON(w, cached, http.StatusOK)
		return
	}

	users, err := s.users.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if users == nil {
		users = []user.User{}
	}
	s.userCache.Set(usersKey, users, cache.DefaultExpiration)

	apiJSON(w, users, http.StatusOK)
}

// apiMe handles GET /api/me.
func (s *Server) apiMe(w http.ResponseWriter, r *http.Request) {
	u, ok := currentUser(w, r)
	if !ok {
		return
	}
	apiJSON(w, u, http.StatusOK)
}

// apiUpload handles POST /api/uploads with a multipart "file" field.
func (s *Server) apiUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, upload.MaxSize+maxBodyBytes)

	f, hdr, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			apiError(w, "file too large", http.StatusRequestEntityTooLarge)
			return
		}
		apiError(w, "file is required", http.StatusBadRequest)
		return
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			slog.Warn("closing upload", "error", cerr)
		}
	}()

	url, err := s.files.Upload(r.Context(), upload.File{
		Name:        hdr.Filename,
		ContentType: hdr.Header.Get("Content-Type"),
		Body:        f,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	s.metrics.uploadBytes.Add(float64(hdr.Size))

	apiJSON(w, map[string]string{"url": url}, http.StatusCreated)
}
