package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/clickora/storefront/internal/blog"
	"github.com/clickora/storefront/internal/platform/format"
	"github.com/clickora/storefront/internal/platform/httpx"
)

const blogCacheControl = "public, max-age=600"

// BlogHandlers serves the read-only blog. Posts are not session scoped.
type BlogHandlers struct {
	blog *blog.Blog
}

// NewBlogHandlers constructs blog handlers.
func NewBlogHandlers(b *blog.Blog) *BlogHandlers {
	return &BlogHandlers{blog: b}
}

// Routes wires the /blog endpoints onto the provided router.
func (h *BlogHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.listPosts)
	r.Get("/categories", h.categories)
	r.Get("/{slug}", h.getPost)
}

type postListPayload struct {
	Items    []blog.Post `json:"items"`
	Featured *blog.Post  `json:"featured,omitempty"`
	Search   string      `json:"search,omitempty"`
}

type postPayload struct {
	blog.Post
	PublishedOn string      `json:"published_on"`
	Related     []blog.Post `json:"related"`
}

func (h *BlogHandlers) available(w http.ResponseWriter, r *http.Request) bool {
	if h.blog == nil {
		httpx.WriteError(r.Context(), w, httpx.NewError("blog_unavailable", "blog is unavailable", http.StatusServiceUnavailable))
		return false
	}
	return true
}

func (h *BlogHandlers) listPosts(w http.ResponseWriter, r *http.Request) {
	if !h.available(w, r) {
		return
	}
	term := strings.TrimSpace(r.URL.Query().Get("search"))
	payload := postListPayload{Items: h.blog.Search(term), Search: term}
	if term == "" {
		if featured, ok := h.blog.Featured(); ok {
			payload.Featured = &featured
		}
	}
	w.Header().Set("Cache-Control", blogCacheControl)
	httpx.WriteJSON(w, http.StatusOK, payload)
}

func (h *BlogHandlers) categories(w http.ResponseWriter, r *http.Request) {
	if !h.available(w, r) {
		return
	}
	w.Header().Set("Cache-Control", blogCacheControl)
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"items": h.blog.Categories()})
}

func (h *BlogHandlers) getPost(w http.ResponseWriter, r *http.Request) {
	if !h.available(w, r) {
		return
	}
	slug := chi.URLParam(r, "slug")
	post, err := h.blog.Post(slug)
	if err != nil {
		writeServiceError(r.Context(), w, err, nil)
		return
	}
	related, err := h.blog.Related(slug, blog.DefaultRelatedLimit)
	if err != nil {
		writeServiceError(r.Context(), w, err, nil)
		return
	}
	w.Header().Set("Cache-Control", blogCacheControl)
	httpx.WriteJSON(w, http.StatusOK, postPayload{Post: post, PublishedOn: format.Date(post.PublishedAt), Related: related})
}
