// Package blog serves the storefront's editorial posts: markdown files with YAML front matter,
// rendered to sanitized HTML at load time.
package blog

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"gopkg.in/yaml.v3"
)

// DefaultRelatedLimit caps the related-posts list.
const DefaultRelatedLimit = 3

var (
	// ErrNotFound indicates no post has the requested slug.
	ErrNotFound = errors.New("blog: post not found")
	// ErrInvalidPost indicates a malformed post file.
	ErrInvalidPost = errors.New("blog: invalid post")
)

//go:embed posts/*.md
var embedded embed.FS

var frontMatterDelim = []byte("---")

// Post is one article.
type Post struct {
	ID            int       `json:"id"`
	Title         string    `json:"title"`
	Slug          string    `json:"slug"`
	Excerpt       string    `json:"excerpt"`
	FeaturedImage string    `json:"featured_image"`
	Author        string    `json:"author"`
	Category      string    `json:"category"`
	Tags          []string  `json:"tags"`
	PublishedAt   time.Time `json:"published_at"`
	ReadTime      string    `json:"read_time"`
	HTML          string    `json:"html,omitempty"`
}

// Summary drops the rendered body for list views.
func (p Post) Summary() Post {
	p.HTML = ""
	p.Tags = append([]string(nil), p.Tags...)
	return p
}

// CategoryCount is one entry of the category sidebar.
type CategoryCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type frontMatter struct {
	ID            int      `yaml:"id"`
	Title         string   `yaml:"title"`
	Slug          string   `yaml:"slug"`
	Excerpt       string   `yaml:"excerpt"`
	FeaturedImage string   `yaml:"featured_image"`
	Author        string   `yaml:"author"`
	Category      string   `yaml:"category"`
	Tags          []string `yaml:"tags"`
	PublishedAt   string   `yaml:"published_at"`
	ReadTime      string   `yaml:"read_time"`
}

// Blog holds the loaded posts, newest first.
type Blog struct {
	posts  []Post
	bySlug map[string]int
}

// Load parses the embedded posts.
func Load() (*Blog, error) {
	return LoadFS(embedded, "posts")
}

// LoadFS parses every *.md file under dir.
func LoadFS(fsys fs.FS, dir string) (*Blog, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("blog: read %s: %w", dir, err)
	}
	r := newRenderer()
	posts := make([]Post, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".md" {
			continue
		}
		raw, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("blog: read %s: %w", entry.Name(), err)
		}
		post, err := r.parse(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", entry.Name(), err)
		}
		posts = append(posts, post)
	}
	return New(posts)
}

// New indexes posts, ordering them by publication date (newest first).
func New(posts []Post) (*Blog, error) {
	sorted := append([]Post(nil), posts...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].PublishedAt.After(sorted[j].PublishedAt)
	})
	b := &Blog{posts: sorted, bySlug: make(map[string]int, len(sorted))}
	for i, p := range sorted {
		if _, dup := b.bySlug[p.Slug]; dup {
			return nil, fmt.Errorf("%w: duplicate slug %q", ErrInvalidPost, p.Slug)
		}
		b.bySlug[p.Slug] = i
	}
	return b, nil
}

// List returns post summaries, newest first. The first entry is the featured post.
func (b *Blog) List() []Post {
	out := make([]Post, 0, len(b.posts))
	for _, p := range b.posts {
		out = append(out, p.Summary())
	}
	return out
}

// Featured returns the newest post.
func (b *Blog) Featured() (Post, bool) {
	if len(b.posts) == 0 {
		return Post{}, false
	}
	return b.posts[0].Summary(), true
}

// Post returns the full post for slug.
func (b *Blog) Post(slug string) (Post, error) {
	idx, ok := b.bySlug[strings.TrimSpace(slug)]
	if !ok {
		return Post{}, ErrNotFound
	}
	p := b.posts[idx]
	p.Tags = append([]string(nil), p.Tags...)
	return p, nil
}

// Search matches term against titles, excerpts and tags, case-insensitively.
func (b *Blog) Search(term string) []Post {
	needle := strings.ToLower(strings.TrimSpace(term))
	if needle == "" {
		return b.List()
	}
	out := make([]Post, 0)
	for _, p := range b.posts {
		if matches(p, needle) {
			out = append(out, p.Summary())
		}
	}
	return out
}

func matches(p Post, needle string) bool {
	if strings.Contains(strings.ToLower(p.Title), needle) || strings.Contains(strings.ToLower(p.Excerpt), needle) {
		return true
	}
	for _, tag := range p.Tags {
		if strings.Contains(strings.ToLower(tag), needle) {
			return true
		}
	}
	return false
}

// Categories counts posts per category in first-seen order, preceded by an "All" total.
func (b *Blog) Categories() []CategoryCount {
	out := []CategoryCount{{Name: "All", Count: len(b.posts)}}
	index := make(map[string]int)
	for _, p := range b.posts {
		if i, ok := index[p.Category]; ok {
			out[i].Count++
			continue
		}
		index[p.Category] = len(out)
		out = append(out, CategoryCount{Name: p.Category, Count: 1})
	}
	return out
}

// Related returns up to limit posts sharing slug's category, then the most recent others.
func (b *Blog) Related(slug string, limit int) ([]Post, error) {
	post, err := b.Post(slug)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultRelatedLimit
	}
	out := make([]Post, 0, limit)
	for _, p := range b.posts {
		if len(out) == limit {
			return out, nil
		}
		if p.Slug != post.Slug && p.Category == post.Category {
			out = append(out, p.Summary())
		}
	}
	for _, p := range b.posts {
		if len(out) == limit {
			break
		}
		if p.Slug != post.Slug && p.Category != post.Category {
			out = append(out, p.Summary())
		}
	}
	return out, nil
}

type renderer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

func newRenderer() *renderer {
	policy := bluemonday.UGCPolicy()
	policy.AllowAttrs("loading").OnElements("img")
	policy.RequireNoFollowOnLinks(true)
	return &renderer{
		md:     goldmark.New(goldmark.WithExtensions(extension.GFM)),
		policy: policy,
	}
}

func (r *renderer) parse(raw []byte) (Post, error) {
	meta, body, err := splitFrontMatter(raw)
	if err != nil {
		return Post{}, err
	}
	var fm frontMatter
	if err := yaml.Unmarshal(meta, &fm); err != nil {
		return Post{}, fmt.Errorf("%w: front matter: %v", ErrInvalidPost, err)
	}
	if strings.TrimSpace(fm.Slug) == "" || strings.TrimSpace(fm.Title) == "" {
		return Post{}, fmt.Errorf("%w: slug and title are required", ErrInvalidPost)
	}
	published, err := time.Parse(time.DateOnly, strings.TrimSpace(fm.PublishedAt))
	if err != nil {
		return Post{}, fmt.Errorf("%w: published_at: %v", ErrInvalidPost, err)
	}
	var buf bytes.Buffer
	if err := r.md.Convert(body, &buf); err != nil {
		return Post{}, fmt.Errorf("%w: render: %v", ErrInvalidPost, err)
	}
	return Post{
		ID:            fm.ID,
		Title:         strings.TrimSpace(fm.Title),
		Slug:          strings.TrimSpace(fm.Slug),
		Excerpt:       strings.TrimSpace(fm.Excerpt),
		FeaturedImage: fm.FeaturedImage,
		Author:        fm.Author,
		Category:      fm.Category,
		Tags:          fm.Tags,
		PublishedAt:   published,
		ReadTime:      fm.ReadTime,
		HTML:          strings.TrimSpace(r.policy.Sanitize(buf.String())),
	}, nil
}

func splitFrontMatter(raw []byte) (meta, body []byte, err error) {
	raw = bytes.TrimLeft(raw, "\ufeff\r\n ")
	if !bytes.HasPrefix(raw, frontMatterDelim) {
		return nil, nil, fmt.Errorf("%w: missing front matter", ErrInvalidPost)
	}
	rest := raw[len(frontMatterDelim):]
	end := bytes.Index(rest, append([]byte("\n"), frontMatterDelim...))
	if end < 0 {
		return nil, nil, fmt.Errorf("%w: unterminated front matter", ErrInvalidPost)
	}
	meta = rest[:end]
	body = rest[end+1+len(frontMatterDelim):]
	return meta, bytes.TrimLeft(body, "\r\n"), nil
}
