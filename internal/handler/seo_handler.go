package handler

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"net/http"
	"strings"

	"go-kb-app/internal/middleware"
	"go-kb-app/internal/service"
)

// SeoHandler holds dependencies for SEO-related handlers.
type SeoHandler struct {
	categories *service.CategoryService
	articles   *service.ArticleService
	baseURL    string
}

// NewSeoHandler creates a new SeoHandler. baseURL is the public origin used
// in absolute links.
func NewSeoHandler(categories *service.CategoryService, articles *service.ArticleService, baseURL string) *SeoHandler {
	return &SeoHandler{
		categories: categories,
		articles:   articles,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// robotsHandler serves robots.txt. The admin area is excluded from crawling.
func (h *SeoHandler) robotsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintln(w, "User-agent: *")
	fmt.Fprintln(w, "Allow: /")
	fmt.Fprintln(w, "Disallow: /admin")
	fmt.Fprintln(w, "Disallow: /auth")
	fmt.Fprintln(w, "")
	fmt.Fprintf(w, "Sitemap: %s/sitemap.xml\n", h.baseURL)
}

const sitemapDateFormat = "2006-01-02"

type sitemapURL struct {
	XMLName xml.Name `xml:"url"`
	Loc     string   `xml:"loc"`
	LastMod string   `xml:"lastmod,omitempty"`
}

type urlSet struct {
	XMLName xml.Name     `xml:"urlset"`
	Xmlns   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

// sitemapHandler generates and serves a dynamic sitemap.xml covering the
// home page, every category and every published article.
func (h *SeoHandler) sitemapHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	categories, err := h.categories.List(r.Context())
	if err != nil {
		return middleware.Internal(err, "Failed to retrieve categories for sitemap")
	}
	articles, err := h.articles.Published(r.Context())
	if err != nil {
		return middleware.Internal(err, "Failed to retrieve articles for sitemap")
	}

	sitemap := urlSet{
		Xmlns: "http://www.sitemaps.org/schemas/sitemap/0.9",
		URLs:  make([]sitemapURL, 0, 1+len(categories)+len(articles)),
	}
	sitemap.URLs = append(sitemap.URLs, sitemapURL{Loc: h.baseURL + "/"})
	for _, c := range categories {
		sitemap.URLs = append(sitemap.URLs, sitemapURL{
			Loc:     h.baseURL + "/category/" + c.Slug,
			LastMod: c.UpdatedAt.Format(sitemapDateFormat),
		})
	}
	for _, a := range articles {
		sitemap.URLs = append(sitemap.URLs, sitemapURL{
			Loc:     h.baseURL + "/article/" + a.Slug,
			LastMod: a.UpdatedAt.Format(sitemapDateFormat),
		})
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	encoder := xml.NewEncoder(&buf)
	encoder.Indent("", "  ")
	if err := encoder.Encode(sitemap); err != nil {
		return middleware.Internal(err, "Failed to generate sitemap XML")
	}
	w.Header().Set("Content-Type", "application/xml")
	_, _ = buf.WriteTo(w)
	return nil
}
