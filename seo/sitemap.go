// Package seo builds the XML documents crawlers and feed readers fetch: the sitemap and the RSS feed.
package seo

import (
	"encoding/xml"
	"time"
)

// SitemapNamespace is the sitemap XML namespace.
const SitemapNamespace = "http://www.sitemaps.org/schemas/sitemap/0.9"

// ChangeFreq is how often a URL is expected to change.
type ChangeFreq string

const (
	ChangeFreqDaily  ChangeFreq = "daily"
	ChangeFreqWeekly ChangeFreq = "weekly"
)

// SitemapURL is one <url> entry.
type SitemapURL struct {
	Loc        string     `xml:"loc"`
	LastMod    string     `xml:"lastmod,omitempty"`
	ChangeFreq ChangeFreq `xml:"changefreq,omitempty"`
	Priority   string     `xml:"priority,omitempty"`
}

// Sitemap is the <urlset> document.
type Sitemap struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []SitemapURL `xml:"url"`
}

// SitemapBuilder collects URLs below a site root.
type SitemapBuilder struct {
	siteURL string
	urls    []SitemapURL
}

func NewSitemapBuilder(siteURL string) *SitemapBuilder {
	return &SitemapBuilder{siteURL: siteURL, urls: make([]SitemapURL, 0)}
}

// AddHome adds the post list.
func (b *SitemapBuilder) AddHome(path string) {
	b.urls = append(b.urls, SitemapURL{
		Loc:        b.siteURL + path,
		ChangeFreq: ChangeFreqDaily,
		Priority:   "1.0",
	})
}

// AddPost adds a post detail page; lastmod is the post's last update.
func (b *SitemapBuilder) AddPost(path string, updated time.Time) {
	u := SitemapURL{
		Loc:        b.siteURL + path,
		ChangeFreq: ChangeFreqWeekly,
		Priority:   "0.9",
	}
	if !updated.IsZero() {
		u.LastMod = updated.UTC().Format(time.RFC3339)
	}
	b.urls = append(b.urls, u)
}

// AddTag adds a tag listing page.
func (b *SitemapBuilder) AddTag(path string) {
	b.urls = append(b.urls, SitemapURL{
		Loc:        b.siteURL + path,
		ChangeFreq: ChangeFreqWeekly,
		Priority:   "0.5",
	})
}

// Len returns the number of URLs added so far.
func (b *SitemapBuilder) Len() int {
	return len(b.urls)
}

// Build renders the sitemap with its XML header.
func (b *SitemapBuilder) Build() ([]byte, error) {
	body, err := xml.MarshalIndent(Sitemap{XMLNS: SitemapNamespace, URLs: b.urls}, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), body...), nil
}
