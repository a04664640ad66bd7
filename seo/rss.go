package seo

import (
	"encoding/xml"
	"time"
)

// RSS is an RSS 2.0 document.
type RSS struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel RSSChannel `xml:"channel"`
}

type RSSChannel struct {
	Title         string    `xml:"title"`
	Link          string    `xml:"link"`
	Description   string    `xml:"description"`
	LastBuildDate string    `xml:"lastBuildDate,omitempty"`
	Items         []RSSItem `xml:"item"`
}

type RSSItem struct {
	Title       string  `xml:"title"`
	Link        string  `xml:"link"`
	Description string  `xml:"description"`
	PubDate     string  `xml:"pubDate"`
	GUID        RSSGUID `xml:"guid"`
}

type RSSGUID struct {
	Value       string `xml:",chardata"`
	IsPermaLink bool   `xml:"isPermaLink,attr"`
}

// FeedItem is the input for one feed entry. Description is an HTML fragment.
type FeedItem struct {
	Title       string
	Path        string
	Description string
	Published   time.Time
}

// FeedBuilder assembles a channel whose links are rooted at siteURL.
type FeedBuilder struct {
	siteURL string
	channel RSSChannel
}

func NewFeedBuilder(siteURL, title, homePath, description string) *FeedBuilder {
	return &FeedBuilder{
		siteURL: siteURL,
		channel: RSSChannel{
			Title:       title,
			Link:        siteURL + homePath,
			Description: description,
			Items:       make([]RSSItem, 0),
		},
	}
}

// Add appends an item; the feed's build date tracks the newest item.
func (b *FeedBuilder) Add(item FeedItem) {
	link := b.siteURL + item.Path
	b.channel.Items = append(b.channel.Items, RSSItem{
		Title:       item.Title,
		Link:        link,
		Description: item.Description,
		PubDate:     item.Published.UTC().Format(time.RFC1123Z),
		GUID:        RSSGUID{Value: link, IsPermaLink: true},
	})
	if b.channel.LastBuildDate == "" {
		b.channel.LastBuildDate = item.Published.UTC().Format(time.RFC1123Z)
	}
}

// Build renders the feed with its XML header.
func (b *FeedBuilder) Build() ([]byte, error) {
	body, err := xml.MarshalIndent(RSS{Version: "2.0", Channel: b.channel}, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), body...), nil
}
