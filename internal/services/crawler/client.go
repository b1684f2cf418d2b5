package crawler

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"html"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/meeple/internal/common"
	"github.com/ternarybob/meeple/internal/interfaces"
	"github.com/ternarybob/meeple/internal/models"
	"golang.org/x/time/rate"
)

var (
	// ErrProcessing indicates the source accepted the request but is still
	// preparing the response (HTTP 202): retry the same request after a
	// fixed delay.
	ErrProcessing = errors.New("source is processing the request")

	// ErrTooManyRequests indicates the source rate-limited the request
	// (HTTP 429): retry within bounds with incremental delay.
	ErrTooManyRequests = errors.New("source rate limited the request")
)

// Client fetches reference data from the external catalog source's XML API.
// A shared limiter enforces the courtesy delay between successive fetches.
type Client struct {
	http    *resty.Client
	limiter *rate.Limiter
	logger  arbor.ILogger
}

// NewClient creates a catalog source client from crawler configuration
func NewClient(config *common.CrawlerConfig, logger arbor.ILogger) *Client {
	httpClient := resty.New().
		SetBaseURL(config.BaseURL).
		SetTimeout(config.RequestTimeout).
		SetHeader("Accept", "application/xml")

	return &Client{
		http:    httpClient,
		limiter: rate.NewLimiter(rate.Every(config.RequestDelay), 1),
		logger:  logger,
	}
}

// FetchByIDs fetches the given external ids in one multi-id request.
// A successful response may contain zero or more entries; absent ids are
// simply not present in the result.
func (c *Client) FetchByIDs(ctx context.Context, externalIDs []string) ([]*models.SourceEntry, error) {
	if len(externalIDs) == 0 {
		return nil, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("courtesy delay interrupted: %w", err)
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("id", strings.Join(externalIDs, ",")).
		SetQueryParam("stats", "1").
		Get("/thing")
	if err != nil {
		return nil, fmt.Errorf("catalog source fetch failed: %w", err)
	}

	switch resp.StatusCode() {
	case http.StatusOK:
		return parseThingResponse(resp.Body())
	case http.StatusAccepted:
		return nil, ErrProcessing
	case http.StatusTooManyRequests:
		return nil, ErrTooManyRequests
	default:
		return nil, fmt.Errorf("catalog source returned status %d", resp.StatusCode())
	}
}

// FindByTitle resolves a single entry by exact title search. Returns nil
// when the source has no match.
func (c *Client) FindByTitle(ctx context.Context, title string) (*models.SourceEntry, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("courtesy delay interrupted: %w", err)
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("query", title).
		SetQueryParam("exact", "1").
		Get("/search")
	if err != nil {
		return nil, fmt.Errorf("catalog source search failed: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("catalog source search returned status %d", resp.StatusCode())
	}

	var result searchItems
	if err := xml.Unmarshal(resp.Body(), &result); err != nil {
		return nil, fmt.Errorf("failed to parse search response: %w", err)
	}
	if len(result.Items) == 0 {
		return nil, nil
	}

	entries, err := c.FetchByIDs(ctx, []string{result.Items[0].ID})
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return entries[0], nil
}

// thingItems mirrors the source's multi-id XML response shape
type thingItems struct {
	XMLName xml.Name    `xml:"items"`
	Items   []thingItem `xml:"item"`
}

type thingItem struct {
	ID    string `xml:"id,attr"`
	Type  string `xml:"type,attr"`
	Names []struct {
		Type  string `xml:"type,attr"`
		Value string `xml:"value,attr"`
	} `xml:"name"`
	YearPublished valueAttr `xml:"yearpublished"`
	MinPlayers    valueAttr `xml:"minplayers"`
	MaxPlayers    valueAttr `xml:"maxplayers"`
	PlayingTime   valueAttr `xml:"playingtime"`
	Image         string    `xml:"image"`
	Description   string    `xml:"description"`
	Links         []struct {
		Type  string `xml:"type,attr"`
		Value string `xml:"value,attr"`
	} `xml:"link"`
	Statistics struct {
		Ratings struct {
			AverageWeight valueAttr `xml:"averageweight"`
		} `xml:"ratings"`
	} `xml:"statistics"`
}

type valueAttr struct {
	Value string `xml:"value,attr"`
}

type searchItems struct {
	XMLName xml.Name `xml:"items"`
	Items   []struct {
		ID string `xml:"id,attr"`
	} `xml:"item"`
}

// parseThingResponse converts the XML document into source entries
func parseThingResponse(body []byte) ([]*models.SourceEntry, error) {
	var doc thingItems
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse source response: %w", err)
	}

	entries := make([]*models.SourceEntry, 0, len(doc.Items))
	for _, item := range doc.Items {
		entry := &models.SourceEntry{
			ExternalID:  item.ID,
			ImageURL:    item.Image,
			Description: html.UnescapeString(item.Description),
			YearMade:    atoiOrZero(item.YearPublished.Value),
			MinPlayers:  atoiOrZero(item.MinPlayers.Value),
			MaxPlayers:  atoiOrZero(item.MaxPlayers.Value),
			PlaytimeMin: atoiOrZero(item.PlayingTime.Value),
			Weight:      atofOrZero(item.Statistics.Ratings.AverageWeight.Value),
			IsExpansion: item.Type == "boardgameexpansion",
		}
		for _, name := range item.Names {
			if name.Type == "primary" {
				entry.Title = name.Value
				break
			}
		}
		for _, link := range item.Links {
			switch link.Type {
			case "boardgamemechanic":
				entry.Mechanics = append(entry.Mechanics, link.Value)
			case "boardgamedesigner":
				entry.Designers = append(entry.Designers, link.Value)
			}
		}
		if entry.Title == "" {
			// Entries without a primary name are unusable
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

var _ interfaces.CatalogSource = (*Client)(nil)
