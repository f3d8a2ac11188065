// Package thingspeak reads soil probe readings from a ThingSpeak channel.
package thingspeak

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/LeonardoBeccarini/agrisense/internal/model/entities"
	"github.com/LeonardoBeccarini/agrisense/internal/sources"
	"github.com/LeonardoBeccarini/agrisense/pkg/resilience"
)

const (
	DefaultBaseURL = "https://api.thingspeak.com"
	// maxResults is the ThingSpeak cap on feeds per request.
	maxResults = 8000
)

type Config struct {
	BaseURL    string
	ChannelID  string
	ReadAPIKey string
	Timeout    time.Duration
	FieldMap   FieldMap
	// GPS is attached to readings the channel does not locate itself.
	GPS *entities.GPS
}

type Client struct {
	http  *resty.Client
	cfg   Config
	guard *resilience.Guard
	log   *zap.Logger
}

// NewClient validates the field map up front; a bad map is a startup error,
// not a per-reading one.
func NewClient(cfg Config, guard *resilience.Guard, log *zap.Logger) (*Client, error) {
	if cfg.ChannelID == "" {
		return nil, errors.New("thingspeak: channel id is required")
	}
	if cfg.FieldMap == nil {
		cfg.FieldMap = DefaultFieldMap()
	}
	if err := cfg.FieldMap.Validate(); err != nil {
		return nil, fmt.Errorf("thingspeak: %w", err)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if guard == nil {
		guard = resilience.NewGuard(resilience.Settings{Name: "thingspeak"})
	}
	h := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json")
	return &Client{http: h, cfg: cfg, guard: guard, log: log}, nil
}

// Channel is the channel metadata returned alongside the feeds.
type Channel struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Latitude    *string `json:"latitude"`
	Longitude   *string `json:"longitude"`
	LastEntryID int64   `json:"last_entry_id"`
	UpdatedAt   string  `json:"updated_at"`
}

type feedsResponse struct {
	Channel Channel                      `json:"channel"`
	Feeds   []map[string]json.RawMessage `json:"feeds"`
}

// FetchReadings returns the last windowSize entries of the channel, oldest
// first. Every failure, and an empty feed, wraps sources.ErrDataUnavailable.
func (c *Client) FetchReadings(ctx context.Context, windowSize int) ([]entities.Reading, error) {
	if windowSize <= 0 {
		windowSize = 1
	}
	if windowSize > maxResults {
		windowSize = maxResults
	}

	body, err := resilience.Call(ctx, c.guard, func(ctx context.Context) (*feedsResponse, error) {
		return c.feeds(ctx, windowSize)
	})
	if err != nil {
		c.log.Warn("thingspeak fetch failed",
			zap.String("channel", c.cfg.ChannelID), zap.String("breaker", c.guard.State()), zap.Error(err))
		return nil, sources.Unavailable("thingspeak", err)
	}

	channelGPS := c.cfg.GPS
	if g := parseGPS(body.Channel.Latitude, body.Channel.Longitude); g != nil {
		channelGPS = g
	}

	readings := make([]entities.Reading, 0, len(body.Feeds))
	skipped := 0
	for _, feed := range body.Feeds {
		r, err := c.decodeFeed(feed, channelGPS)
		if err != nil {
			skipped++
			c.log.Debug("skip feed entry", zap.Error(err))
			continue
		}
		readings = append(readings, r)
	}
	if len(readings) == 0 {
		return nil, sources.Unavailable("thingspeak", fmt.Errorf("channel %s: empty feed (%d entries skipped)", c.cfg.ChannelID, skipped))
	}

	sort.SliceStable(readings, func(i, j int) bool {
		if readings[i].Timestamp.Equal(readings[j].Timestamp) {
			return readings[i].EntryID < readings[j].EntryID
		}
		return readings[i].Timestamp.Before(readings[j].Timestamp)
	})
	if len(readings) > windowSize {
		readings = readings[len(readings)-windowSize:]
	}
	c.log.Debug("thingspeak readings", zap.Int("count", len(readings)), zap.Int("skipped", skipped))
	return readings, nil
}

func (c *Client) feeds(ctx context.Context, results int) (*feedsResponse, error) {
	req := c.http.R().
		SetContext(ctx).
		SetPathParam("channel", c.cfg.ChannelID).
		SetQueryParam("results", strconv.Itoa(results))
	if c.cfg.ReadAPIKey != "" {
		req.SetQueryParam("api_key", c.cfg.ReadAPIKey)
	}
	resp, err := req.Get("/channels/{channel}/feeds.json")
	if err != nil {
		return nil, err
	}
	if err := statusError(resp); err != nil {
		return nil, err
	}
	var out feedsResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		// ThingSpeak answers "-1" to a bad key on some endpoints
		return nil, resilience.Permanent(fmt.Errorf("decode feeds: %w", err))
	}
	return &out, nil
}

// statusError maps a non-2xx response to an error. Client errors other than
// 429 are permanent: retrying a bad key or channel id cannot help.
func statusError(resp *resty.Response) error {
	if !resp.IsError() {
		return nil
	}
	body := resp.String()
	if len(body) > 256 {
		body = body[:256]
	}
	err := fmt.Errorf("status %d: %s", resp.StatusCode(), body)
	if resp.StatusCode() < 500 && resp.StatusCode() != http.StatusTooManyRequests {
		return resilience.Permanent(err)
	}
	return err
}

func (c *Client) decodeFeed(feed map[string]json.RawMessage, channelGPS *entities.GPS) (entities.Reading, error) {
	var r entities.Reading
	var created string
	if err := json.Unmarshal(feed["created_at"], &created); err != nil {
		return r, fmt.Errorf("created_at: %w", err)
	}
	ts, err := time.Parse(time.RFC3339, created)
	if err != nil {
		return r, fmt.Errorf("created_at %q: %w", created, err)
	}
	r.Timestamp = ts.UTC()
	if raw, ok := feed["entry_id"]; ok {
		id, err := parseEntryID(raw)
		if err != nil {
			c.log.Debug("entry_id not an integer, ordering by created_at only",
				zap.String("entry_id", string(raw)), zap.Error(err))
		}
		r.EntryID = id
	}

	r.Values = make(map[entities.Field]float64, len(c.cfg.FieldMap))
	for _, f := range c.cfg.FieldMap.Fields() {
		if v, ok := parseValue(feed[c.cfg.FieldMap[f]]); ok {
			r.Values[f] = v
		}
	}

	r.GPS = channelGPS
	if g := parseGPS(rawString(feed["latitude"]), rawString(feed["longitude"])); g != nil {
		r.GPS = g
	}
	if r.GPS != nil {
		g := *r.GPS
		r.GPS = &g
	}
	return r, nil
}

// parseValue accepts a JSON string holding a number, a bare number, or null.
// Anything else counts as absent.
func parseValue(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		s = string(raw)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// parseEntryID accepts a bare integer or a string holding one. null is 0.
func parseEntryID(raw json.RawMessage) (int64, error) {
	s := rawString(raw)
	if s == nil {
		return 0, nil
	}
	return strconv.ParseInt(strings.TrimSpace(*s), 10, 64)
}

func rawString(raw json.RawMessage) *string {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		s = string(raw)
	}
	return &s
}

func parseGPS(lat, lon *string) *entities.GPS {
	if lat == nil || lon == nil {
		return nil
	}
	la, err1 := strconv.ParseFloat(strings.TrimSpace(*lat), 64)
	lo, err2 := strconv.ParseFloat(strings.TrimSpace(*lon), 64)
	if err1 != nil || err2 != nil || (la == 0 && lo == 0) {
		return nil
	}
	return &entities.GPS{Latitude: la, Longitude: lo}
}
