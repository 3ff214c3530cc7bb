// SPDX-License-Identifier: MIT

// Package census is the client for the game-data REST API used to enrich
// stream events. Lookups go through a TTL cache; the single queue worker is
// the only caller, so the client itself carries no concurrency limits.
package census

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ManuGH/auraxd/internal/cache"
	"github.com/ManuGH/auraxd/internal/events"
	"github.com/ManuGH/auraxd/internal/metrics"
)

// Outfit is a character's outfit membership resolved via the character lookup.
type Outfit struct {
	OutfitID      string `json:"outfit_id"`
	Name          string `json:"name"`
	Alias         string `json:"alias"`
	CharacterName string `json:"character_name"`
}

// MetagameEvent is the display metadata of a timed world event.
type MetagameEvent struct {
	EventID     string `json:"event_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Client queries the game-data REST API.
type Client struct {
	base      string
	serviceID string
	http      *http.Client
	cache     cache.Cache
	cacheTTL  time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithCache installs a lookup cache with the given TTL.
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(cl *Client) {
		cl.cache = c
		cl.cacheTTL = ttl
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(cl *Client) {
		cl.http = h
	}
}

// New creates a Client for the given API base URL and service id credential.
func New(base, serviceID string, opts ...Option) *Client {
	c := &Client{
		base:      strings.TrimRight(base, "/"),
		serviceID: serviceID,
		http:      &http.Client{Timeout: 10 * time.Second},
		cache:     cache.NewNoOpCache(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// namespace maps a platform to its API namespace.
func namespace(p events.Platform) string {
	switch p {
	case events.PlatformPS4US:
		return "ps2ps4us:v2"
	case events.PlatformPS4EU:
		return "ps2ps4eu:v2"
	default:
		return "ps2:v2"
	}
}

// localized is the API's {"en": "..."} name wrapper.
type localized struct {
	En string `json:"en"`
}

// CharacterOutfit resolves the outfit membership of a character. It returns
// ErrNotFound when the character does not exist or has no outfit.
func (c *Client) CharacterOutfit(ctx context.Context, platform events.Platform, characterID string) (*Outfit, error) {
	key := fmt.Sprintf("census:%s:character:%s", namespace(platform), characterID)
	if out, ok := cacheGet[Outfit](c, key); ok {
		return out, nil
	}

	var payload struct {
		CharacterList []struct {
			CharacterID string `json:"character_id"`
			Name        struct {
				First string `json:"first"`
			} `json:"name"`
			Outfit *struct {
				OutfitID string `json:"outfit_id"`
				Name     string `json:"name"`
				Alias    string `json:"alias"`
			} `json:"outfit"`
		} `json:"character_list"`
		Returned int `json:"returned"`
	}

	q := url.Values{}
	q.Set("character_id", characterID)
	q.Set("c:resolve", "outfit")
	if err := c.get(ctx, "character", platform, "character", q, &payload); err != nil {
		return nil, err
	}

	if payload.Returned == 0 || len(payload.CharacterList) == 0 {
		return nil, apiErr("character", ErrNotFound, 0, nil)
	}
	ch := payload.CharacterList[0]
	if ch.Outfit == nil || ch.Outfit.OutfitID == "" {
		return nil, apiErr("character", ErrNotFound, 0, fmt.Errorf("character %s has no outfit", characterID))
	}

	out := &Outfit{
		OutfitID:      ch.Outfit.OutfitID,
		Name:          ch.Outfit.Name,
		Alias:         ch.Outfit.Alias,
		CharacterName: ch.Name.First,
	}
	cacheSet(c, key, out)
	return out, nil
}

// MetagameEvent resolves display name and description of a world event type.
func (c *Client) MetagameEvent(ctx context.Context, platform events.Platform, eventID string) (*MetagameEvent, error) {
	key := fmt.Sprintf("census:%s:metagame_event:%s", namespace(platform), eventID)
	if ev, ok := cacheGet[MetagameEvent](c, key); ok {
		return ev, nil
	}

	var payload struct {
		MetagameEventList []struct {
			MetagameEventID string    `json:"metagame_event_id"`
			Name            localized `json:"name"`
			Description     localized `json:"description"`
		} `json:"metagame_event_list"`
		Returned int `json:"returned"`
	}

	q := url.Values{}
	q.Set("metagame_event_id", eventID)
	if err := c.get(ctx, "metagame_event", platform, "metagame_event", q, &payload); err != nil {
		return nil, err
	}

	if payload.Returned == 0 || len(payload.MetagameEventList) == 0 {
		return nil, apiErr("metagame_event", ErrNotFound, 0, nil)
	}
	me := payload.MetagameEventList[0]

	ev := &MetagameEvent{
		EventID:     me.MetagameEventID,
		Name:        me.Name.En,
		Description: me.Description.En,
	}
	cacheSet(c, key, ev)
	return ev, nil
}

// WorldName resolves the display name of a world. Unknown worlds resolve to
// the raw id instead of an error; the name is cosmetic.
func (c *Client) WorldName(ctx context.Context, platform events.Platform, worldID string) (string, error) {
	key := fmt.Sprintf("census:%s:world:%s", namespace(platform), worldID)
	if name, ok := cacheGet[string](c, key); ok {
		return *name, nil
	}

	var payload struct {
		WorldList []struct {
			WorldID string    `json:"world_id"`
			Name    localized `json:"name"`
		} `json:"world_list"`
		Returned int `json:"returned"`
	}

	q := url.Values{}
	q.Set("world_id", worldID)
	if err := c.get(ctx, "world", platform, "world", q, &payload); err != nil {
		return "", err
	}

	if payload.Returned == 0 || len(payload.WorldList) == 0 {
		return worldID, nil
	}
	name := payload.WorldList[0].Name.En
	if name == "" {
		name = worldID
	}
	cacheSet(c, key, &name)
	return name, nil
}

// get performs one collection query and decodes the JSON body into out.
func (c *Client) get(ctx context.Context, op string, platform events.Platform, collection string, q url.Values, out any) error {
	u := fmt.Sprintf("%s/%s/get/%s/%s/?%s", c.base, c.serviceID, namespace(platform), collection, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return apiErr(op, ErrBadResponse, 0, err)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return apiErr(op, ErrUpstreamUnavailable, 0, err)
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode == http.StatusNotFound:
		return apiErr(op, ErrNotFound, res.StatusCode, nil)
	case res.StatusCode >= 500:
		return apiErr(op, ErrUpstreamError, res.StatusCode, nil)
	case res.StatusCode != http.StatusOK:
		return apiErr(op, ErrBadResponse, res.StatusCode, nil)
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return apiErr(op, ErrBadResponse, res.StatusCode, err)
	}
	return nil
}

func cacheGet[T any](c *Client, key string) (*T, bool) {
	data, ok := c.cache.Get(key)
	if !ok {
		metrics.EnrichmentCacheHits.WithLabelValues("miss").Inc()
		return nil, false
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		metrics.EnrichmentCacheHits.WithLabelValues("miss").Inc()
		return nil, false
	}
	metrics.EnrichmentCacheHits.WithLabelValues("hit").Inc()
	return &v, true
}

func cacheSet[T any](c *Client, key string, v *T) {
	if c.cacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	c.cache.Set(key, data, c.cacheTTL)
}
