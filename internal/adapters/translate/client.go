// Package translate calls the public machine-translation endpoint.
package translate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/iter"
)

const (
	DefaultEndpoint = "https://translate.googleapis.com/translate_a/single"
	AutoDetect      = "auto"
	Unknown         = "unknown"
)

var (
	ErrBadStatus = errors.New("translation request failed")
	ErrBadReply  = errors.New("unexpected translation payload")
)

// Result is a translated text and the source language the endpoint reported.
type Result struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

type Client struct {
	endpoint  string
	clientTag string
	http      *http.Client
	cache     Cache
}

func New(endpoint, clientTag string, timeout time.Duration, cache Cache) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if clientTag == "" {
		clientTag = "gtx"
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if cache == nil {
		cache = NopCache{}
	}
	return &Client{
		endpoint:  endpoint,
		clientTag: clientTag,
		http:      &http.Client{Timeout: timeout},
		cache:     cache,
	}
}

// Lookup translates text to target; source may be "auto" or empty.
func (c *Client) Lookup(ctx context.Context, text, target, source string) (Result, error) {
	if source == "" {
		source = AutoDetect
	}
	key := cacheKey(source, target, text)
	if r, ok := c.cache.Get(ctx, key); ok {
		return r, nil
	}

	q := url.Values{
		"client": {c.clientTag},
		"sl":     {source},
		"tl":     {target},
		"dt":     {"t"},
		"q":      {text},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return Result{}, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("%w: status %d", ErrBadStatus, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, err
	}
	r, err := parse(body, source)
	if err != nil {
		return Result{}, err
	}
	c.cache.Set(ctx, key, r)
	return r, nil
}

// Translate is Lookup that degrades to the original text and requested source.
func (c *Client) Translate(ctx context.Context, text, target, source string) Result {
	r, err := c.Lookup(ctx, text, target, source)
	if err != nil {
		log.Warn().Err(err).Str("module", "translate").Str("target", target).Msg("translation failed, keeping original")
		if source == "" {
			source = AutoDetect
		}
		return Result{Text: text, Language: source}
	}
	return r
}

// Batch translates texts concurrently; results keep input order.
func (c *Client) Batch(ctx context.Context, texts []string, target, source string) []Result {
	return iter.Map(texts, func(text *string) Result {
		return c.Translate(ctx, *text, target, source)
	})
}

// Detect returns the detected language of text, or "unknown".
func (c *Client) Detect(ctx context.Context, text string) string {
	r, err := c.Lookup(ctx, text, "en", AutoDetect)
	if err != nil || r.Language == "" || r.Language == AutoDetect {
		return Unknown
	}
	return r.Language
}

// parse reads [[["translated","original",...],...],null,"detected"].
func parse(body []byte, source string) (Result, error) {
	var top []any
	if err := json.Unmarshal(body, &top); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrBadReply, err)
	}
	if len(top) == 0 {
		return Result{}, ErrBadReply
	}
	segments, ok := top[0].([]any)
	if !ok {
		return Result{}, ErrBadReply
	}
	var sb strings.Builder
	for _, seg := range segments {
		parts, ok := seg.([]any)
		if !ok || len(parts) == 0 {
			continue
		}
		if s, ok := parts[0].(string); ok {
			sb.WriteString(s)
		}
	}
	if sb.Len() == 0 {
		return Result{}, ErrBadReply
	}
	r := Result{Text: sb.String(), Language: source}
	if len(top) > 2 {
		if lang, ok := top[2].(string); ok && lang != "" {
			r.Language = lang
		}
	}
	return r, nil
}
