package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"move-quote-be/internal/pkg/logger"
	"move-quote-be/pkg/intake/address"

	"github.com/bytedance/sonic"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

const geoapifySearchURL = "https://api.geoapify.com/v1/geocode/search"

var ErrResolverNotConfigured = errors.New("address resolver: GEOAPIFY_API_KEY not set")

// geoapifyResolver looks up Japanese addresses. Results are cached per
// normalized query and concurrent lookups of the same text share one call.
type geoapifyResolver struct {
	apiKey  string
	baseURL string
	client  *http.Client
	cache   *gocache.Cache
	group   singleflight.Group
	logger  logger.ILogger
}

func NewGeoapifyResolver(apiKey string, log logger.ILogger) address.Resolver {
	return &geoapifyResolver{
		apiKey:  apiKey,
		baseURL: geoapifySearchURL,
		client:  &http.Client{Timeout: 15 * time.Second},
		cache:   gocache.New(6*time.Hour, 30*time.Minute),
		logger:  log,
	}
}

type geoapifyResult struct {
	Formatted string  `json:"formatted"`
	Postcode  string  `json:"postcode"`
	State     string  `json:"state"`
	City      string  `json:"city"`
	District  string  `json:"district"`
	Suburb    string  `json:"suburb"`
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
}

func normalizeQuery(raw string) string {
	return strings.Join(strings.Fields(raw), " ")
}

func (r *geoapifyResolver) Resolve(ctx context.Context, raw string) ([]address.Candidate, error) {
	q := normalizeQuery(raw)
	if q == "" {
		return nil, address.ErrEmptyAddress
	}
	if r.apiKey == "" {
		return nil, ErrResolverNotConfigured
	}

	cacheKey := "geo:" + q
	if v, ok := r.cache.Get(cacheKey); ok {
		return cloneCandidates(v.([]address.Candidate)), nil
	}

	v, err, _ := r.group.Do(cacheKey, func() (interface{}, error) {
		out, err := r.search(ctx, q)
		if err != nil {
			return nil, err
		}
		r.cache.SetDefault(cacheKey, out)
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return cloneCandidates(v.([]address.Candidate)), nil
}

func (r *geoapifyResolver) search(ctx context.Context, q string) ([]address.Candidate, error) {
	params := url.Values{}
	params.Set("text", q)
	params.Set("filter", "countrycode:jp")
	params.Set("lang", "ja")
	params.Set("limit", fmt.Sprint(address.MaxCandidates))
	params.Set("format", "json")
	params.Set("apiKey", r.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build geoapify request: %w", err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geoapify request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read geoapify response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geoapify status %d", resp.StatusCode)
	}

	var parsed struct {
		Results []geoapifyResult `json:"results"`
	}
	if err := sonic.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode geoapify response: %w", err)
	}

	out := make([]address.Candidate, 0, len(parsed.Results))
	for i, res := range parsed.Results {
		if res.Formatted == "" {
			continue
		}
		district := res.District
		if district == "" {
			district = res.Suburb
		}
		out = append(out, address.Candidate{
			Index:            i,
			FormattedAddress: res.Formatted,
			PostalCode:       res.Postcode,
			Prefecture:       res.State,
			City:             res.City,
			District:         district,
			Lat:              res.Lat,
			Lng:              res.Lon,
			Raw:              res,
		})
	}

	r.logger.Debug("ADDRESS", "Geoapify lookup", map[string]interface{}{"query": q, "results": len(out)})
	return out, nil
}

func cloneCandidates(in []address.Candidate) []address.Candidate {
	return append([]address.Candidate(nil), in...)
}
