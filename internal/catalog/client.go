// Package catalog implements the client for the external movie-catalog
// API. The catalog is the source of truth for movie metadata; the
// service only keeps local copies of titles that have shows scheduled.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/iliyamo/movie-ticket-booking/internal/model"
)

// requestTimeout bounds every catalog call; the upstream occasionally
// stalls and ingestion must fail fast rather than hang the admin request.
const requestTimeout = 15 * time.Second

// Client talks to the catalog API using a bearer key.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// New returns a Client for the given base URL and API key.
func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: requestTimeout},
	}
}

// MovieSummary is one entry of the now-playing listing. It carries the
// subset of fields the admin UI needs to pick a title for ingestion.
type MovieSummary struct {
	ID           int64   `json:"id"`
	Title        string  `json:"title"`
	Overview     string  `json:"overview"`
	PosterPath   string  `json:"poster_path"`
	BackdropPath string  `json:"backdrop_path"`
	ReleaseDate  string  `json:"release_date"`
	VoteAverage  float64 `json:"vote_average"`
}

// MovieDetails mirrors the catalog's movie-by-id payload.
type MovieDetails struct {
	ID               int64         `json:"id"`
	Title            string        `json:"title"`
	Overview         string        `json:"overview"`
	PosterPath       string        `json:"poster_path"`
	BackdropPath     string        `json:"backdrop_path"`
	ReleaseDate      string        `json:"release_date"`
	OriginalLanguage string        `json:"original_language"`
	Tagline          string        `json:"tagline"`
	Genres           []model.Genre `json:"genres"`
	VoteAverage      float64       `json:"vote_average"`
	Runtime          uint32        `json:"runtime"`
}

// CastMember is one credited cast entry.
type CastMember struct {
	Name        string `json:"name"`
	ProfilePath string `json:"profile_path"`
}

// Credits mirrors the catalog's credits payload. Only the cast list is
// used; crew entries are ignored.
type Credits struct {
	Cast []CastMember `json:"cast"`
}

// NowPlaying returns the catalog's currently running movies.
func (c *Client) NowPlaying(ctx context.Context) ([]MovieSummary, error) {
	var out struct {
		Results []MovieSummary `json:"results"`
	}
	if err := c.get(ctx, "/3/movie/now_playing", &out); err != nil {
		return nil, err
	}
	return out.Results, nil
}

// MovieByID returns full details for one movie.
func (c *Client) MovieByID(ctx context.Context, id string) (*MovieDetails, error) {
	var out MovieDetails
	if err := c.get(ctx, "/3/movie/"+id, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreditsByID returns the cast list for one movie.
func (c *Client) CreditsByID(ctx context.Context, id string) (*Credits, error) {
	var out Credits
	if err := c.get(ctx, "/3/movie/"+id+"/credits", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("catalog: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("catalog: %s returned status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
