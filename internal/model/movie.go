package model

import "time"

// Movie is a locally stored copy of a catalog title. The ID is the
// upstream catalog's identifier kept as a string; movies are only
// ingested when an admin schedules shows for them.
type Movie struct {
	ID               string       `json:"id"`
	Title            string       `json:"title"`
	Overview         string       `json:"overview"`
	PosterPath       string       `json:"poster_path"`
	BackdropPath     string       `json:"backdrop_path"`
	ReleaseDate      string       `json:"release_date"`
	OriginalLanguage string       `json:"original_language"`
	Tagline          string       `json:"tagline"`
	Genres           []Genre      `json:"genres"`
	Casts            []CastMember `json:"casts"`
	VoteAverage      float64      `json:"vote_average"`
	Runtime          uint32       `json:"runtime"`
	CreatedAt        time.Time    `json:"-"`
}

// Genre is one catalog genre tag.
type Genre struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// CastMember is one credited cast entry with a portrait.
type CastMember struct {
	Name        string `json:"name"`
	ProfilePath string `json:"profile_path"`
}
