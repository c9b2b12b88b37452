package api

import (
	"github.com/starford/genresync/internal/index"
	"github.com/starford/genresync/internal/models"
	"github.com/starford/genresync/internal/syncservice"
)

// SettingsRequest is the body of PUT /api/settings. Omitted fields keep
// their stored value.
type SettingsRequest = syncservice.SettingsPatch

// SettingsResponse is the persisted settings object.
type SettingsResponse = models.Settings

// SyncResponse is the report of one "Update Genre Pages" run.
type SyncResponse = models.RunReport

// GenreListResponse wraps the indexed genres.
type GenreListResponse struct {
	Genres []index.GenreRow `json:"genres"`
}

// GenreArtistsResponse lists the artists declaring a genre.
type GenreArtistsResponse struct {
	Genre   string   `json:"genre"`
	Artists []string `json:"artists"`
}

// RunListResponse wraps recent runs.
type RunListResponse struct {
	Runs []index.RunRow `json:"runs"`
}
