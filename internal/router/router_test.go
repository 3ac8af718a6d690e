package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/festmap/internal/config"
	"github.com/user/festmap/internal/handler"
	"github.com/user/festmap/internal/model"
	"github.com/user/festmap/internal/repository"
)

func TestRoutesWithRealTemplates(t *testing.T) {
	gin.SetMode(gin.TestMode)

	repos := repository.NewRepositories(nil, t.TempDir())
	require.NoError(t, repos.Dataset.SaveFullMovies([]model.EnrichedMovieRecord{{
		MovieRecord: model.MovieRecord{Title: "Alpha", Director: model.Unknown, Section: "Fale", Description: "Opis.", URL: "program/25/alpha"},
	}}))

	renderer, err := LoadTemplates("../../web/templates")
	require.NoError(t, err)

	r := gin.New()
	r.HTMLRender = renderer
	RegisterRoutes(r, handler.NewHandler(repos, &config.Config{SiteName: "Mapa filmów"}))

	for _, c := range []struct {
		path     string
		contains string
	}{
		{"/health", `"ok"`},
		{"/", "Mapa filmów"},
		{"/api/movies", "Alpha"},
		{"/api/sections", "Fale"},
	} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, c.path, nil))
		assert.Equal(t, http.StatusOK, w.Code, c.path)
		assert.Contains(t, w.Body.String(), c.contains, c.path)
	}
}

func TestLoadTemplatesMissingDir(t *testing.T) {
	_, err := LoadTemplates(t.TempDir())
	require.Error(t, err)
}
