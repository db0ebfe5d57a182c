package web

import (
	"errors"
	"html/template"
	"net/http"

	"github.com/google/uuid"
	"github.com/kevinmichaelchen/delta/internal/changelog"
	"github.com/kevinmichaelchen/delta/internal/errs"
	"github.com/kevinmichaelchen/delta/internal/models"
	"github.com/kevinmichaelchen/delta/internal/storage"
	"github.com/labstack/echo/v4"
)

const statusPath = "/status"

func (s *Server) routes() {
	s.echo.GET("/", s.index)
	s.echo.GET("/repos/:id", s.changelog)
	s.echo.GET("/details", s.details)
	s.echo.GET(statusPath, s.status)
}

type indexPage struct {
	Repositories []models.RepositorySummary
}

func (s *Server) index(c echo.Context) error {
	repos, err := s.store.ListRepositories(c.Request().Context())
	if err != nil {
		return err
	}
	return c.Render(http.StatusOK, pageIndex, indexPage{Repositories: repos})
}

type renderedEntry struct {
	models.ChangelogEntry
	HTML template.HTML
}

type changelogPage struct {
	Repository models.Repository
	Entries    []renderedEntry
}

func (s *Server) changelog(c echo.Context) error {
	ctx := c.Request().Context()

	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		return errs.NewBadRequestError("Invalid repository id")
	}

	repo, err := s.store.GetRepository(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return errs.NewNotFoundError("Repository not found")
		}
		return err
	}

	entries, err := s.store.ListEntries(ctx, repo.ID)
	if err != nil {
		return err
	}

	page := changelogPage{Repository: repo, Entries: make([]renderedEntry, 0, len(entries))}
	for _, e := range entries {
		html, err := changelog.RenderHTML(e.Content)
		if err != nil {
			return err
		}
		page.Entries = append(page.Entries, renderedEntry{ChangelogEntry: e, HTML: html})
	}

	return c.Render(http.StatusOK, pageChangelog, page)
}

func (s *Server) details(c echo.Context) error {
	return c.Render(http.StatusOK, pageDetails, nil)
}

type statusResponse struct {
	Status  string       `json:"status"`
	Storage string       `json:"storage"`
	Stats   models.Stats `json:"stats"`
}

func (s *Server) status(c echo.Context) error {
	ctx := c.Request().Context()

	if err := s.store.Ping(ctx); err != nil {
		s.getLogger(c).Error().Err(err).Msg("storage ping failed")
		return errs.NewServiceUnavailableError("Storage is unavailable")
	}

	stats, err := s.store.Stats(ctx)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, statusResponse{Status: "ok", Storage: "ok", Stats: stats})
}
