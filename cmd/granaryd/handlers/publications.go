package handlers

import (
	"net/http"
	"strconv"

	apierr "github.com/granary-project/granary/pkg/api/types/errors"
	apipub "github.com/granary-project/granary/pkg/api/types/publications"
	"github.com/granary-project/granary/pkg/domain"
	dbpublishing "github.com/granary-project/granary/pkg/domain/publishing/db"
	"github.com/granary-project/granary/pkg/utils/slices"
	"github.com/labstack/echo/v4"
)

// GetSuiteHandler lists a suite's live publications.
//
// The suite is addressed by query parameters: archive (id), series (id)
// and pocket (name). All three are required.
func GetSuiteHandler(dbPub dbpublishing.Interface) echo.HandlerFunc {

	return func(c echo.Context) error {
		c.Response().Header().Add("Content-Type", "application/json")

		archiveId, err := strconv.Atoi(c.QueryParam("archive"))
		if err != nil {
			return apierr.BadRequest(`"archive" should be an archive id`, err)
		}
		seriesId, err := strconv.Atoi(c.QueryParam("series"))
		if err != nil {
			return apierr.BadRequest(`"series" should be a series id`, err)
		}
		pocket, err := domain.AsPocket(c.QueryParam("pocket"))
		if err != nil {
			return apierr.BadRequest(
				`"pocket" should be one of "release", "security", "updates", "proposed" or "backports"`,
				err,
			)
		}

		ctx := c.Request().Context()

		sources, err := dbPub.LiveSources(ctx, archiveId, seriesId, pocket)
		if err != nil {
			return apierr.InternalServerError(err)
		}
		binaries, err := dbPub.LiveBinaries(ctx, archiveId, seriesId, pocket)
		if err != nil {
			return apierr.InternalServerError(err)
		}

		c.JSON(http.StatusOK, apipub.Suite{
			ArchiveId: archiveId,
			SeriesId:  seriesId,
			Pocket:    string(pocket),
			Sources:   slices.Map(sources, apipub.ComposeSource),
			Binaries:  slices.Map(binaries, apipub.ComposeBinary),
		})

		return nil
	}
}
