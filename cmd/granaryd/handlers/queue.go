package handlers

import (
	"errors"
	"net/http"
	"strconv"

	apierr "github.com/granary-project/granary/pkg/api/types/errors"
	apiqueue "github.com/granary-project/granary/pkg/api/types/queue"
	"github.com/granary-project/granary/pkg/domain"
	domerr "github.com/granary-project/granary/pkg/domain/errors"
	"github.com/granary-project/granary/pkg/domain/queue"
	dbqueue "github.com/granary-project/granary/pkg/domain/queue/db"
	"github.com/granary-project/granary/pkg/utils/slices"
	kstrings "github.com/granary-project/granary/pkg/utils/strings"
	"github.com/labstack/echo/v4"
)

func FindQueueHandler(dbQueue dbqueue.Interface) echo.HandlerFunc {

	return func(c echo.Context) error {
		c.Response().Header().Add("Content-Type", "application/json")
		filter, err := func(c echo.Context) (dbqueue.Filter, error) {

			result := dbqueue.Filter{
				Statuses: []domain.UploadStatus{},
			}

			for _, p := range kstrings.SplitIfNotEmpty(c.QueryParam("status"), ",") {
				s, err := domain.AsUploadStatus(p)
				if err != nil {
					return dbqueue.Filter{}, apierr.BadRequest(
						`"status" should be one of "new", "unapproved", "accepted", "done" or "rejected"`,
						err,
					)
				}
				result.Statuses = append(result.Statuses, s)
			}

			if archive := c.QueryParam("archive"); archive != "" {
				id, err := strconv.Atoi(archive)
				if err != nil {
					return dbqueue.Filter{}, apierr.BadRequest(
						`"archive" should be an archive id`, err,
					)
				}
				result.ArchiveId = &id
			}

			if series := c.QueryParam("series"); series != "" {
				id, err := strconv.Atoi(series)
				if err != nil {
					return dbqueue.Filter{}, apierr.BadRequest(
						`"series" should be a series id`, err,
					)
				}
				result.SeriesId = &id
			}

			return result, nil
		}(c)

		if err != nil {
			return err
		}
		ctx := c.Request().Context()

		uploads, err := dbQueue.List(ctx, filter)
		if err != nil {
			return apierr.InternalServerError(err)
		}

		c.JSON(http.StatusOK, slices.Map(uploads, func(u *domain.Upload) apiqueue.Summary {
			return apiqueue.ComposeSummary(u)
		}))

		return nil
	}

}

func GetQueueHandler(dbQueue dbqueue.Interface) echo.HandlerFunc {

	return func(c echo.Context) error {
		c.Response().Header().Add("Content-Type", "application/json")
		uploadId, err := strconv.Atoi(c.Param("uploadId"))
		if err != nil {
			return apierr.BadRequest(`"uploadId" should be an integer`, err)
		}
		ctx := c.Request().Context()

		upload, err := dbQueue.Get(ctx, uploadId)
		if err != nil {
			if errors.Is(err, domerr.ErrMissing) {
				return apierr.NotFound()
			}
			return apierr.InternalServerError(err)
		}

		c.JSON(http.StatusOK, apiqueue.ComposeDetail(upload))

		return nil
	}
}

// AcceptQueueHandler moves an upload to ACCEPTED after the acceptance
// checks pass. policy is fixed per archive deployment, not per request.
func AcceptQueueHandler(q *queue.Queue, paramUploadId string, policy domain.PolicyConfig) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Add("Content-Type", "application/json")
		uploadId, err := strconv.Atoi(c.Param(paramUploadId))
		if err != nil {
			return apierr.BadRequest(`"uploadId" should be an integer`, err)
		}
		ctx := c.Request().Context()

		if err := q.Accept(ctx, uploadId, policy); err != nil {
			return queueError(err)
		}

		c.JSON(http.StatusOK, struct{}{})

		return nil
	}
}

func RejectQueueHandler(q *queue.Queue, paramUploadId string) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Add("Content-Type", "application/json")
		uploadId, err := strconv.Atoi(c.Param(paramUploadId))
		if err != nil {
			return apierr.BadRequest(`"uploadId" should be an integer`, err)
		}
		ctx := c.Request().Context()

		if err := q.Reject(ctx, uploadId); err != nil {
			return queueError(err)
		}

		c.JSON(http.StatusOK, struct{}{})

		return nil
	}
}

func queueError(err error) error {
	if errors.Is(err, domerr.ErrMissing) {
		return apierr.NotFound()
	}
	if errors.Is(err, domerr.ErrInconsistentState) {
		return apierr.Conflict("prohibited operation", apierr.WithError(err))
	}
	if errors.Is(err, domerr.ErrConflict) {
		return apierr.Conflict(err.Error())
	}
	return apierr.InternalServerError(err)
}
