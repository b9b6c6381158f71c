package publisher

import (
	"context"
	"errors"
	"log"

	"github.com/granary-project/granary/cmd/loops/hook"
	"github.com/granary-project/granary/cmd/loops/recurring"
	apiqueue "github.com/granary-project/granary/pkg/api/types/queue"
	"github.com/granary-project/granary/pkg/domain"
	"github.com/granary-project/granary/pkg/domain/domination"
	"github.com/granary-project/granary/pkg/domain/publishing"
	dbpublishing "github.com/granary-project/granary/pkg/domain/publishing/db"
	"github.com/granary-project/granary/pkg/domain/queue"
	dbqueue "github.com/granary-project/granary/pkg/domain/queue/db"
)

// initial value for task
func Seed() struct{} {
	return struct{}{}
}

type suite struct {
	archiveId int
	seriesId  int
	pocket    domain.Pocket
}

// return:
//
// - task: realise ACCEPTED uploads into publications, then publish and
// dominate every suite they touched.
//
// An upload which cannot be realised is logged and left ACCEPTED for the
// next cycle. Suite-level failures break the cycle with error.
func Task(
	logger *log.Logger,
	uploads dbqueue.Interface,
	queues *queue.Queue,
	publisher *publishing.Publisher,
	dominator *domination.Dominator,
	pub dbpublishing.Interface,
	hooks hook.Hook[apiqueue.Summary, struct{}],
) recurring.Task[struct{}] {
	return func(ctx context.Context, value struct{}) (struct{}, bool, error) {
		accepted, err := uploads.List(ctx, dbqueue.Filter{
			Statuses: []domain.UploadStatus{domain.UploadAccepted},
		})
		if err != nil {
			return value, false, err
		}

		dirty := []suite{}
		seen := map[suite]bool{}
		for _, u := range accepted {
			summary := apiqueue.ComposeSummary(u)
			if _, err := hooks.Before(summary); err != nil {
				logger.Printf("upload %d: before hook: %s. skipped.", u.Id, err)
				continue
			}
			if err := queues.Realise(ctx, u.Id); err != nil {
				if errors.Is(err, ctx.Err()) {
					return value, false, err
				}
				logger.Printf("upload %d: cannot realise: %s", u.Id, err)
				continue
			}

			s := suite{archiveId: u.ArchiveId, seriesId: u.SeriesId, pocket: u.Pocket}
			if !seen[s] {
				seen[s] = true
				dirty = append(dirty, s)
			}

			if err := hooks.After(summary); err != nil {
				logger.Printf("upload %d: after hook: %s", u.Id, err)
			}
		}

		published := 0
		for _, s := range dirty {
			n, err := publisher.PublishPending(ctx, s.archiveId, s.seriesId, s.pocket)
			if err != nil {
				return value, false, err
			}
			published += n

			sources, err := pub.LiveSources(ctx, s.archiveId, s.seriesId, s.pocket)
			if err != nil {
				return value, false, err
			}
			binaries, err := pub.LiveBinaries(ctx, s.archiveId, s.seriesId, s.pocket)
			if err != nil {
				return value, false, err
			}

			decisions := dominator.Dominate(sources, binaries)
			if decisions.Empty() {
				continue
			}
			if err := pub.Apply(ctx, decisions); err != nil {
				return value, false, err
			}
		}

		return value, 0 < len(dirty) || 0 < published, nil
	}
}
