package worker

import (
	"context"

	"github.com/komoribooks/komori/pkg/models"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
)

func (w *Worker) ProcessPurgeJob(ctx context.Context, job *models.Job) error {
	log := logger.FromContext(ctx)

	data, ok := job.DataParsed.(*models.JobPurgeData)
	if !ok || data == nil {
		return errors.New("purge job has no data")
	}

	log.Info("processing purge job", logger.Data{"volume_count": len(data.VolumeIDs)})

	if err := w.pageCache.Purge(ctx, data.VolumeIDs...); err != nil {
		return errors.WithStack(err)
	}

	log.Info("finished purge job")
	return nil
}
