package series

import (
	"context"
	"database/sql"
	"time"

	"github.com/komoribooks/komori/pkg/errcodes"
	"github.com/komoribooks/komori/pkg/models"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

type RetrieveSeriesOptions struct {
	ID        *int
	LibraryID *int
	Name      *string
}

type ListSeriesOptions struct {
	Limit     *int
	Offset    *int
	LibraryID *int

	includeTotal bool
}

type RetrieveVolumeOptions struct {
	ID        *int
	LibraryID *int
	Filepath  *string
}

type ListVolumesOptions struct {
	LibraryID *int
	SeriesID  *int
}

type UpdateVolumeOptions struct {
	Columns []string
}

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db}
}

// FindOrCreateSeries returns the series with the given name in the library,
// creating it first when it doesn't exist yet.
func (svc *Service) FindOrCreateSeries(ctx context.Context, name string, libraryID int) (*models.Series, error) {
	series, err := svc.RetrieveSeries(ctx, RetrieveSeriesOptions{
		LibraryID: &libraryID,
		Name:      &name,
	})
	if err != nil && !errors.Is(err, errcodes.NotFound("Series")) {
		return nil, errors.WithStack(err)
	}
	if series != nil {
		return series, nil
	}

	series = &models.Series{
		LibraryID: libraryID,
		Name:      name,
	}
	now := time.Now()
	series.CreatedAt = now
	series.UpdatedAt = now

	_, err = svc.db.
		NewInsert().
		Model(series).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return series, nil
}

func (svc *Service) RetrieveSeries(ctx context.Context, opts RetrieveSeriesOptions) (*models.Series, error) {
	series := &models.Series{}

	q := svc.db.
		NewSelect().
		Model(series).
		Column("s.*").
		ColumnExpr("(SELECT COUNT(*) FROM volumes AS v WHERE v.series_id = s.id) AS volume_count").
		Relation("Volumes", func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.Order("number ASC", "name ASC")
		})

	if opts.ID != nil {
		q = q.Where("s.id = ?", *opts.ID)
	}
	if opts.LibraryID != nil {
		q = q.Where("s.library_id = ?", *opts.LibraryID)
	}
	if opts.Name != nil {
		q = q.Where("s.name = ?", *opts.Name)
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Series")
		}
		return nil, errors.WithStack(err)
	}

	return series, nil
}

func (svc *Service) ListSeries(ctx context.Context, opts ListSeriesOptions) ([]*models.Series, error) {
	s, _, err := svc.listSeriesWithTotal(ctx, opts)
	return s, errors.WithStack(err)
}

func (svc *Service) ListSeriesWithTotal(ctx context.Context, opts ListSeriesOptions) ([]*models.Series, int, error) {
	opts.includeTotal = true
	return svc.listSeriesWithTotal(ctx, opts)
}

func (svc *Service) listSeriesWithTotal(ctx context.Context, opts ListSeriesOptions) ([]*models.Series, int, error) {
	series := []*models.Series{}
	var total int
	var err error

	q := svc.db.
		NewSelect().
		Model(&series).
		Column("s.*").
		ColumnExpr("(SELECT COUNT(*) FROM volumes AS v WHERE v.series_id = s.id) AS volume_count").
		Order("s.name ASC")

	if opts.Limit != nil {
		q = q.Limit(*opts.Limit)
	}
	if opts.Offset != nil {
		q = q.Offset(*opts.Offset)
	}
	if opts.LibraryID != nil {
		q = q.Where("s.library_id = ?", *opts.LibraryID)
	}

	if opts.includeTotal {
		total, err = q.ScanAndCount(ctx)
	} else {
		err = q.Scan(ctx)
	}
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}

	return series, total, nil
}

func (svc *Service) CreateVolume(ctx context.Context, volume *models.Volume) error {
	now := time.Now()
	if volume.CreatedAt.IsZero() {
		volume.CreatedAt = now
	}
	volume.UpdatedAt = volume.CreatedAt

	_, err := svc.db.
		NewInsert().
		Model(volume).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

func (svc *Service) RetrieveVolume(ctx context.Context, opts RetrieveVolumeOptions) (*models.Volume, error) {
	volume := &models.Volume{}

	q := svc.db.
		NewSelect().
		Model(volume)

	if opts.ID != nil {
		q = q.Where("v.id = ?", *opts.ID)
	}
	if opts.LibraryID != nil {
		q = q.Where("v.library_id = ?", *opts.LibraryID)
	}
	if opts.Filepath != nil {
		q = q.Where("v.filepath = ?", *opts.Filepath)
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Volume")
		}
		return nil, errors.WithStack(err)
	}

	return volume, nil
}

func (svc *Service) ListVolumes(ctx context.Context, opts ListVolumesOptions) ([]*models.Volume, error) {
	volumes := []*models.Volume{}

	q := svc.db.
		NewSelect().
		Model(&volumes).
		Order("v.number ASC", "v.name ASC")

	if opts.LibraryID != nil {
		q = q.Where("v.library_id = ?", *opts.LibraryID)
	}
	if opts.SeriesID != nil {
		q = q.Where("v.series_id = ?", *opts.SeriesID)
	}

	err := q.Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return volumes, nil
}

func (svc *Service) UpdateVolume(ctx context.Context, volume *models.Volume, opts UpdateVolumeOptions) error {
	if len(opts.Columns) == 0 {
		return nil
	}

	volume.UpdatedAt = time.Now()
	columns := append(opts.Columns, "updated_at")

	_, err := svc.db.
		NewUpdate().
		Model(volume).
		Column(columns...).
		WherePK().
		Exec(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return errcodes.NotFound("Volume")
		}
		return errors.WithStack(err)
	}

	return nil
}
