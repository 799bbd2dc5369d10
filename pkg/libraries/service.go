package libraries

import (
	"context"
	"database/sql"
	"time"

	"github.com/komoribooks/komori/pkg/errcodes"
	"github.com/komoribooks/komori/pkg/models"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

// volumeCountColumn annotates a library row with how many volumes its scans
// have produced so far.
const volumeCountColumn = "(SELECT COUNT(*) FROM volumes AS v WHERE v.library_id = l.id) AS volume_count"

type RetrieveLibraryOptions struct {
	ID *int
}

type ListLibrariesOptions struct {
	Limit          *int
	Offset         *int
	IncludeDeleted bool

	includeTotal bool
}

type UpdateLibraryOptions struct {
	Columns            []string
	UpdateLibraryPaths bool
}

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db}
}

func (svc *Service) CreateLibrary(ctx context.Context, library *models.Library) error {
	now := time.Now()
	if library.CreatedAt.IsZero() {
		library.CreatedAt = now
	}
	library.UpdatedAt = library.CreatedAt

	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.
			NewInsert().
			Model(library).
			Returning("*").
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		return errors.WithStack(insertLibraryPaths(ctx, tx, library, library.CreatedAt))
	})

	return errors.WithStack(err)
}

// insertLibraryPaths persists a library's in-memory paths, stamping the FK
// and timestamp. Shared by create and the update-time path replacement.
func insertLibraryPaths(ctx context.Context, tx bun.Tx, library *models.Library, now time.Time) error {
	if len(library.LibraryPaths) == 0 {
		return nil
	}

	for _, path := range library.LibraryPaths {
		path.LibraryID = library.ID
		path.CreatedAt = now
	}

	_, err := tx.
		NewInsert().
		Model(&library.LibraryPaths).
		Returning("*").
		Exec(ctx)
	return errors.WithStack(err)
}

// libraryQuery is the base select every read goes through: library columns,
// the derived volume count, and paths ordered deterministically.
func (svc *Service) libraryQuery(model interface{}) *bun.SelectQuery {
	return svc.db.
		NewSelect().
		Model(model).
		Column("l.*").
		ColumnExpr(volumeCountColumn).
		Relation("LibraryPaths", func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.Order("filepath ASC")
		})
}

func (svc *Service) RetrieveLibrary(ctx context.Context, opts RetrieveLibraryOptions) (*models.Library, error) {
	library := &models.Library{}

	q := svc.libraryQuery(library)
	if opts.ID != nil {
		q = q.Where("l.id = ?", *opts.ID)
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Library")
		}
		return nil, errors.WithStack(err)
	}

	return library, nil
}

func (svc *Service) ListLibraries(ctx context.Context, opts ListLibrariesOptions) ([]*models.Library, error) {
	l, _, err := svc.listLibrariesWithTotal(ctx, opts)
	return l, errors.WithStack(err)
}

func (svc *Service) ListLibrariesWithTotal(ctx context.Context, opts ListLibrariesOptions) ([]*models.Library, int, error) {
	opts.includeTotal = true
	return svc.listLibrariesWithTotal(ctx, opts)
}

func (svc *Service) listLibrariesWithTotal(ctx context.Context, opts ListLibrariesOptions) ([]*models.Library, int, error) {
	libraries := []*models.Library{}
	var total int
	var err error

	q := svc.libraryQuery(&libraries).
		Order("l.name ASC")

	if opts.Limit != nil {
		q = q.Limit(*opts.Limit)
	}
	if opts.Offset != nil {
		q = q.Offset(*opts.Offset)
	}
	if !opts.IncludeDeleted {
		q = q.Where("l.deleted_at IS NULL")
	}

	if opts.includeTotal {
		total, err = q.ScanAndCount(ctx)
	} else {
		err = q.Scan(ctx)
	}
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}

	return libraries, total, nil
}

func (svc *Service) UpdateLibrary(ctx context.Context, library *models.Library, opts UpdateLibraryOptions) error {
	if len(opts.Columns) == 0 && !opts.UpdateLibraryPaths {
		return nil
	}

	now := time.Now()
	library.UpdatedAt = now
	columns := append(opts.Columns, "updated_at")

	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.
			NewUpdate().
			Model(library).
			Column(columns...).
			WherePK().
			Exec(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return errcodes.NotFound("Library")
			}
			return errors.WithStack(err)
		}

		if !opts.UpdateLibraryPaths {
			return nil
		}

		// Paths are replaced wholesale: drop the stored set, reinsert what the
		// caller provided.
		_, err = tx.
			NewDelete().
			Model((*models.LibraryPath)(nil)).
			Where("library_id = ?", library.ID).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		return errors.WithStack(insertLibraryPaths(ctx, tx, library, now))
	})

	return errors.WithStack(err)
}
