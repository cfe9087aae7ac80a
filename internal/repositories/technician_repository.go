package repositories

import (
	"context"
	"fmt"

	intdb "github.com/muhammed-shimlal/Kallayi-car-spa/internal/db"
	"github.com/muhammed-shimlal/Kallayi-car-spa/internal/domain"
	"github.com/muhammed-shimlal/Kallayi-car-spa/internal/domain/models"

	"github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"
)

type technicianRow struct {
	ID       int64  `db:"id"`
	Name     string `db:"name"`
	Role     string `db:"role"`
	IsActive bool   `db:"is_active"`
}

func (r technicianRow) model() models.Technician {
	return models.Technician{ID: r.ID, Name: r.Name, Role: r.Role, IsActive: r.IsActive}
}

// TechnicianRepository is the technician pool.
type TechnicianRepository struct {
	DB *sqlx.DB
}

func (r TechnicianRepository) db() *sqlx.DB { return orShared(r.DB) }

// ListActive returns active washers ordered by id. A non-empty category
// limits the pool to technicians registered for it.
func (r TechnicianRepository) ListActive(ctx context.Context, category string) ([]models.Technician, error) {
	ds := dialect.From("technicians").Prepared(true).
		Select("id", "name", "role", "is_active").
		Where(
			goqu.C("role").Eq(models.RoleWasher),
			goqu.C("is_active").Eq(1),
		).
		Order(goqu.C("id").Asc())
	if category != "" {
		skilled := dialect.From("technician_categories").
			Select("technician_id").
			Where(goqu.C("category").Eq(category))
		ds = ds.Where(goqu.C("id").In(skilled))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build technician query: %w", err)
	}
	var rows []technicianRow
	if err := r.db().SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list technicians: %w", err)
	}
	out := make([]models.Technician, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.model())
	}
	return out, nil
}

func (r TechnicianRepository) GetByID(ctx context.Context, id int64) (models.Technician, error) {
	var row technicianRow
	err := r.db().GetContext(ctx, &row, `SELECT id, name, role, is_active FROM technicians WHERE id = ? LIMIT 1`, id)
	if intdb.IsNoRows(err) {
		return models.Technician{}, domain.NotFoundError{Resource: "technician", Err: err}
	}
	if err != nil {
		return models.Technician{}, fmt.Errorf("get technician %d: %w", id, err)
	}
	return row.model(), nil
}
