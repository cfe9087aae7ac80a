package repositories

import (
	"context"
	"database/sql"
	"fmt"

	intdb "github.com/muhammed-shimlal/Kallayi-car-spa/internal/db"
	"github.com/muhammed-shimlal/Kallayi-car-spa/internal/domain"
	"github.com/muhammed-shimlal/Kallayi-car-spa/internal/domain/models"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

const packageSelect = `
	SELECT p.id, p.name, p.category, COALESCE(p.description, '') AS description,
		p.price, p.duration_minutes, p.chemical_recipe,
		r.id AS rule_id, COALESCE(r.name, '') AS rule_name, r.flat_amount, r.percentage
	FROM service_packages p
	LEFT JOIN commission_rules r ON r.id = p.commission_rule_id`

type packageRow struct {
	ID              int64               `db:"id"`
	Name            string              `db:"name"`
	Category        string              `db:"category"`
	Description     string              `db:"description"`
	Price           decimal.Decimal     `db:"price"`
	DurationMinutes int                 `db:"duration_minutes"`
	Recipe          []byte              `db:"chemical_recipe"`
	RuleID          sql.NullInt64       `db:"rule_id"`
	RuleName        string              `db:"rule_name"`
	FlatAmount      decimal.NullDecimal `db:"flat_amount"`
	Percentage      decimal.NullDecimal `db:"percentage"`
}

func (r packageRow) model() (models.ServicePackage, error) {
	recipe, err := domain.ParseRecipe(r.Recipe)
	if err != nil {
		return models.ServicePackage{}, fmt.Errorf("package %d: %w", r.ID, err)
	}
	p := models.ServicePackage{
		ID:              r.ID,
		Name:            r.Name,
		Category:        r.Category,
		Description:     r.Description,
		Price:           r.Price,
		DurationMinutes: r.DurationMinutes,
		Recipe:          recipe,
	}
	if r.RuleID.Valid {
		p.CommissionRule = &models.CommissionRule{
			ID:         r.RuleID.Int64,
			Name:       r.RuleName,
			FlatAmount: r.FlatAmount.Decimal,
			Percentage: r.Percentage.Decimal,
		}
	}
	return p, nil
}

// PackageRepository is the read side of the service catalog.
type PackageRepository struct {
	DB *sqlx.DB
}

func (r PackageRepository) db() *sqlx.DB { return orShared(r.DB) }

func (r PackageRepository) GetByID(ctx context.Context, id int64) (models.ServicePackage, error) {
	var row packageRow
	err := r.db().GetContext(ctx, &row, packageSelect+` WHERE p.id = ? LIMIT 1`, id)
	if intdb.IsNoRows(err) {
		return models.ServicePackage{}, domain.NotFoundError{Resource: "service package", Err: err}
	}
	if err != nil {
		return models.ServicePackage{}, fmt.Errorf("get package %d: %w", id, err)
	}
	return row.model()
}

func (r PackageRepository) List(ctx context.Context) ([]models.ServicePackage, error) {
	var rows []packageRow
	if err := r.db().SelectContext(ctx, &rows, packageSelect+` ORDER BY p.price ASC, p.id ASC`); err != nil {
		return nil, fmt.Errorf("list packages: %w", err)
	}
	out := make([]models.ServicePackage, 0, len(rows))
	for _, row := range rows {
		p, err := row.model()
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
