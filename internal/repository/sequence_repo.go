package repository

import (
	"context"

	"opticinvoicer/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SequenceRepository hands out monotonically increasing document numbers
// per (organization, scope, year).
type SequenceRepository interface {
	NextValue(ctx context.Context, orgID uuid.UUID, scope string, year int) (int64, error)
}

type sequenceRepository struct {
	db *gorm.DB
}

func NewSequenceRepository(db *gorm.DB) SequenceRepository {
	return &sequenceRepository{db: db}
}

// NextValue increments and returns the counter in a single upsert so two
// concurrent callers can never observe the same value. The first call for a
// new (org, scope, year) triple creates the row at 1.
func (r *sequenceRepository) NextValue(ctx context.Context, orgID uuid.UUID, scope string, year int) (int64, error) {
	seq := model.NumberSequence{
		OrganizationID: orgID,
		Scope:          scope,
		Year:           year,
		Value:          1,
	}
	err := GetDB(ctx, r.db).Clauses(
		clause.OnConflict{
			Columns: []clause.Column{{Name: "organization_id"}, {Name: "scope"}, {Name: "year"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"value": gorm.Expr("number_sequences.value + 1"),
			}),
		},
		clause.Returning{Columns: []clause.Column{{Name: "value"}}},
	).Create(&seq).Error
	if err != nil {
		return 0, err
	}
	return seq.Value, nil
}
