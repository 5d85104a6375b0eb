package ingest

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/feralops/tnr-backend/internal/domain/ingest"
	"github.com/feralops/tnr-backend/internal/platform/dbctx"
	"github.com/feralops/tnr-backend/internal/platform/logger"
)

type RawRecordRepo interface {
	// Insert writes one raw record, reporting whether a row was
	// actually stored. A duplicate (record_type, source_record_id,
	// row_hash) triple is a no-op and returns false.
	Insert(dbc dbctx.Context, rec *types.RawRecord) (bool, error)
	CountByType(dbc dbctx.Context, recordType string) (int64, error)
}

type rawRecordRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRawRecordRepo(db *gorm.DB, baseLog *logger.Logger) RawRecordRepo {
	return &rawRecordRepo{db: db, log: baseLog.With("repo", "RawRecordRepo")}
}

func (r *rawRecordRepo) Insert(dbc dbctx.Context, rec *types.RawRecord) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	result := transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "record_type"},
				{Name: "source_record_id"},
				{Name: "row_hash"},
			},
			DoNothing: true,
		}).
		Create(rec)
	if result.Error != nil {
		return false, mapError("insert raw record", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *rawRecordRepo) CountByType(dbc dbctx.Context, recordType string) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	var n int64
	err := transaction.WithContext(dbc.Ctx).
		Model(&types.RawRecord{}).
		Where("record_type = ?", recordType).
		Count(&n).Error
	if err != nil {
		return 0, mapError("count raw records", err)
	}
	return n, nil
}
