package ingest

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Record types for the raw layer.
const (
	RecordTypeAnimalInfo  = "animal_info"
	RecordTypeOwnerInfo   = "owner_info"
	RecordTypeServiceLine = "service_line"
)

// RawRecord is a content-hashed copy of one export row, kept verbatim so
// the operational layer can always be rebuilt. Re-submitting identical
// content under the same logical source id is a no-op.
type RawRecord struct {
	ID             uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	RecordType     string         `gorm:"column:record_type;not null;uniqueIndex:idx_raw_record_dedup" json:"record_type"`
	SourceRecordID string         `gorm:"column:source_record_id;not null;uniqueIndex:idx_raw_record_dedup" json:"source_record_id"`
	RowHash        string         `gorm:"column:row_hash;not null;uniqueIndex:idx_raw_record_dedup" json:"row_hash"`
	Payload        datatypes.JSON `gorm:"column:payload;type:jsonb" json:"payload"`
	CreatedAt      time.Time      `gorm:"not null;default:now()" json:"created_at"`
}

func (RawRecord) TableName() string { return "raw_record" }
