package sql

import (
	"time"

	"github.com/tigerroll/eventgen/pkg/generator/core/domain/model"
)

// Table names of the content schema.
const (
	TableRecords           = "records"
	TableRecordMeta        = "record_meta"
	TableTermTaxonomy      = "term_taxonomy"
	TableTermRelationships = "term_relationships"
)

// RecordEntity maps the records table.
type RecordEntity struct {
	ID         int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Kind       string    `gorm:"column:kind"`
	Title      string    `gorm:"column:title"`
	Content    string    `gorm:"column:content"`
	Excerpt    string    `gorm:"column:excerpt"`
	Status     string    `gorm:"column:status"`
	ParentID   int64     `gorm:"column:parent_id"`
	GUID       string    `gorm:"column:guid"`
	MimeType   string    `gorm:"column:mime_type"`
	CreatedAt  time.Time `gorm:"column:created_at"`
	ModifiedAt time.Time `gorm:"column:modified_at"`
}

// TableName implements gorm's Tabler.
func (RecordEntity) TableName() string { return TableRecords }

// MetaEntity maps the record_meta table.
type MetaEntity struct {
	MetaID    int64  `gorm:"column:meta_id;primaryKey;autoIncrement"`
	RecordID  int64  `gorm:"column:record_id"`
	MetaKey   string `gorm:"column:meta_key"`
	MetaValue string `gorm:"column:meta_value"`
}

// TableName implements gorm's Tabler.
func (MetaEntity) TableName() string { return TableRecordMeta }

// TermEntity maps the term_taxonomy table.
type TermEntity struct {
	TermTaxonomyID int64  `gorm:"column:term_taxonomy_id;primaryKey;autoIncrement"`
	Name           string `gorm:"column:name"`
	Slug           string `gorm:"column:slug"`
	Taxonomy       string `gorm:"column:taxonomy"`
	Count          int64  `gorm:"column:count"`
}

// TableName implements gorm's Tabler.
func (TermEntity) TableName() string { return TableTermTaxonomy }

// RelationEntity maps the term_relationships table.
type RelationEntity struct {
	ObjectID       int64 `gorm:"column:object_id;primaryKey;autoIncrement:false"`
	TermTaxonomyID int64 `gorm:"column:term_taxonomy_id;primaryKey;autoIncrement:false"`
	TermOrder      int   `gorm:"column:term_order"`
}

// TableName implements gorm's Tabler.
func (RelationEntity) TableName() string { return TableTermRelationships }

func toRecordEntity(row model.RecordRow) RecordEntity {
	return RecordEntity{
		ID:         row.ID,
		Kind:       row.Kind,
		Title:      row.Title,
		Content:    row.Content,
		Excerpt:    row.Excerpt,
		Status:     row.Status,
		ParentID:   row.ParentID,
		GUID:       row.GUID,
		MimeType:   row.MimeType,
		CreatedAt:  row.CreatedAt,
		ModifiedAt: row.ModifiedAt,
	}
}

func (e RecordEntity) toModel() model.RecordRow {
	return model.RecordRow{
		ID:         e.ID,
		Kind:       e.Kind,
		Title:      e.Title,
		Content:    e.Content,
		Excerpt:    e.Excerpt,
		Status:     e.Status,
		ParentID:   e.ParentID,
		GUID:       e.GUID,
		MimeType:   e.MimeType,
		CreatedAt:  e.CreatedAt,
		ModifiedAt: e.ModifiedAt,
	}
}

func toMetaEntities(recordID int64, entries []model.MetaEntry) []MetaEntity {
	out := make([]MetaEntity, len(entries))
	for i, e := range entries {
		out[i] = MetaEntity{RecordID: recordID, MetaKey: e.Key, MetaValue: e.Value}
	}
	return out
}

func toRelationEntities(recordID int64, relations []model.TermRelation) []RelationEntity {
	out := make([]RelationEntity, len(relations))
	for i, rel := range relations {
		out[i] = RelationEntity{ObjectID: recordID, TermTaxonomyID: rel.TermTaxonomyID, TermOrder: rel.TermOrder}
	}
	return out
}
