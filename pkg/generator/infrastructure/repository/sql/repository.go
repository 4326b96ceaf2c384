// Package sql implements the content repository on the database adapter.
package sql

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/tigerroll/eventgen/pkg/generator/adapter/database"
	gormadapter "github.com/tigerroll/eventgen/pkg/generator/adapter/database/gorm"
	"github.com/tigerroll/eventgen/pkg/generator/core/domain/model"
	"github.com/tigerroll/eventgen/pkg/generator/core/domain/repository"
	"github.com/tigerroll/eventgen/pkg/generator/core/tx"
	"github.com/tigerroll/eventgen/pkg/generator/support/util/exception"
	"github.com/tigerroll/eventgen/pkg/generator/support/util/logger"
)

// innoDBProbe lists the storage engine of the content tables in the current schema.
const innoDBProbe = "SELECT TABLE_NAME AS table_name, ENGINE AS engine FROM information_schema.TABLES " +
	"WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME IN ?"

// transactionalTables must all be transactional for a bulk insert to be atomic.
var transactionalTables = []string{TableRecords, TableRecordMeta, TableTermRelationships}

type tableEngine struct {
	TableName string `gorm:"column:table_name"`
	Engine    string `gorm:"column:engine"`
}

// SQLContentRepository implements repository.ContentRepository and
// repository.RowStore on one named database connection.
type SQLContentRepository struct {
	dbResolver database.DBConnectionResolver
	dbName     string
}

// NewSQLContentRepository creates a repository for connection dbName.
func NewSQLContentRepository(dbResolver database.DBConnectionResolver, dbName string) *SQLContentRepository {
	return &SQLContentRepository{dbResolver: dbResolver, dbName: dbName}
}

func (r *SQLContentRepository) getDBConnection(ctx context.Context) (database.DBConnection, error) {
	conn, err := r.dbResolver.ResolveDBConnection(ctx, r.dbName)
	if err != nil {
		return nil, exception.NewStorageWriteError("SQLContentRepository", fmt.Sprintf("failed to resolve DB connection '%s'", r.dbName), err)
	}
	return conn, nil
}

// getExecutor returns the transaction in ctx, or the connection when there is none.
// The connection is not resolved while a transaction is open.
func (r *SQLContentRepository) getExecutor(ctx context.Context) (database.DBExecutor, error) {
	if t, ok := tx.FromContext(ctx); ok {
		if exec, ok := t.(database.DBExecutor); ok {
			return exec, nil
		}
	}
	return r.getDBConnection(ctx)
}

func (r *SQLContentRepository) dbType(ctx context.Context) (string, error) {
	if t, ok := tx.FromContext(ctx); ok {
		if dbTx, ok := t.(database.Tx); ok {
			return dbTx.Type(), nil
		}
	}
	conn, err := r.getDBConnection(ctx)
	if err != nil {
		return "", err
	}
	return conn.Type(), nil
}

func storageError(op, message string, err error) error {
	if gormadapter.IsTableNotExistError(err) {
		message += " (content tables missing, run 'eventgen migrate')"
	}
	return exception.NewStorageWriteError(op, message, err)
}

// Create implements repository.ContentRepository.
func (r *SQLContentRepository) Create(ctx context.Context, kind model.EntityKind, fields model.RecordFields) (int64, error) {
	const op = "SQLContentRepository.Create"

	row := fields.Row
	row.ID = 0
	row.Kind = kind.RecordType()
	if row.Status == "" {
		row.Status = model.StatusPublish
	}
	if row.GUID == "" {
		row.GUID = uuid.NewString()
	}
	now := time.Now().UTC()
	if row.CreatedAt.IsZero() {
		row.CreatedAt = now
	}
	if row.ModifiedAt.IsZero() {
		row.ModifiedAt = row.CreatedAt
	}

	id, err := r.InsertRecordRow(ctx, row)
	if err != nil {
		return 0, err
	}
	if id == 0 {
		return 0, exception.NewStorageWriteError(op, fmt.Sprintf("no id assigned to new %s", row.Kind), nil)
	}
	if err := r.InsertMetadata(ctx, id, fields.Meta); err != nil {
		return 0, err
	}

	termIDs := distinct(fields.TermIDs)
	relations := make([]model.TermRelation, len(termIDs))
	for i, termID := range termIDs {
		relations[i] = model.TermRelation{TermTaxonomyID: termID}
	}
	if err := r.InsertRelations(ctx, id, relations); err != nil {
		return 0, err
	}
	if err := r.IncrementTermCounts(ctx, termIDs, 1); err != nil {
		return 0, err
	}

	logger.Debugf("Created %s record %d.", row.Kind, id)
	return id, nil
}

// recordQuery builds the records query for kind and filter. It returns false when
// the filter can match nothing.
func (r *SQLContentRepository) recordQuery(ctx context.Context, exec database.DBExecutor, kind model.EntityKind, filter model.Filter) (map[string]interface{}, bool, error) {
	query := map[string]interface{}{"kind": kind.RecordType()}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.TopLevelOnly {
		query["parent_id"] = 0
	}
	if filter.GeneratedOnly {
		var ids []int64
		err := exec.Pluck(ctx, &MetaEntity{}, "record_id", &ids, map[string]interface{}{
			"meta_key":   model.MetaGeneratedMarker,
			"meta_value": model.GeneratedMarkerValue,
		})
		if err != nil {
			return nil, false, err
		}
		if len(ids) == 0 {
			return nil, false, nil
		}
		query["id"] = ids
	}
	return query, true, nil
}

// Count implements repository.ContentRepository.
func (r *SQLContentRepository) Count(ctx context.Context, kind model.EntityKind, filter model.Filter) (int64, error) {
	const op = "SQLContentRepository.Count"
	exec, err := r.getExecutor(ctx)
	if err != nil {
		return 0, err
	}
	query, ok, err := r.recordQuery(ctx, exec, kind, filter)
	if err != nil {
		return 0, storageError(op, "failed to read generated marker", err)
	}
	if !ok {
		return 0, nil
	}
	n, err := exec.Count(ctx, &RecordEntity{}, query)
	if err != nil {
		return 0, storageError(op, fmt.Sprintf("failed to count %s", kind), err)
	}
	return n, nil
}

// ListIDs implements repository.ContentRepository.
func (r *SQLContentRepository) ListIDs(ctx context.Context, kind model.EntityKind, filter model.Filter) ([]int64, error) {
	const op = "SQLContentRepository.ListIDs"
	exec, err := r.getExecutor(ctx)
	if err != nil {
		return nil, err
	}
	return r.listIDs(ctx, op, exec, kind, filter)
}

func (r *SQLContentRepository) listIDs(ctx context.Context, op string, exec database.DBExecutor, kind model.EntityKind, filter model.Filter) ([]int64, error) {
	query, ok, err := r.recordQuery(ctx, exec, kind, filter)
	if err != nil {
		return nil, storageError(op, "failed to read generated marker", err)
	}
	if !ok {
		return nil, nil
	}
	var ids []int64
	if err := exec.Pluck(ctx, &RecordEntity{}, "id", &ids, query); err != nil {
		return nil, storageError(op, fmt.Sprintf("failed to list %s", kind), err)
	}
	return ids, nil
}

// Delete implements repository.ContentRepository.
func (r *SQLContentRepository) Delete(ctx context.Context, kind model.EntityKind, filter model.Filter) (int64, error) {
	const op = "SQLContentRepository.Delete"
	exec, err := r.getExecutor(ctx)
	if err != nil {
		return 0, err
	}
	ids, err := r.listIDs(ctx, op, exec, kind, filter)
	if err != nil || len(ids) == 0 {
		return 0, err
	}

	var children []int64
	if err := exec.Pluck(ctx, &RecordEntity{}, "id", &children, map[string]interface{}{"parent_id": ids}); err != nil {
		return 0, storageError(op, "failed to list occurrences", err)
	}
	all := append(ids, children...)

	var relations []RelationEntity
	if err := exec.ExecuteQuery(ctx, &relations, map[string]interface{}{"object_id": all}); err != nil {
		return 0, storageError(op, "failed to read term relationships", err)
	}
	perTerm := make(map[int64]int64)
	for _, rel := range relations {
		perTerm[rel.TermTaxonomyID]++
	}
	for termID, n := range perTerm {
		if _, err := exec.ExecuteIncrement(ctx, TableTermTaxonomy, "count", -n, "term_taxonomy_id", []int64{termID}); err != nil {
			return 0, storageError(op, fmt.Sprintf("failed to decrement count of term %d", termID), err)
		}
	}

	if _, err := exec.ExecuteUpdate(ctx, &RelationEntity{}, database.OperationDelete, TableTermRelationships, map[string]interface{}{"object_id": all}); err != nil {
		return 0, storageError(op, "failed to delete term relationships", err)
	}
	if _, err := exec.ExecuteUpdate(ctx, &MetaEntity{}, database.OperationDelete, TableRecordMeta, map[string]interface{}{"record_id": all}); err != nil {
		return 0, storageError(op, "failed to delete metadata", err)
	}
	removed, err := exec.ExecuteUpdate(ctx, &RecordEntity{}, database.OperationDelete, TableRecords, map[string]interface{}{"id": all})
	if err != nil {
		return 0, storageError(op, fmt.Sprintf("failed to delete %s", kind), err)
	}
	logger.Debugf("Deleted %d %s records (%d occurrences).", removed, kind, len(children))
	return removed, nil
}

// UpsertTerm implements repository.ContentRepository.
func (r *SQLContentRepository) UpsertTerm(ctx context.Context, name, taxonomy string) (int64, error) {
	const op = "SQLContentRepository.UpsertTerm"
	exec, err := r.getExecutor(ctx)
	if err != nil {
		return 0, err
	}
	slug := Slugify(name)

	var found []TermEntity
	if err := exec.ExecuteQueryAdvanced(ctx, &found, map[string]interface{}{"taxonomy": taxonomy, "slug": slug}, "", 1); err != nil {
		return 0, storageError(op, fmt.Sprintf("failed to look up term '%s'", name), err)
	}
	if len(found) > 0 {
		return found[0].TermTaxonomyID, nil
	}

	term := TermEntity{Name: name, Slug: slug, Taxonomy: taxonomy}
	if _, err := exec.ExecuteUpdate(ctx, &term, database.OperationCreate, term.TableName(), nil); err != nil {
		return 0, storageError(op, fmt.Sprintf("failed to create term '%s'", name), err)
	}
	logger.Debugf("Created %s term '%s' (%d).", taxonomy, name, term.TermTaxonomyID)
	return term.TermTaxonomyID, nil
}

// DeleteTerms implements repository.ContentRepository.
func (r *SQLContentRepository) DeleteTerms(ctx context.Context, taxonomy, slug string) (int64, error) {
	const op = "SQLContentRepository.DeleteTerms"
	exec, err := r.getExecutor(ctx)
	if err != nil {
		return 0, err
	}
	query := map[string]interface{}{"taxonomy": taxonomy}
	if slug != "" {
		query["slug"] = slug
	}
	var ids []int64
	if err := exec.Pluck(ctx, &TermEntity{}, "term_taxonomy_id", &ids, query); err != nil {
		return 0, storageError(op, "failed to list terms", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}
	if _, err := exec.ExecuteUpdate(ctx, &RelationEntity{}, database.OperationDelete, TableTermRelationships, map[string]interface{}{"term_taxonomy_id": ids}); err != nil {
		return 0, storageError(op, "failed to delete term relationships", err)
	}
	removed, err := exec.ExecuteUpdate(ctx, &TermEntity{}, database.OperationDelete, TableTermTaxonomy, map[string]interface{}{"term_taxonomy_id": ids})
	if err != nil {
		return 0, storageError(op, "failed to delete terms", err)
	}
	return removed, nil
}

// ReadMetaValue implements repository.ContentRepository.
func (r *SQLContentRepository) ReadMetaValue(ctx context.Context, id int64, key string) (string, error) {
	const op = "SQLContentRepository.ReadMetaValue"
	exec, err := r.getExecutor(ctx)
	if err != nil {
		return "", err
	}
	var found []MetaEntity
	if err := exec.ExecuteQueryAdvanced(ctx, &found, map[string]interface{}{"record_id": id, "meta_key": key}, "meta_id", 1); err != nil {
		return "", storageError(op, fmt.Sprintf("failed to read '%s' of record %d", key, id), err)
	}
	if len(found) == 0 {
		return "", nil
	}
	return found[0].MetaValue, nil
}

// ReadRecordRow implements repository.RowStore.
func (r *SQLContentRepository) ReadRecordRow(ctx context.Context, id int64) (model.RecordRow, error) {
	const op = "SQLContentRepository.ReadRecordRow"
	exec, err := r.getExecutor(ctx)
	if err != nil {
		return model.RecordRow{}, err
	}
	var found []RecordEntity
	if err := exec.ExecuteQueryAdvanced(ctx, &found, map[string]interface{}{"id": id}, "", 1); err != nil {
		return model.RecordRow{}, storageError(op, fmt.Sprintf("failed to read record %d", id), err)
	}
	if len(found) == 0 {
		return model.RecordRow{}, exception.NewStorageWriteError(op, fmt.Sprintf("record %d not found", id), nil)
	}
	return found[0].toModel(), nil
}

// InsertRecordRow implements repository.RowStore.
func (r *SQLContentRepository) InsertRecordRow(ctx context.Context, row model.RecordRow) (int64, error) {
	const op = "SQLContentRepository.InsertRecordRow"
	exec, err := r.getExecutor(ctx)
	if err != nil {
		return 0, err
	}
	entity := toRecordEntity(row)
	entity.ID = 0
	if _, err := exec.ExecuteUpdate(ctx, &entity, database.OperationCreate, entity.TableName(), nil); err != nil {
		return 0, storageError(op, fmt.Sprintf("failed to insert %s row", row.Kind), err)
	}
	return entity.ID, nil
}

// ReadMetadata implements repository.RowStore.
func (r *SQLContentRepository) ReadMetadata(ctx context.Context, id int64) ([]model.MetaEntry, error) {
	const op = "SQLContentRepository.ReadMetadata"
	exec, err := r.getExecutor(ctx)
	if err != nil {
		return nil, err
	}
	var found []MetaEntity
	if err := exec.ExecuteQueryAdvanced(ctx, &found, map[string]interface{}{"record_id": id}, "meta_id", 0); err != nil {
		return nil, storageError(op, fmt.Sprintf("failed to read metadata of record %d", id), err)
	}
	entries := make([]model.MetaEntry, len(found))
	for i, m := range found {
		entries[i] = model.MetaEntry{Key: m.MetaKey, Value: m.MetaValue}
	}
	return entries, nil
}

// InsertMetadata implements repository.RowStore.
func (r *SQLContentRepository) InsertMetadata(ctx context.Context, id int64, entries []model.MetaEntry) error {
	const op = "SQLContentRepository.InsertMetadata"
	if len(entries) == 0 {
		return nil
	}
	exec, err := r.getExecutor(ctx)
	if err != nil {
		return err
	}
	entities := toMetaEntities(id, entries)
	if _, err := exec.ExecuteUpdate(ctx, &entities, database.OperationCreate, TableRecordMeta, nil); err != nil {
		return storageError(op, fmt.Sprintf("failed to insert metadata of record %d", id), err)
	}
	return nil
}

// ReadRelations implements repository.RowStore.
func (r *SQLContentRepository) ReadRelations(ctx context.Context, id int64) ([]model.TermRelation, error) {
	const op = "SQLContentRepository.ReadRelations"
	exec, err := r.getExecutor(ctx)
	if err != nil {
		return nil, err
	}
	var found []RelationEntity
	if err := exec.ExecuteQueryAdvanced(ctx, &found, map[string]interface{}{"object_id": id}, "term_order, term_taxonomy_id", 0); err != nil {
		return nil, storageError(op, fmt.Sprintf("failed to read term relationships of record %d", id), err)
	}
	relations := make([]model.TermRelation, len(found))
	for i, rel := range found {
		relations[i] = model.TermRelation{TermTaxonomyID: rel.TermTaxonomyID, TermOrder: rel.TermOrder}
	}
	return relations, nil
}

// InsertRelations implements repository.RowStore.
func (r *SQLContentRepository) InsertRelations(ctx context.Context, id int64, relations []model.TermRelation) error {
	const op = "SQLContentRepository.InsertRelations"
	if len(relations) == 0 {
		return nil
	}
	exec, err := r.getExecutor(ctx)
	if err != nil {
		return err
	}
	entities := toRelationEntities(id, relations)
	if _, err := exec.ExecuteUpdate(ctx, &entities, database.OperationCreate, TableTermRelationships, nil); err != nil {
		return storageError(op, fmt.Sprintf("failed to insert term relationships of record %d", id), err)
	}
	return nil
}

// IncrementTermCounts implements repository.RowStore. Updating no row for a
// non-empty id list is a failure.
func (r *SQLContentRepository) IncrementTermCounts(ctx context.Context, termIDs []int64, delta int64) error {
	const op = "SQLContentRepository.IncrementTermCounts"
	if len(termIDs) == 0 {
		return nil
	}
	exec, err := r.getExecutor(ctx)
	if err != nil {
		return err
	}
	affected, err := exec.ExecuteIncrement(ctx, TableTermTaxonomy, "count", delta, "term_taxonomy_id", termIDs)
	if err != nil {
		return storageError(op, "failed to update term counts", err)
	}
	if affected == 0 {
		return exception.NewStorageWriteError(op, fmt.Sprintf("no term count updated for terms %v", termIDs), nil)
	}
	return nil
}

// SupportsTransactions implements repository.RowStore. MySQL tables are checked
// for the InnoDB engine; the other dialects are always transactional.
func (r *SQLContentRepository) SupportsTransactions(ctx context.Context) (bool, error) {
	const op = "SQLContentRepository.SupportsTransactions"
	dbType, err := r.dbType(ctx)
	if err != nil {
		return false, err
	}
	if dbType != "mysql" {
		return true, nil
	}

	exec, err := r.getExecutor(ctx)
	if err != nil {
		return false, err
	}
	var engines []tableEngine
	if err := exec.ExecuteRawQuery(ctx, &engines, innoDBProbe, transactionalTables); err != nil {
		return false, storageError(op, "failed to read table engines", err)
	}
	innodb := make(map[string]bool, len(engines))
	for _, e := range engines {
		innodb[e.TableName] = strings.EqualFold(e.Engine, "InnoDB")
	}
	for _, table := range transactionalTables {
		if !innodb[table] {
			logger.Infof("Table '%s' is not InnoDB; bulk occurrence insert is unavailable.", table)
			return false, nil
		}
	}
	return true, nil
}

// Slugify lowercases name and joins its alphanumeric runs with '-'.
func Slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, c := range strings.ToLower(strings.TrimSpace(name)) {
		if unicode.IsLetter(c) || unicode.IsDigit(c) {
			b.WriteRune(c)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

func distinct(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

var (
	_ repository.ContentRepository = (*SQLContentRepository)(nil)
	_ repository.RowStore          = (*SQLContentRepository)(nil)
)
