package cleaner

import (
	"context"
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/eventgen/pkg/generator/adapter/storage"
	"github.com/tigerroll/eventgen/pkg/generator/component/content"
	"github.com/tigerroll/eventgen/pkg/generator/component/creator"
	"github.com/tigerroll/eventgen/pkg/generator/core/config"
	"github.com/tigerroll/eventgen/pkg/generator/core/domain/model"
	"github.com/tigerroll/eventgen/pkg/generator/infrastructure/repository/inmemory"
	"github.com/tigerroll/eventgen/pkg/generator/support/util/exception"
	"github.com/tigerroll/eventgen/pkg/generator/test"
)

func generated(title string) model.RecordFields {
	return model.RecordFields{
		Row:  model.RecordRow{Title: title},
		Meta: []model.MetaEntry{{Key: model.MetaGeneratedMarker, Value: model.GeneratedMarkerValue}},
	}
}

func manual(title string) model.RecordFields {
	return model.RecordFields{Row: model.RecordRow{Title: title}}
}

type seeded struct {
	store *inmemory.Store
	dir   string
	files []string
	cfg   *config.Config
	res   storage.StorageConnectionResolver
	kept  int64
}

func seed(t *testing.T) *seeded {
	t.Helper()
	ctx := context.Background()
	store := inmemory.NewStore()
	dir, _, resolver := test.NewLocalStorage(t)
	cfg := config.NewConfig()

	category, err := store.UpsertTerm(ctx, model.DefaultEventCategoryName, model.TaxonomyEventCategory)
	require.NoError(t, err)
	_, err = store.UpsertTerm(ctx, "Workshops", model.TaxonomyEventCategory)
	require.NoError(t, err)
	_, err = store.UpsertTerm(ctx, model.DefaultEventTagName, model.TaxonomyTag)
	require.NoError(t, err)
	kept, err := store.UpsertTerm(ctx, "Keep", model.TaxonomyTag)
	require.NoError(t, err)

	for _, kind := range []model.EntityKind{model.KindVenue, model.KindOrganizer} {
		_, err := store.Create(ctx, kind, generated("generated "+kind.String()))
		require.NoError(t, err)
		_, err = store.Create(ctx, kind, manual("manual "+kind.String()))
		require.NoError(t, err)
	}
	event := generated("Generated event")
	event.TermIDs = []int64{category}
	parent, err := store.Create(ctx, model.KindEvent, event)
	require.NoError(t, err)
	occ := generated("Generated event")
	occ.Row.ParentID = parent
	_, err = store.Create(ctx, model.KindEvent, occ)
	require.NoError(t, err)
	_, err = store.Create(ctx, model.KindEvent, manual("Hand-made event"))
	require.NoError(t, err)

	provider := content.NewProvider(rand.New(rand.NewSource(3)))
	uploads := creator.NewUploadCreator(cfg, store, resolver, provider, creator.NewCandidateCache(store), test.NewMetricsSpy())
	ids, err := uploads.Create(ctx, 2, model.EntityQuantity{})
	require.NoError(t, err)

	s := &seeded{store: store, dir: dir, cfg: cfg, res: resolver, kept: kept}
	for _, id := range ids {
		name, err := store.ReadMetaValue(ctx, id, model.MetaAttachedFile)
		require.NoError(t, err)
		s.files = append(s.files, filepath.Join(dir, cfg.EventGen.Generator.UploadBucket, name))
	}
	return s
}

func count(t *testing.T, store *inmemory.Store, kind model.EntityKind) int64 {
	t.Helper()
	n, err := store.Count(context.Background(), kind, model.Filter{})
	require.NoError(t, err)
	return n
}

func TestClearGeneratedKeepsManualContent(t *testing.T) {
	s := seed(t)
	for _, f := range s.files {
		require.FileExists(t, f)
	}

	report, err := NewCleaner(s.cfg, s.store, s.res).ClearGenerated(context.Background())
	require.NoError(t, err)

	assert.EqualValues(t, 1, report.Records[model.KindVenue])
	assert.EqualValues(t, 1, report.Records[model.KindOrganizer])
	assert.EqualValues(t, 2, report.Records[model.KindEvent])
	assert.EqualValues(t, 2, report.Records[model.KindUpload])
	assert.EqualValues(t, 2, report.Terms)
	assert.Equal(t, 2, report.Files)

	assert.EqualValues(t, 1, count(t, s.store, model.KindVenue))
	assert.EqualValues(t, 1, count(t, s.store, model.KindOrganizer))
	assert.EqualValues(t, 1, count(t, s.store, model.KindEvent))
	assert.EqualValues(t, 0, count(t, s.store, model.KindUpload))
	for _, f := range s.files {
		assert.NoFileExists(t, f)
	}

	_, ok := s.store.Term(s.kept)
	assert.True(t, ok, "hand-made tags survive")
}

func TestClearAllRemovesEveryCategory(t *testing.T) {
	s := seed(t)

	report, err := NewCleaner(s.cfg, s.store, s.res).ClearAll(context.Background())
	require.NoError(t, err)

	assert.EqualValues(t, 2, report.Records[model.KindVenue])
	assert.EqualValues(t, 3, report.Records[model.KindEvent])
	assert.EqualValues(t, 2, report.Terms)
	assert.Zero(t, count(t, s.store, model.KindVenue))
	assert.Zero(t, count(t, s.store, model.KindOrganizer))
	assert.Zero(t, count(t, s.store, model.KindEvent))
	assert.EqualValues(t, 2, count(t, s.store, model.KindUpload), "uploads are not part of a full clear")
	for _, f := range s.files {
		assert.FileExists(t, f)
	}
}

type failingResolver struct{}

func (failingResolver) ResolveStorageConnection(context.Context, string) (storage.StorageConnection, error) {
	return nil, errors.New("bucket gone")
}

func TestUnreachableStorageStopsBeforeDeletingRecords(t *testing.T) {
	s := seed(t)

	_, err := NewCleaner(s.cfg, s.store, failingResolver{}).ClearGenerated(context.Background())
	assert.ErrorIs(t, err, exception.ErrStorageWrite)
	assert.EqualValues(t, 2, count(t, s.store, model.KindVenue))
	assert.EqualValues(t, 2, count(t, s.store, model.KindUpload))
}

func TestClearGeneratedOnEmptyStore(t *testing.T) {
	_, _, resolver := test.NewLocalStorage(t)
	report, err := NewCleaner(config.NewConfig(), inmemory.NewStore(), resolver).ClearGenerated(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Files)
	assert.Zero(t, report.Terms)
}

func writeFile(t *testing.T, dir, bucket, name string) string {
	t.Helper()
	full := filepath.Join(dir, bucket, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte("png"), 0o644))
	return full
}

func TestClearGeneratedSweepsOrphanedFiles(t *testing.T) {
	s := seed(t)
	ctx := context.Background()
	bucket := s.cfg.EventGen.Generator.UploadBucket

	orphan := writeFile(t, s.dir, bucket, "2023/11/eventgen-0badf00d.png")
	unrelated := writeFile(t, s.dir, bucket, "2023/11/notes.txt")
	handMade := writeFile(t, s.dir, bucket, "2023/11/eventgen-cafe.png")
	upload := manual("Hand-made upload")
	upload.Meta = append(upload.Meta, model.MetaEntry{Key: model.MetaAttachedFile, Value: "2023/11/eventgen-cafe.png"})
	_, err := s.store.Create(ctx, model.KindUpload, upload)
	require.NoError(t, err)

	report, err := NewCleaner(s.cfg, s.store, s.res).ClearGenerated(ctx)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Files)
	assert.EqualValues(t, 2, report.Records[model.KindUpload])
	assert.NoFileExists(t, orphan)
	for _, f := range s.files {
		assert.NoFileExists(t, f)
	}
	assert.FileExists(t, unrelated)
	assert.FileExists(t, handMade, "files of hand-made uploads are kept")
	assert.EqualValues(t, 1, count(t, s.store, model.KindUpload))
}
