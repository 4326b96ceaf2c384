package creator

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"path"
	"time"

	"github.com/tigerroll/eventgen/pkg/generator/adapter/storage"
	"github.com/tigerroll/eventgen/pkg/generator/component/content"
	"github.com/tigerroll/eventgen/pkg/generator/core/config"
	"github.com/tigerroll/eventgen/pkg/generator/core/domain/model"
	"github.com/tigerroll/eventgen/pkg/generator/core/domain/repository"
	"github.com/tigerroll/eventgen/pkg/generator/core/metrics"
	"github.com/tigerroll/eventgen/pkg/generator/support/util/logger"
)

// Placeholder image size.
const (
	placeholderWidth  = 640
	placeholderHeight = 360
	mimePNG           = "image/png"
)

// UploadCreator renders placeholder images, stores them and records them as
// uploads.
type UploadCreator struct {
	repo       repository.ContentRepository
	storage    storage.StorageConnectionResolver
	storageRef string
	bucket     string
	provider   *content.Provider
	cache      *CandidateCache
	recorder   metrics.MetricRecorder
	now        func() time.Time
}

// NewUploadCreator creates the upload Creator.
func NewUploadCreator(cfg *config.Config, repo repository.ContentRepository, resolver storage.StorageConnectionResolver, provider *content.Provider, cache *CandidateCache, recorder metrics.MetricRecorder) *UploadCreator {
	return &UploadCreator{
		repo:       repo,
		storage:    resolver,
		storageRef: cfg.EventGen.Infrastructure.StorageRef,
		bucket:     cfg.EventGen.Generator.UploadBucket,
		provider:   provider,
		cache:      cache,
		recorder:   recorder,
		now:        time.Now,
	}
}

// Kind implements Creator.
func (c *UploadCreator) Kind() model.EntityKind { return model.KindUpload }

// Create implements Creator.
func (c *UploadCreator) Create(ctx context.Context, n int, _ model.EntityQuantity) ([]int64, error) {
	const op = "UploadCreator.Create"

	conn, err := c.storage.ResolveStorageConnection(ctx, c.storageRef)
	if err != nil {
		return nil, storageError(op, fmt.Sprintf("failed to resolve storage '%s'", c.storageRef), err)
	}

	ids := make([]int64, 0, n)
	defer func() {
		if len(ids) > 0 {
			c.cache.Invalidate(model.KindUpload)
			c.recorder.RecordRecordsCreated(ctx, model.KindUpload, len(ids))
		}
	}()
	for i := 0; i < n; i++ {
		id, err := c.createOne(ctx, conn)
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	logger.Debugf("Created %d uploads in '%s'.", len(ids), c.bucket)
	return ids, nil
}

func (c *UploadCreator) createOne(ctx context.Context, conn storage.StorageConnection) (int64, error) {
	const op = "UploadCreator.createOne"

	data, err := c.render()
	if err != nil {
		return 0, storageError(op, "failed to render placeholder image", err)
	}
	name := path.Join(c.now().UTC().Format("2006/01"), "eventgen-"+c.provider.HexToken(8)+".png")
	if err := conn.Upload(ctx, c.bucket, name, bytes.NewReader(data), mimePNG); err != nil {
		return 0, storageError(op, fmt.Sprintf("failed to store '%s'", name), err)
	}

	fields := c.provider.RandomFields(model.KindUpload)
	fields.Row.MimeType = mimePNG
	fields.Row.GUID = conn.URL(c.bucket, name)
	fields.Meta = append(fields.Meta,
		model.MetaEntry{Key: model.MetaAttachedFile, Value: name},
		model.MetaEntry{Key: model.MetaSourceURL, Value: c.provider.ImageSourceURL()},
	)
	id, err := c.repo.Create(ctx, model.KindUpload, fields)
	if err != nil {
		if delErr := conn.DeleteObject(ctx, c.bucket, name); delErr != nil {
			logger.Warnf("Failed to remove orphaned upload '%s': %v", name, delErr)
		}
		return 0, err
	}
	return id, nil
}

func (c *UploadCreator) render() ([]byte, error) {
	r, g, b := c.provider.Color()
	img := image.NewRGBA(image.Rect(0, 0, placeholderWidth, placeholderHeight))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.RGBA{R: r, G: g, B: b, A: 0xff}}, image.Point{}, draw.Src)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
