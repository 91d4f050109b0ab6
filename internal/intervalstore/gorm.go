package intervalstore

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	apperrors "github.com/trace-callgraph/pkg/errors"
	"github.com/trace-callgraph/pkg/model"
)

const defaultImportBatch = 500

// Migrate creates or updates the interval store tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&TraceRecord{}, &AttributeRecord{}, &IntervalRecord{}); err != nil {
		return apperrors.Wrap(apperrors.CodeStoreUnavailable, "failed to migrate interval tables", err)
	}
	return nil
}

// GormStore serves one trace's state history out of a SQL database. The
// attribute tree is loaded once; intervals are queried on demand.
type GormStore struct {
	db      *gorm.DB
	traceID string
	span    model.TimeRange
	tree    attributeTree
}

// OpenGormStore loads the attribute tree of traceID.
func OpenGormStore(ctx context.Context, db *gorm.DB, traceID string) (*GormStore, error) {
	var trace TraceRecord
	err := db.WithContext(ctx).Where("id = ?", traceID).First(&trace).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Newf(apperrors.CodeNotFound, "trace not found: %s", traceID)
		}
		return nil, storeError(ctx, "failed to load trace", err)
	}

	var attrs []AttributeRecord
	err = db.WithContext(ctx).
		Where("trace_id = ?", traceID).
		Order("id ASC").
		Find(&attrs).Error
	if err != nil {
		return nil, storeError(ctx, "failed to load attributes", err)
	}

	s := &GormStore{
		db:      db,
		traceID: traceID,
		span:    model.TimeRange{Start: trace.StartTime, End: trace.EndTime},
	}
	for _, a := range attrs {
		parent := model.AttributeID(a.ParentID)
		if parent != model.RootAttribute && !s.tree.valid(parent) {
			return nil, apperrors.Newf(apperrors.CodeInvalidInput, "attribute %d has unknown parent %d", a.ID, a.ParentID)
		}
		if id := s.tree.add(parent, a.Name); int(id) != a.ID {
			return nil, apperrors.Newf(apperrors.CodeInvalidInput, "attribute ids of %s are not dense", traceID)
		}
	}
	return s, nil
}

// TraceID returns the trace this store reads.
func (s *GormStore) TraceID() string {
	return s.traceID
}

// TimeSpan implements Store.
func (s *GormStore) TimeSpan() model.TimeRange {
	return s.span
}

// AttributesMatching implements Store.
func (s *GormStore) AttributesMatching(parent model.AttributeID, pattern ...string) []model.AttributeID {
	return s.tree.matching(parent, pattern...)
}

// AttributeRelative implements Store.
func (s *GormStore) AttributeRelative(parent model.AttributeID, path ...string) (model.AttributeID, error) {
	id, ok := s.tree.relative(parent, path...)
	if !ok {
		return 0, apperrors.Newf(apperrors.CodeNotFound, "attribute %v under %d", path, parent)
	}
	return id, nil
}

// SubAttributes implements Store.
func (s *GormStore) SubAttributes(id model.AttributeID) ([]model.AttributeID, error) {
	if id != model.RootAttribute && !s.tree.valid(id) {
		return nil, apperrors.Newf(apperrors.CodeNotFound, "attribute %d", id)
	}
	return append([]model.AttributeID(nil), s.tree.childrenOf(id)...), nil
}

// AttributeName implements Store.
func (s *GormStore) AttributeName(id model.AttributeID) string {
	return s.tree.name(id)
}

// QuerySingle implements Store.
func (s *GormStore) QuerySingle(ctx context.Context, t int64, id model.AttributeID) (model.Interval, error) {
	var rec IntervalRecord
	err := s.db.WithContext(ctx).
		Where("trace_id = ? AND attribute_id = ? AND start_time <= ? AND end_time >= ?", s.traceID, int(id), t, t).
		First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.Interval{}, apperrors.Newf(apperrors.CodeNotFound, "no state for %d at %d", id, t)
		}
		return model.Interval{}, storeError(ctx, "single query failed", err)
	}
	return rec.ToModel(), nil
}

// Query2D implements Store. Results are ordered by descending end time.
func (s *GormStore) Query2D(ctx context.Context, ids []model.AttributeID, r model.TimeRange) ([]model.Interval, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	raw := make([]int, len(ids))
	for i, id := range ids {
		raw[i] = int(id)
	}

	var recs []IntervalRecord
	err := s.db.WithContext(ctx).
		Where("trace_id = ? AND attribute_id IN ? AND end_time >= ? AND start_time <= ?", s.traceID, raw, r.Start, r.End).
		Order("end_time DESC, attribute_id ASC").
		Find(&recs).Error
	if err != nil {
		return nil, storeError(ctx, "range query failed", err)
	}

	out := make([]model.Interval, len(recs))
	for i := range recs {
		out[i] = recs[i].ToModel()
	}
	return out, nil
}

// Import copies a closed MemoryStore into the database under traceID,
// replacing any previous copy.
func Import(ctx context.Context, db *gorm.DB, traceID, name string, src *MemoryStore) error {
	d := src.ToDump()

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, m := range []interface{}{&IntervalRecord{}, &AttributeRecord{}} {
			if err := tx.Where("trace_id = ?", traceID).Delete(m).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("id = ?", traceID).Delete(&TraceRecord{}).Error; err != nil {
			return err
		}

		trace := &TraceRecord{
			ID:        traceID,
			Name:      name,
			StartTime: d.Start,
			EndTime:   d.End,
			CreatedAt: time.Now(),
		}
		if err := tx.Create(trace).Error; err != nil {
			return err
		}

		if len(d.Attributes) > 0 {
			attrs := make([]AttributeRecord, len(d.Attributes))
			for i, a := range d.Attributes {
				attrs[i] = AttributeRecord{TraceID: traceID, ID: int(a.ID), ParentID: int(a.Parent), Name: a.Name}
			}
			if err := tx.CreateInBatches(attrs, defaultImportBatch).Error; err != nil {
				return err
			}
		}

		if len(d.Intervals) > 0 {
			recs := make([]*IntervalRecord, len(d.Intervals))
			for i, iv := range d.Intervals {
				recs[i] = NewIntervalRecord(traceID, iv)
			}
			if err := tx.CreateInBatches(recs, defaultImportBatch).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return storeError(ctx, "failed to import trace "+traceID, err)
	}
	return nil
}

// ListTraces returns every imported trace, newest first.
func ListTraces(ctx context.Context, db *gorm.DB) ([]TraceRecord, error) {
	var traces []TraceRecord
	if err := db.WithContext(ctx).Order("created_at DESC").Find(&traces).Error; err != nil {
		return nil, storeError(ctx, "failed to list traces", err)
	}
	return traces, nil
}

func storeError(ctx context.Context, msg string, err error) error {
	if ctx.Err() != nil {
		return apperrors.Wrap(apperrors.CodeCancelled, msg, ctx.Err())
	}
	return apperrors.Wrap(apperrors.CodeStoreUnavailable, msg, err)
}
