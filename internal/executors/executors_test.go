package executors

import (
	"context"
	"fmt"

	"github.com/andreibyf/aishacrm-engine/internal/store"
	"github.com/andreibyf/aishacrm-engine/pkg/schema"
)

// fakeCRM is an in-memory CRMStore for executor tests.
type fakeCRM struct {
	records   []*store.Record
	insertErr error
	updateErr error
}

func (f *fakeCRM) InsertRecord(_ context.Context, rec *store.Record) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.records = append(f.records, rec)
	return nil
}

func (f *fakeCRM) FindRecord(_ context.Context, tenantID, entity, field, value string) (*store.Record, error) {
	for _, rec := range f.records {
		if rec.TenantID != tenantID || rec.Entity != entity {
			continue
		}
		if fmt.Sprintf("%v", rec.Data[field]) == value {
			return rec, nil
		}
	}
	return nil, schema.NewErrorf(schema.ErrCodeNotFound, "%s %q not found", entity, field+"="+value)
}

func (f *fakeCRM) UpdateRecord(_ context.Context, tenantID, entity, id string, fields map[string]any) (*store.Record, error) {
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	for _, rec := range f.records {
		if rec.TenantID == tenantID && rec.Entity == entity && rec.ID == id {
			for k, v := range fields {
				rec.Data[k] = v
			}
			return rec, nil
		}
	}
	return nil, schema.NewErrorf(schema.ErrCodeNotFound, "%s %q not found", entity, id)
}

func (f *fakeCRM) byEntity(entity string) []*store.Record {
	var out []*store.Record
	for _, rec := range f.records {
		if rec.Entity == entity {
			out = append(out, rec)
		}
	}
	return out
}

func testContext(payload map[string]any) *RunContext {
	return NewRunContext("tenant-1", "wf-1", payload)
}

var _ CRMStore = (*fakeCRM)(nil)
