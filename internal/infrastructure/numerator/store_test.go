package numerator

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoicedesk/internal/core/docstore"
	corenumerator "invoicedesk/internal/core/numerator"
	"invoicedesk/internal/infrastructure/storage/memory"
)

// flakyCollection fails selected operations of an otherwise working collection.
type flakyCollection struct {
	docstore.Collection

	failScan   error
	failUpdate error
	failFind   error
	failDelete error
}

func (f *flakyCollection) Find(ctx context.Context, filter docstore.Filter, opts docstore.FindOptions) ([]docstore.Document, error) {
	if f.failScan != nil {
		return nil, f.failScan
	}
	return f.Collection.Find(ctx, filter, opts)
}

func (f *flakyCollection) FindOneAndUpdate(ctx context.Context, filter docstore.Filter, update docstore.Update, opts docstore.UpdateOptions) (docstore.UpdateResult, error) {
	if f.failUpdate != nil {
		return docstore.UpdateResult{}, f.failUpdate
	}
	return f.Collection.FindOneAndUpdate(ctx, filter, update, opts)
}

func (f *flakyCollection) FindOne(ctx context.Context, filter docstore.Filter) (docstore.Document, error) {
	if f.failFind != nil {
		return nil, f.failFind
	}
	return f.Collection.FindOne(ctx, filter)
}

func (f *flakyCollection) DeleteOne(ctx context.Context, filter docstore.Filter) (int64, error) {
	if f.failDelete != nil {
		return 0, f.failDelete
	}
	return f.Collection.DeleteOne(ctx, filter)
}

// vanishingCollection drops every document right after the first increment,
// as if an operator wiped the collection mid-call.
type vanishingCollection struct {
	docstore.Collection
	once sync.Once
}

func (v *vanishingCollection) FindOneAndUpdate(ctx context.Context, filter docstore.Filter, update docstore.Update, opts docstore.UpdateOptions) (docstore.UpdateResult, error) {
	res, err := v.Collection.FindOneAndUpdate(ctx, filter, update, opts)
	v.once.Do(func() { _, _ = v.Collection.DeleteMany(ctx, docstore.Filter{}) })
	return res, err
}

// gatedScanCollection holds every scan until `callers` scans have read the
// collection, so all of them observe the same documents.
type gatedScanCollection struct {
	docstore.Collection
	arrived sync.WaitGroup
}

func newGatedScanCollection(coll docstore.Collection, callers int) *gatedScanCollection {
	g := &gatedScanCollection{Collection: coll}
	g.arrived.Add(callers)
	return g
}

func (g *gatedScanCollection) Find(ctx context.Context, filter docstore.Filter, opts docstore.FindOptions) ([]docstore.Document, error) {
	docs, err := g.Collection.Find(ctx, filter, opts)
	g.arrived.Done()
	g.arrived.Wait()
	return docs, err
}

// staleScanCollection answers scans with a snapshot taken earlier.
type staleScanCollection struct {
	docstore.Collection
	snapshot []docstore.Document
}

func (s *staleScanCollection) Find(ctx context.Context, filter docstore.Filter, opts docstore.FindOptions) ([]docstore.Document, error) {
	return s.snapshot, nil
}

func newTestService(opts ...memory.Option) (*Service, docstore.Collection) {
	coll := memory.NewStore(opts...).Collection(CollectionName)
	return NewService(NewStore(coll)), coll
}

func recordCount(t *testing.T, coll docstore.Collection) int64 {
	t.Helper()
	n, err := coll.Count(context.Background(), docstore.Filter{})
	require.NoError(t, err)
	return n
}

func TestService_ReadAdvanceRead(t *testing.T) {
	svc, coll := newTestService()
	ctx := context.Background()

	assert.Equal(t, int64(0), svc.GetCurrent(ctx))
	assert.Equal(t, int64(1), recordCount(t, coll), "peek on empty store creates the record")

	n, err := svc.GetNext(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = svc.GetNext(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	assert.Equal(t, int64(2), svc.GetCurrent(ctx))
	assert.Equal(t, int64(2), svc.GetCurrent(ctx), "peek must not consume")

	n, err = svc.GetNext(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.Equal(t, int64(1), recordCount(t, coll))
}

func TestService_ContinuesFromExistingValue(t *testing.T) {
	svc, coll := newTestService()
	ctx := context.Background()

	_, err := coll.InsertOne(ctx, docstore.Document{SequenceField: 41})
	require.NoError(t, err)

	n, err := svc.GetNext(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)
	assert.Equal(t, int64(42), svc.GetCurrent(ctx))
}

func TestService_AdvanceOnEmptyStoreStartsAtOne(t *testing.T) {
	svc, coll := newTestService()

	n, err := svc.GetNext(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, int64(1), recordCount(t, coll))
}

func TestService_ConcurrentAdvanceIsUnique(t *testing.T) {
	const workers = 64
	svc, coll := newTestService()
	ctx := context.Background()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		got  []int64
		errs []error
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := svc.GetNext(ctx)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			got = append(got, n)
		}()
	}
	wg.Wait()

	require.Empty(t, errs)
	sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
	for i, n := range got {
		assert.Equal(t, int64(i+1), n)
	}
	assert.Equal(t, int64(workers), svc.GetCurrent(ctx))
	assert.Equal(t, int64(1), recordCount(t, coll))
}

func TestService_ConcurrentPeekAndAdvanceKeepSingleRecord(t *testing.T) {
	svc, coll := newTestService()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if i%2 == 0 {
				svc.GetCurrent(ctx)
				return
			}
			_, _ = svc.GetNext(ctx)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), recordCount(t, coll))
	assert.Equal(t, int64(16), svc.GetCurrent(ctx))
}

func TestService_ReplyShapes(t *testing.T) {
	shapes := []docstore.Shape{docstore.ShapeRecord, docstore.ShapeWrapped, docstore.ShapeAck}

	for _, shape := range shapes {
		t.Run(shape.String(), func(t *testing.T) {
			svc, coll := newTestService(memory.WithUpdateShape(shape))
			ctx := context.Background()

			for want := int64(1); want <= 3; want++ {
				n, err := svc.GetNext(ctx)
				require.NoError(t, err)
				assert.Equal(t, want, n)
			}
			assert.Equal(t, int64(3), svc.GetCurrent(ctx))
			assert.Equal(t, int64(1), recordCount(t, coll))
		})
	}
}

func TestResolveUpdate(t *testing.T) {
	tests := []struct {
		name   string
		res    docstore.UpdateResult
		want   int64
		wantOK bool
	}{
		{
			name:   "record",
			res:    docstore.RecordResult(docstore.Document{SequenceField: int64(7)}),
			want:   7,
			wantOK: true,
		},
		{
			name:   "wrapped",
			res:    docstore.WrappedResult(docstore.Document{SequenceField: float64(8)}),
			want:   8,
			wantOK: true,
		},
		{
			name: "record tagged but actually wrapped",
			res: docstore.RecordResult(docstore.Document{
				"ok":                  1,
				docstore.WrappedField: map[string]any{SequenceField: 9},
			}),
			want:   9,
			wantOK: true,
		},
		{
			name:   "ack",
			res:    docstore.AckResult(1, ""),
			wantOK: false,
		},
		{
			name:   "non numeric",
			res:    docstore.RecordResult(docstore.Document{SequenceField: "ten"}),
			wantOK: false,
		},
		{
			name:   "fractional",
			res:    docstore.RecordResult(docstore.Document{SequenceField: 1.5}),
			wantOK: false,
		},
		{
			name:   "negative",
			res:    docstore.RecordResult(docstore.Document{SequenceField: -3}),
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := resolveUpdate(tt.res)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestService_DuplicateRecordsReseed(t *testing.T) {
	svc, coll := newTestService()
	ctx := context.Background()

	_, err := coll.InsertOne(ctx, docstore.Document{SequenceField: 10})
	require.NoError(t, err)
	_, err = coll.InsertOne(ctx, docstore.Document{SequenceField: 20})
	require.NoError(t, err)

	n, err := svc.GetNext(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, int64(1), recordCount(t, coll))

	n, err = svc.GetNext(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestService_AckReplyReadsBack(t *testing.T) {
	coll := memory.NewStore(memory.WithUpdateShape(docstore.ShapeAck)).Collection(CollectionName)
	ctx := context.Background()

	_, err := coll.InsertOne(ctx, docstore.Document{SequenceField: 5})
	require.NoError(t, err)

	n, err := NewService(NewStore(coll)).GetNext(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(6), n)
}

func TestService_AckWithVanishedRecordReseeds(t *testing.T) {
	coll := memory.NewStore(memory.WithUpdateShape(docstore.ShapeAck)).Collection(CollectionName)
	ctx := context.Background()

	_, err := coll.InsertOne(ctx, docstore.Document{SequenceField: 5})
	require.NoError(t, err)

	svc := NewService(NewStore(&vanishingCollection{Collection: coll}))
	n, err := svc.GetNext(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, int64(1), recordCount(t, coll))

	doc, err := coll.FindOne(ctx, docstore.Filter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), doc[SequenceField])
}

func TestService_ConcurrentReseedIsUnique(t *testing.T) {
	const callers = 4
	coll := memory.NewStore().Collection(CollectionName)
	ctx := context.Background()

	_, err := coll.InsertOne(ctx, docstore.Document{SequenceField: 10})
	require.NoError(t, err)
	_, err = coll.InsertOne(ctx, docstore.Document{SequenceField: 20})
	require.NoError(t, err)

	svc := NewService(NewStore(newGatedScanCollection(coll, callers)))

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		got  []int64
		errs []error
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := svc.GetNext(ctx)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			got = append(got, n)
		}()
	}
	wg.Wait()

	require.Empty(t, errs)
	sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
	assert.Equal(t, []int64{1, 2, 3, 4}, got)
	assert.Equal(t, int64(1), recordCount(t, coll))
}

func TestService_LateReseedKeepsRestartedDocument(t *testing.T) {
	coll := memory.NewStore().Collection(CollectionName)
	ctx := context.Background()

	_, err := coll.InsertOne(ctx, docstore.Document{SequenceField: 10})
	require.NoError(t, err)
	_, err = coll.InsertOne(ctx, docstore.Document{SequenceField: 20})
	require.NoError(t, err)
	before, err := coll.Find(ctx, docstore.Filter{}, docstore.FindOptions{})
	require.NoError(t, err)

	n, err := NewService(NewStore(coll)).GetNext(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	// A caller that scanned before the first reseed finished.
	late := NewService(NewStore(&staleScanCollection{Collection: coll, snapshot: before}))
	n, err = late.GetNext(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, int64(1), recordCount(t, coll))
}

func TestService_MalformedCounterReseeds(t *testing.T) {
	svc, coll := newTestService()
	ctx := context.Background()

	_, err := coll.InsertOne(ctx, docstore.Document{SequenceField: "garbage"})
	require.NoError(t, err)

	assert.Equal(t, int64(0), svc.GetCurrent(ctx))

	n, err := svc.GetNext(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, int64(1), svc.GetCurrent(ctx))
	assert.Equal(t, int64(1), recordCount(t, coll))
}

func TestService_StoreFailures(t *testing.T) {
	boom := errors.New("connection refused")
	ctx := context.Background()

	t.Run("increment fails", func(t *testing.T) {
		coll := memory.NewStore().Collection(CollectionName)
		svc := NewService(NewStore(&flakyCollection{Collection: coll, failUpdate: boom}))

		_, err := svc.GetNext(ctx)
		assert.ErrorIs(t, err, corenumerator.ErrStoreUnavailable)
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, int64(0), recordCount(t, coll), "nothing may be written on failure")
	})

	t.Run("timeout is not treated as success", func(t *testing.T) {
		coll := memory.NewStore().Collection(CollectionName)
		svc := NewService(NewStore(&flakyCollection{Collection: coll, failUpdate: context.DeadlineExceeded}))

		n, err := svc.GetNext(ctx)
		assert.ErrorIs(t, err, corenumerator.ErrStoreUnavailable)
		assert.Equal(t, int64(0), n)
	})

	t.Run("scan fails", func(t *testing.T) {
		coll := memory.NewStore().Collection(CollectionName)
		svc := NewService(NewStore(&flakyCollection{Collection: coll, failScan: boom}))

		_, err := svc.GetNext(ctx)
		assert.ErrorIs(t, err, corenumerator.ErrStoreUnavailable)
	})

	t.Run("read back fails", func(t *testing.T) {
		coll := memory.NewStore(memory.WithUpdateShape(docstore.ShapeAck)).Collection(CollectionName)
		svc := NewService(NewStore(&flakyCollection{Collection: coll, failFind: boom}))

		_, err := svc.GetNext(ctx)
		assert.ErrorIs(t, err, corenumerator.ErrStoreUnavailable)
	})

	t.Run("reseed fails", func(t *testing.T) {
		coll := memory.NewStore().Collection(CollectionName)
		_, err := coll.InsertOne(ctx, docstore.Document{SequenceField: 1})
		require.NoError(t, err)
		_, err = coll.InsertOne(ctx, docstore.Document{SequenceField: 2})
		require.NoError(t, err)
		svc := NewService(NewStore(&flakyCollection{Collection: coll, failDelete: boom}))

		_, err = svc.GetNext(ctx)
		assert.ErrorIs(t, err, corenumerator.ErrCorruptedState)
	})

	t.Run("peek reports zero", func(t *testing.T) {
		coll := memory.NewStore().Collection(CollectionName)
		_, err := coll.InsertOne(ctx, docstore.Document{SequenceField: 5})
		require.NoError(t, err)
		svc := NewService(NewStore(&flakyCollection{Collection: coll, failFind: boom}))

		assert.Equal(t, int64(0), svc.GetCurrent(ctx))
	})
}

func TestService_Get(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	n, err := svc.Get(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	n, err = svc.Get(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	snap := svc.Snapshot(ctx)
	assert.Equal(t, int64(1), snap.LastSequence)
	assert.NotEmpty(t, snap.ID)
}
