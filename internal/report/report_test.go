package report

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"communitycentre/internal/attendance"
)

func sampleRecords() []attendance.Record {
	d1 := time.Date(2024, 3, 4, 9, 15, 0, 0, time.UTC)
	d2 := time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC)
	return []attendance.Record{
		{ID: "r3", Name: "Bea", Role: attendance.RoleCook, Shift: attendance.ShiftAfternoon, Notes: "Lunch prep and cleanup", Timestamp: d2},
		{ID: "r2", Name: "Ann", Role: attendance.RoleCarer, Shift: attendance.ShiftMorning, Notes: "Morning rounds", Timestamp: d1.Add(time.Hour)},
		{ID: "r1", Name: "Cal", Role: attendance.RoleCleaner, Shift: attendance.ShiftMorning, Notes: "Hall floors", Timestamp: d1},
	}
}

func TestGroupByDayNewestFirst(t *testing.T) {
	days := GroupByDay(sampleRecords(), time.UTC)
	require.Len(t, days, 2)
	assert.Equal(t, "2024-03-05", days[0].Key())
	assert.Equal(t, "2024-03-04", days[1].Key())
	require.Len(t, days[1].Records, 2)
	assert.Equal(t, "r2", days[1].Records[0].ID)
	assert.Equal(t, "Monday, March 4, 2024", days[1].Title())
}

func TestGroupByDayUsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*3600)
	recs := []attendance.Record{{ID: "late", Timestamp: time.Date(2024, 3, 4, 20, 0, 0, 0, time.UTC)}}
	days := GroupByDay(recs, loc)
	require.Len(t, days, 1)
	assert.Equal(t, "2024-03-05", days[0].Key())
}

func TestPDF(t *testing.T) {
	var buf bytes.Buffer
	err := PDF(&buf, sampleRecords(), Options{Centre: "Riverside", Location: time.UTC})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))
}

func TestPDFManyRowsPaginates(t *testing.T) {
	base := time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)
	var recs []attendance.Record
	for i := 0; i < 120; i++ {
		recs = append(recs, attendance.Record{
			Name: "Worker", Role: attendance.RoleVolunteer, Shift: attendance.ShiftMorning,
			Notes: "A fairly long note that should wrap across more than one line in the notes column of the table",
			Timestamp: base.Add(-time.Duration(i) * 6 * time.Hour),
		})
	}
	var buf bytes.Buffer
	require.NoError(t, PDF(&buf, recs, Options{Location: time.UTC}))
	assert.Greater(t, buf.Len(), 1000)
}

func TestExportsRejectEmpty(t *testing.T) {
	var buf bytes.Buffer
	assert.ErrorIs(t, PDF(&buf, nil, Options{}), ErrNoRecords)
	assert.ErrorIs(t, XLSX(&buf, nil, Options{}), ErrNoRecords)
}

func TestXLSXSheetPerDay(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, XLSX(&buf, sampleRecords(), Options{Location: time.UTC}))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"2024-03-05", "2024-03-04"}, f.GetSheetList())
	header, err := f.GetCellValue("2024-03-04", "A1")
	require.NoError(t, err)
	assert.Equal(t, "Name", header)
	name, err := f.GetCellValue("2024-03-04", "A2")
	require.NoError(t, err)
	assert.Equal(t, "Ann", name)
	at, err := f.GetCellValue("2024-03-04", "D3")
	require.NoError(t, err)
	assert.Equal(t, "9:15 AM", at)
}

func TestQRCode(t *testing.T) {
	png, err := QRCode("vibrant-aging-attendance-app:auth-v1", 256)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))
}

type stubRecords struct {
	recs  []attendance.Record
	err   error
	calls int
}

func (s *stubRecords) Records(context.Context) ([]attendance.Record, error) {
	s.calls++
	return s.recs, s.err
}

func newCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, "", time.Minute), mr
}

func TestBuilderCachesPDF(t *testing.T) {
	cache, mr := newCache(t)
	src := &stubRecords{recs: sampleRecords()}
	b := NewBuilder(src, cache, Options{Location: time.UTC}, nil)
	ctx := context.Background()

	first, err := b.PDF(ctx)
	require.NoError(t, err)
	assert.True(t, mr.Exists("attendance:report:pdf"))

	data, marker, ok, err := cache.Get(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, first, data)
	assert.Equal(t, Marker(src.recs), marker)

	// a cached document for the same records is served as is
	require.NoError(t, cache.Put(ctx, marker, []byte("cached")))
	second, err := b.PDF(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("cached"), second)

	mr.FastForward(2 * time.Minute)
	assert.False(t, mr.Exists("attendance:report:pdf"))
}

func TestBuilderRendersAfterNewRecord(t *testing.T) {
	cache, _ := newCache(t)
	src := &stubRecords{recs: sampleRecords()}
	b := NewBuilder(src, cache, Options{Location: time.UTC}, nil)
	ctx := context.Background()

	_, err := b.PDF(ctx)
	require.NoError(t, err)
	require.NoError(t, cache.Put(ctx, Marker(src.recs), []byte("stale")))

	newest := attendance.Record{ID: "r4", Name: "Dee", Role: attendance.RoleVolunteer, Shift: attendance.ShiftAfternoon,
		Notes: "Reception desk", Timestamp: time.Date(2024, 3, 6, 10, 0, 0, 0, time.UTC)}
	src.recs = append([]attendance.Record{newest}, src.recs...)

	got, err := b.PDF(ctx)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(got, []byte("%PDF")), "stale document must not be served")

	_, marker, ok, err := cache.Get(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, Marker(src.recs), marker)
}

func TestBuilderInvalidate(t *testing.T) {
	cache, mr := newCache(t)
	b := NewBuilder(&stubRecords{recs: sampleRecords()}, cache, Options{}, nil)
	ctx := context.Background()

	_, err := b.PDF(ctx)
	require.NoError(t, err)
	require.True(t, mr.Exists("attendance:report:pdf"))
	require.NoError(t, b.Invalidate(ctx))
	assert.False(t, mr.Exists("attendance:report:pdf"))

	assert.NoError(t, NewBuilder(&stubRecords{}, nil, Options{}, nil).Invalidate(ctx))
}

func TestMarker(t *testing.T) {
	recs := sampleRecords()
	assert.Equal(t, "0", Marker(nil))
	assert.Equal(t, Marker(recs), Marker([]attendance.Record{recs[2], recs[0], recs[1]}))
	assert.NotEqual(t, Marker(recs), Marker(recs[1:]))
}

func TestBuilderRefresh(t *testing.T) {
	cache, mr := newCache(t)
	src := &stubRecords{recs: sampleRecords()}
	b := NewBuilder(src, cache, Options{}, nil)
	ctx := context.Background()

	require.NoError(t, b.Refresh(ctx))
	assert.True(t, mr.Exists("attendance:report:pdf"))

	src.recs = nil
	require.NoError(t, b.Refresh(ctx))
	assert.False(t, mr.Exists("attendance:report:pdf"))

	src.err = errors.New("down")
	assert.Error(t, b.Refresh(ctx))
}

func TestBuilderWithoutCache(t *testing.T) {
	src := &stubRecords{recs: sampleRecords()}
	b := NewBuilder(src, nil, Options{}, nil)
	_, err := b.PDF(context.Background())
	require.NoError(t, err)
	_, err = b.PDF(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, src.calls)
	assert.NoError(t, b.Refresh(context.Background()))
}
