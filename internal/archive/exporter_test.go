package archive

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/reader"

	"github.com/chrisdamba/foodatrack/internal/cloudwriter"
	"github.com/chrisdamba/foodatrack/internal/models"
	"github.com/chrisdamba/foodatrack/internal/testutil"
)

var day = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func deliveredOrder(id string, createdAt time.Time) *models.Order {
	o := testutil.Order(id, createdAt)
	tr := models.NewTracking(createdAt)
	steps := []struct {
		status    models.OrderStatus
		milestone models.Milestone
		offset    time.Duration
	}{
		{models.OrderStatusConfirmed, models.MilestoneConfirmed, 2 * time.Minute},
		{models.OrderStatusReady, models.MilestoneReady, 20 * time.Minute},
		{models.OrderStatusPickedUp, models.MilestonePickedUp, 25 * time.Minute},
		{models.OrderStatusDelivered, models.MilestoneDelivered, 40 * time.Minute},
	}
	for _, s := range steps {
		at := createdAt.Add(s.offset)
		tr.StatusUpdates = append(tr.StatusUpdates, models.StatusUpdate{
			Status: s.status, Timestamp: at, Description: "step", UpdatedBy: models.ActorRestaurant,
		})
		tr.SetTimestampOnce(s.milestone, at)
	}
	tr.Status = models.OrderStatusDelivered
	tr.Notifications = []models.NotificationRecord{{Channel: "sms", Success: true}, {Channel: "email", Success: false}}
	o.Status = models.OrderStatusDelivered
	o.Tracking = tr
	return o
}

func newRepoExporter(t *testing.T, cfg models.ArchiveConfig, opts ...ExporterOption) *Exporter {
	t.Helper()
	repo := testutil.NewOrderRepository(t)
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, deliveredOrder("old", day.Add(-48*time.Hour))))
	require.NoError(t, repo.Create(ctx, deliveredOrder("o1", day)))
	require.NoError(t, repo.Create(ctx, testutil.Order("o2", day.Add(time.Minute))))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	opts = append(opts, WithExportClock(func() time.Time { return day.Add(24 * time.Hour) }))
	return NewExporter(repo, cfg, logger, opts...)
}

func TestExport_LocalFiles(t *testing.T) {
	dir := t.TempDir()
	progress := 0
	exp := newRepoExporter(t, models.ArchiveConfig{Destination: DestinationLocal, Path: dir},
		WithProgress(func() { progress++ }))

	res, err := exp.Export(context.Background(), day.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Orders)
	assert.Equal(t, 4, res.StatusRows)
	assert.Equal(t, 2, progress)
	require.Len(t, res.Files, 2)
	for _, f := range res.Files {
		assert.Contains(t, f, "date=2026-03-02")
	}

	fr, err := local.NewLocalFileReader(res.Files[0])
	require.NoError(t, err)
	defer fr.Close()
	pr, err := reader.NewParquetReader(fr, new(OrderRow), 4)
	require.NoError(t, err)
	defer pr.ReadStop()

	require.EqualValues(t, 2, pr.GetNumRows())
	rows := make([]OrderRow, 2)
	require.NoError(t, pr.Read(&rows))

	assert.Equal(t, "o1", rows[0].OrderID)
	require.NotNil(t, rows[0].PreparationMinutes)
	assert.EqualValues(t, 18, *rows[0].PreparationMinutes)
	require.NotNil(t, rows[0].TotalMinutes)
	assert.EqualValues(t, 40, *rows[0].TotalMinutes)
	assert.EqualValues(t, 3, rows[0].ItemCount)
	assert.EqualValues(t, 2, rows[0].Notifications)
	assert.EqualValues(t, 1, rows[0].FailedNotifications)

	assert.Equal(t, "o2", rows[1].OrderID)
	assert.Nil(t, rows[1].PreparationMinutes)
	assert.Nil(t, rows[1].TotalMinutes)
}

func TestExport_NothingToWrite(t *testing.T) {
	exp := newRepoExporter(t, models.ArchiveConfig{Destination: DestinationLocal, Path: t.TempDir()})

	res, err := exp.Export(context.Background(), day.Add(time.Hour))
	require.NoError(t, err)
	assert.Zero(t, res.Orders)
	assert.Empty(t, res.Files)
}

type memoryObject struct {
	bytes.Buffer
	closed bool
}

func (m *memoryObject) Close() error {
	m.closed = true
	return nil
}

type memoryFactory struct {
	objects map[string]*memoryObject
}

func (f *memoryFactory) NewWriter(_ context.Context, bucket, objectPath string) (cloudwriter.CloudWriter, error) {
	obj := &memoryObject{}
	f.objects[bucket+"/"+objectPath] = obj
	return obj, nil
}

func TestExport_S3(t *testing.T) {
	factory := &memoryFactory{objects: map[string]*memoryObject{}}
	exp := newRepoExporter(t,
		models.ArchiveConfig{Destination: DestinationS3, Path: "exports", BucketName: "foodatrack"},
		WithCloudWriterFactory(factory))

	res, err := exp.Export(context.Background(), time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Orders)
	assert.Equal(t, 8, res.StatusRows)
	require.Len(t, factory.objects, 2)
	for key, obj := range factory.objects {
		assert.Contains(t, key, "foodatrack/exports/")
		assert.True(t, obj.closed)
		data := obj.Bytes()
		require.Greater(t, len(data), 8)
		assert.Equal(t, "PAR1", string(data[:4]))
		assert.Equal(t, "PAR1", string(data[len(data)-4:]))
	}
}

func TestExport_S3RequiresFactory(t *testing.T) {
	exp := newRepoExporter(t, models.ArchiveConfig{Destination: DestinationS3, BucketName: "b"})
	_, err := exp.Export(context.Background(), time.Time{})
	assert.Error(t, err)
}
