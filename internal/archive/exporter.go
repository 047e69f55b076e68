// Package archive writes order history to parquet files for offline
// analysis, either on local disk or in an S3 bucket.
package archive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/source"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/chrisdamba/foodatrack/internal/cloudwriter"
	"github.com/chrisdamba/foodatrack/internal/models"
	"github.com/chrisdamba/foodatrack/internal/repositories"
)

const (
	DestinationLocal = "local"
	DestinationS3    = "s3"

	statusTable = "status_updates"
	orderTable  = "orders"
)

// Result describes a finished export.
type Result struct {
	Orders     int
	StatusRows int
	Files      []string
}

type Exporter struct {
	repo    repositories.OrderRepository
	cfg     models.ArchiveConfig
	cloud   cloudwriter.CloudWriterFactory
	logger  *slog.Logger
	now     func() time.Time
	onOrder func()
}

type ExporterOption func(*Exporter)

// WithCloudWriterFactory sets the factory used for the s3 destination.
func WithCloudWriterFactory(f cloudwriter.CloudWriterFactory) ExporterOption {
	return func(e *Exporter) { e.cloud = f }
}

// WithProgress registers a callback run once per exported order.
func WithProgress(fn func()) ExporterOption {
	return func(e *Exporter) { e.onOrder = fn }
}

func WithExportClock(now func() time.Time) ExporterOption {
	return func(e *Exporter) { e.now = now }
}

func NewExporter(repo repositories.OrderRepository, cfg models.ArchiveConfig, logger *slog.Logger, opts ...ExporterOption) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Exporter{
		repo:   repo,
		cfg:    cfg,
		logger: logger.With("component", "archive"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// table is one parquet file being written.
type table struct {
	name string
	file source.ParquetFile
	pw   *writer.ParquetWriter
}

// Export writes every order created after since. A zero since exports all
// orders. Files are only created once there is a row to put in them.
func (e *Exporter) Export(ctx context.Context, since time.Time) (*Result, error) {
	if e.cfg.Destination == DestinationS3 && e.cloud == nil {
		return nil, errors.New("s3 destination requires a cloud writer factory")
	}
	partition := fmt.Sprintf("date=%s", e.now().UTC().Format("2006-01-02"))
	part := fmt.Sprintf("part-%d.parquet", e.now().UnixNano())

	var orders, statuses *table
	result := &Result{}
	open := func(name string, obj interface{}) (*table, error) {
		t, err := e.open(ctx, name, partition, part, obj)
		if err == nil {
			result.Files = append(result.Files, t.name)
		}
		return t, err
	}

	err := e.repo.ForEach(ctx, func(order *models.Order) error {
		if !since.IsZero() && !order.CreatedAt.After(since) {
			return nil
		}
		var err error
		if orders == nil {
			if orders, err = open(orderTable, new(OrderRow)); err != nil {
				return err
			}
		}
		if err := orders.pw.Write(orderRow(order)); err != nil {
			return fmt.Errorf("failed to write order %s: %w", order.ID, err)
		}
		rows := statusRows(order)
		if len(rows) > 0 && statuses == nil {
			if statuses, err = open(statusTable, new(StatusRow)); err != nil {
				return err
			}
		}
		for _, row := range rows {
			if err := statuses.pw.Write(row); err != nil {
				return fmt.Errorf("failed to write status row for %s: %w", order.ID, err)
			}
		}
		result.Orders++
		result.StatusRows += len(rows)
		if e.onOrder != nil {
			e.onOrder()
		}
		return nil
	})

	for _, t := range []*table{orders, statuses} {
		if t == nil {
			continue
		}
		if cerr := t.close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	if err != nil {
		return nil, err
	}
	e.logger.Info("archive export finished",
		"destination", e.cfg.Destination, "orders", result.Orders, "status_rows", result.StatusRows)
	return result, nil
}

func (e *Exporter) open(ctx context.Context, name, partition, part string, obj interface{}) (*table, error) {
	var (
		fw       source.ParquetFile
		location string
		err      error
	)
	if e.cfg.Destination == DestinationS3 {
		location = path.Join(e.cfg.Path, name, partition, part)
		cw, err := e.cloud.NewWriter(ctx, e.cfg.BucketName, location)
		if err != nil {
			return nil, fmt.Errorf("failed to create cloud file writer: %w", err)
		}
		fw = newCloudParquetFile(cw)
	} else {
		dir := filepath.Join(e.cfg.Path, name, partition)
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			return nil, err
		}
		location = filepath.Join(dir, part)
		fw, err = local.NewLocalFileWriter(location)
		if err != nil {
			return nil, fmt.Errorf("failed to create local file writer: %w", err)
		}
	}

	pw, err := writer.NewParquetWriter(fw, obj, 4)
	if err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to create ParquetWriter: %w", err)
	}
	return &table{name: location, file: fw, pw: pw}, nil
}

func (t *table) close() error {
	if err := t.pw.WriteStop(); err != nil {
		t.file.Close()
		return fmt.Errorf("failed to finish %s: %w", t.name, err)
	}
	return t.file.Close()
}
