package archive

import (
	"fmt"
	"io"

	"github.com/xitongsys/parquet-go/source"

	"github.com/chrisdamba/foodatrack/internal/cloudwriter"
)

// cloudParquetFile lets the parquet writer stream into an object store
// upload. It only supports sequential writes.
type cloudParquetFile struct {
	cloudWriter cloudwriter.CloudWriter
	offset      int64
}

func newCloudParquetFile(w cloudwriter.CloudWriter) *cloudParquetFile {
	return &cloudParquetFile{cloudWriter: w}
}

func (c *cloudParquetFile) Open(string) (source.ParquetFile, error)   { return c, nil }
func (c *cloudParquetFile) Create(string) (source.ParquetFile, error) { return c, nil }

func (c *cloudParquetFile) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
		c.offset = offset
	case io.SeekCurrent:
		c.offset += offset
	default:
		return 0, fmt.Errorf("seek from end not supported for cloud storage")
	}
	return c.offset, nil
}

func (c *cloudParquetFile) Read([]byte) (int, error) {
	return 0, fmt.Errorf("read not supported for cloud storage")
}

func (c *cloudParquetFile) Write(p []byte) (int, error) {
	n, err := c.cloudWriter.Write(p)
	c.offset += int64(n)
	return n, err
}

func (c *cloudParquetFile) Close() error {
	return c.cloudWriter.Close()
}
