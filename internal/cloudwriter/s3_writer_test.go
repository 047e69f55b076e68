package cloudwriter

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	inputs []*s3.PutObjectInput
	bodies [][]byte
	err    error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, _ := io.ReadAll(in.Body)
	f.inputs = append(f.inputs, in)
	f.bodies = append(f.bodies, body)
	return &s3.PutObjectOutput{}, nil
}

func TestS3Writer_UploadsOnClose(t *testing.T) {
	client := &fakeS3{}
	w, err := NewS3WriterFactoryWithClient(client).NewWriter(context.Background(), "archive", "status_updates/part-1.parquet")
	require.NoError(t, err)

	_, err = w.Write([]byte("PAR1"))
	require.NoError(t, err)
	_, err = w.Write([]byte("data"))
	require.NoError(t, err)
	assert.Empty(t, client.inputs)

	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
	require.Len(t, client.inputs, 1)
	assert.Equal(t, "archive", aws.ToString(client.inputs[0].Bucket))
	assert.Equal(t, "status_updates/part-1.parquet", aws.ToString(client.inputs[0].Key))
	assert.Equal(t, []byte("PAR1data"), client.bodies[0])

	_, err = w.Write([]byte("late"))
	assert.Error(t, err)
}

func TestS3Writer_Errors(t *testing.T) {
	_, err := NewS3WriterFactoryWithClient(&fakeS3{}).NewWriter(context.Background(), "", "x")
	assert.Error(t, err)

	w, err := NewS3WriterFactoryWithClient(&fakeS3{err: errors.New("access denied")}).NewWriter(context.Background(), "b", "x")
	require.NoError(t, err)
	assert.ErrorContains(t, w.Close(), "access denied")
}
