package storage

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = params
	f.body, _ = io.ReadAll(params.Body)
	return &s3.PutObjectOutput{}, f.err
}

func TestArchiver_Put(t *testing.T) {
	fake := &fakeS3{}
	a := NewArchiverWithClient(fake, "loan-docs")

	key, err := a.Put(context.Background(), "statements/loan_3/x.pdf", "application/pdf", []byte("%PDF"))
	require.NoError(t, err)
	assert.Equal(t, "statements/loan_3/x.pdf", key)
	assert.Equal(t, "loan-docs", aws.ToString(fake.input.Bucket))
	assert.Equal(t, "application/pdf", aws.ToString(fake.input.ContentType))
	assert.Equal(t, []byte("%PDF"), fake.body)
}

func TestArchiver_PutError(t *testing.T) {
	a := NewArchiverWithClient(&fakeS3{err: errors.New("denied")}, "b")
	_, err := a.Put(context.Background(), "k", "application/pdf", nil)
	assert.ErrorContains(t, err, "denied")
}

func TestStatementKey(t *testing.T) {
	at := time.Date(2024, time.March, 5, 10, 30, 0, 0, time.UTC)
	assert.Equal(t, "statements/loan_12/20240305_103000.pdf", StatementKey(12, at))
}
