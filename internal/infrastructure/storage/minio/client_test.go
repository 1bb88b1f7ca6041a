package minio

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/turtacn/FreshGuard/internal/config"
	apperrors "github.com/turtacn/FreshGuard/pkg/errors"
)

type MockMinIOAPI struct {
	mock.Mock
}

func (m *MockMinIOAPI) ListBuckets(ctx context.Context) ([]minio.BucketInfo, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]minio.BucketInfo), args.Error(1)
}

func (m *MockMinIOAPI) BucketExists(ctx context.Context, bucketName string) (bool, error) {
	args := m.Called(ctx, bucketName)
	return args.Bool(0), args.Error(1)
}

func (m *MockMinIOAPI) MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error {
	args := m.Called(ctx, bucketName, opts)
	return args.Error(0)
}

func (m *MockMinIOAPI) ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo {
	args := m.Called(ctx, bucketName, opts)
	return args.Get(0).(<-chan minio.ObjectInfo)
}

func (m *MockMinIOAPI) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	args := m.Called(ctx, bucketName, objectName, reader, objectSize, opts)
	return args.Get(0).(minio.UploadInfo), args.Error(1)
}

// GetObject cannot hand back a usable *minio.Object without a server, so
// only the error path is mockable.
func (m *MockMinIOAPI) GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (*minio.Object, error) {
	args := m.Called(ctx, bucketName, objectName, opts)
	return nil, args.Error(1)
}

func (m *MockMinIOAPI) StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error) {
	args := m.Called(ctx, bucketName, objectName, opts)
	return args.Get(0).(minio.ObjectInfo), args.Error(1)
}

type ClientTestSuite struct {
	suite.Suite
	api    *MockMinIOAPI
	client *MinIOClient
}

func (s *ClientTestSuite) SetupTest() {
	s.api = new(MockMinIOAPI)
	s.client = NewMinIOClientWithAPI(s.api, "ledger-bucket", "eu-central-1", nil)
}

func (s *ClientTestSuite) TestApplyDefaults() {
	cfg := config.MinIOConfig{}
	applyDefaults(&cfg)
	s.Equal("us-east-1", cfg.Region)
	s.Equal(config.DefaultMinIOBucket, cfg.Bucket)

	kept := config.MinIOConfig{Region: "eu-west-1", Bucket: "b"}
	applyDefaults(&kept)
	s.Equal("eu-west-1", kept.Region)
	s.Equal("b", kept.Bucket)
}

func (s *ClientTestSuite) TestEnsureBucket_Exists() {
	s.api.On("BucketExists", mock.Anything, "ledger-bucket").Return(true, nil)
	s.NoError(s.client.EnsureBucket(context.Background()))
	s.api.AssertNotCalled(s.T(), "MakeBucket", mock.Anything, mock.Anything, mock.Anything)
}

func (s *ClientTestSuite) TestEnsureBucket_Creates() {
	s.api.On("BucketExists", mock.Anything, "ledger-bucket").Return(false, nil)
	s.api.On("MakeBucket", mock.Anything, "ledger-bucket", minio.MakeBucketOptions{Region: "eu-central-1"}).Return(nil)
	s.NoError(s.client.EnsureBucket(context.Background()))
	s.api.AssertExpectations(s.T())
}

func (s *ClientTestSuite) TestEnsureBucket_Error() {
	s.api.On("BucketExists", mock.Anything, "ledger-bucket").Return(false, errors.New("boom"))
	err := s.client.EnsureBucket(context.Background())
	s.Error(err)
	s.True(apperrors.IsCode(err, apperrors.CodeStorageError))
}

func (s *ClientTestSuite) TestHealthCheck() {
	s.api.On("BucketExists", mock.Anything, "ledger-bucket").Return(true, nil).Once()
	st, err := s.client.HealthCheck(context.Background())
	s.NoError(err)
	s.True(st.Healthy)

	s.api.On("BucketExists", mock.Anything, "ledger-bucket").Return(false, nil).Once()
	st, err = s.client.HealthCheck(context.Background())
	s.Error(err)
	s.False(st.Healthy)
	s.Contains(st.Error, "missing")
}

func (s *ClientTestSuite) TestHealthCheck_Closed() {
	s.NoError(s.client.Close())
	_, err := s.client.HealthCheck(context.Background())
	s.ErrorIs(err, ErrMinIOClientClosed)
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientTestSuite))
}

func TestNewMinIOClient_RequiresEndpoint(t *testing.T) {
	_, err := NewMinIOClient(config.MinIOConfig{}, nil)
	assert.Error(t, err)
}
