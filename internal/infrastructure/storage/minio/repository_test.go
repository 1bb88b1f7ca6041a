package minio

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	apperrors "github.com/turtacn/FreshGuard/pkg/errors"
)

type ArchiveStoreTestSuite struct {
	suite.Suite
	api   *MockMinIOAPI
	store *ArchiveStore
}

func (s *ArchiveStoreTestSuite) SetupTest() {
	s.api = new(MockMinIOAPI)
	s.store = NewArchiveStore(NewMinIOClientWithAPI(s.api, "ledger-bucket", "", nil), nil)
}

func (s *ArchiveStoreTestSuite) TestPutDocument_Success() {
	body := []byte(`{"date":"2024-03-10"}`)
	s.api.On("PutObject", mock.Anything, "ledger-bucket", "ledger/2024/03/2024-03-10.json",
		mock.MatchedBy(func(r io.Reader) bool {
			got, _ := io.ReadAll(r)
			return string(got) == string(body)
		}),
		int64(len(body)),
		mock.MatchedBy(func(o minio.PutObjectOptions) bool { return o.ContentType == "application/json" }),
	).Return(minio.UploadInfo{Bucket: "ledger-bucket", Key: "ledger/2024/03/2024-03-10.json", ETag: "e1", Size: int64(len(body))}, nil)

	err := s.store.PutDocument(context.Background(), "ledger/2024/03/2024-03-10.json", body, "application/json")
	s.NoError(err)
	s.api.AssertExpectations(s.T())
}

func (s *ArchiveStoreTestSuite) TestPutDocument_DefaultContentType() {
	s.api.On("PutObject", mock.Anything, "ledger-bucket", "k", mock.Anything, int64(1),
		mock.MatchedBy(func(o minio.PutObjectOptions) bool { return o.ContentType == "application/octet-stream" }),
	).Return(minio.UploadInfo{}, nil)
	s.NoError(s.store.PutDocument(context.Background(), "k", []byte("x"), ""))
}

func (s *ArchiveStoreTestSuite) TestPutDocument_Invalid() {
	err := s.store.PutDocument(context.Background(), "", []byte("x"), "")
	s.True(apperrors.IsValidation(err))
	err = s.store.PutDocument(context.Background(), "k", nil, "")
	s.True(apperrors.IsValidation(err))
	s.api.AssertNotCalled(s.T(), "PutObject", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (s *ArchiveStoreTestSuite) TestPutDocument_UploadError() {
	s.api.On("PutObject", mock.Anything, "ledger-bucket", "k", mock.Anything, mock.Anything, mock.Anything).
		Return(minio.UploadInfo{}, errors.New("connection reset"))
	err := s.store.PutDocument(context.Background(), "k", []byte("x"), "")
	s.Error(err)
	s.True(apperrors.IsCode(err, apperrors.CodeStorageError))
}

func (s *ArchiveStoreTestSuite) TestPutDocument_Closed() {
	s.NoError(s.store.client.Close())
	err := s.store.PutDocument(context.Background(), "k", []byte("x"), "")
	s.ErrorIs(err, ErrMinIOClientClosed)
}

func (s *ArchiveStoreTestSuite) TestGetDocument_Error() {
	s.api.On("GetObject", mock.Anything, "ledger-bucket", "k", mock.Anything).Return(nil, errors.New("down"))
	_, err := s.store.GetDocument(context.Background(), "k")
	s.Error(err)
	s.True(apperrors.IsCode(err, apperrors.CodeStorageError))
}

func (s *ArchiveStoreTestSuite) TestExists() {
	s.api.On("StatObject", mock.Anything, "ledger-bucket", "present", mock.Anything).
		Return(minio.ObjectInfo{Key: "present"}, nil)
	s.api.On("StatObject", mock.Anything, "ledger-bucket", "absent", mock.Anything).
		Return(minio.ObjectInfo{}, minio.ErrorResponse{Code: "NoSuchKey"})
	s.api.On("StatObject", mock.Anything, "ledger-bucket", "broken", mock.Anything).
		Return(minio.ObjectInfo{}, errors.New("timeout"))

	ok, err := s.store.Exists(context.Background(), "present")
	s.NoError(err)
	s.True(ok)

	ok, err = s.store.Exists(context.Background(), "absent")
	s.NoError(err)
	s.False(ok)

	_, err = s.store.Exists(context.Background(), "broken")
	s.Error(err)
}

func (s *ArchiveStoreTestSuite) TestList() {
	ch := make(chan minio.ObjectInfo, 3)
	ch <- minio.ObjectInfo{Key: "ledger/2024/03/2024-03-09.json", Size: 10}
	ch <- minio.ObjectInfo{Key: "ledger/2024/03/2024-03-10.json", Size: 20}
	ch <- minio.ObjectInfo{Key: "ledger/2024/03/2024-03-11.json", Size: 30}
	close(ch)
	s.api.On("ListObjects", mock.Anything, "ledger-bucket",
		minio.ListObjectsOptions{Prefix: "ledger/2024/03/", Recursive: true},
	).Return((<-chan minio.ObjectInfo)(ch))

	res, err := s.store.List(context.Background(), "ledger/2024/03/", 2)
	s.NoError(err)
	s.Len(res, 2)
	s.Equal("ledger/2024/03/2024-03-09.json", res[0].Key)
	s.Equal(int64(20), res[1].Size)
}

func (s *ArchiveStoreTestSuite) TestList_Error() {
	ch := make(chan minio.ObjectInfo, 1)
	ch <- minio.ObjectInfo{Err: errors.New("denied")}
	close(ch)
	s.api.On("ListObjects", mock.Anything, "ledger-bucket", mock.Anything).Return((<-chan minio.ObjectInfo)(ch))

	_, err := s.store.List(context.Background(), "", 0)
	s.Error(err)
}

func TestArchiveStoreSuite(t *testing.T) {
	suite.Run(t, new(ArchiveStoreTestSuite))
}
