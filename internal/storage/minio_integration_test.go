//go:build integration

package storage

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go/modules/minio"
)

const (
	minioUser     = "minioadmin"
	minioPassword = "minioadmin"
	minioBucket   = "payments"
)

type MinioStoreSuite struct {
	suite.Suite
	container *minio.MinioContainer
	store     *MinioStore
	adapter   *Adapter
}

func (s *MinioStoreSuite) SetupSuite() {
	ctx := context.Background()

	var err error
	s.container, err = minio.Run(ctx,
		"minio/minio:latest",
		minio.WithUsername(minioUser),
		minio.WithPassword(minioPassword),
	)
	s.Require().NoError(err)

	endpoint, err := s.container.ConnectionString(ctx)
	s.Require().NoError(err)

	s.store, err = NewMinioStore(ctx, MinioConfig{
		Endpoint:   endpoint,
		AccessKey:  minioUser,
		SecretKey:  minioPassword,
		Bucket:     minioBucket,
		PublicBase: "http://" + endpoint + "/" + minioBucket,
	})
	s.Require().NoError(err)
	s.adapter = NewAdapter(s.store)
}

func (s *MinioStoreSuite) TearDownSuite() {
	if s.container != nil {
		s.NoError(s.container.Terminate(context.Background()))
	}
}

func (s *MinioStoreSuite) TestUploadThenDelete() {
	ctx := context.Background()

	rawURL, err := s.adapter.Upload(ctx, []byte("fake jpeg"), "image/jpeg", "payments")
	s.Require().NoError(err)
	s.Contains(rawURL, "/payments/payments/")
	s.True(strings.HasSuffix(rawURL, ".jpeg"))

	key, err := ParseBlobURL(rawURL, s.store.BaseURL())
	s.Require().NoError(err)

	exists, err := s.store.Exists(ctx, key.String())
	s.Require().NoError(err)
	s.True(exists)

	s.Require().NoError(s.adapter.Delete(ctx, rawURL))
	exists, err = s.store.Exists(ctx, key.String())
	s.Require().NoError(err)
	s.False(exists)

	s.NoError(s.adapter.Delete(ctx, rawURL))
}

func TestMinioStoreSuite(t *testing.T) {
	suite.Run(t, new(MinioStoreSuite))
}
