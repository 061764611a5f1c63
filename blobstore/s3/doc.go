// Package s3 provides an S3 implementation of the blobstore.Store interface.
//
// # Usage
//
//	store, err := s3.New(ctx, "my-bucket",
//	    s3.WithPrefix("datasets/voices/"),
//	    s3.WithRegion("us-east-1"),
//	)
//
// # Features
//
//   - Streamed multipart uploads for large artifacts
//   - Existence checks without fetching the body
//   - Configurable prefix for multi-tenant isolation
package s3
