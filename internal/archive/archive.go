// Package archive keeps a create-only copy of every generated workbook.
package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
)

type Driver string

const (
	DriverNone       Driver = "none"
	DriverFilesystem Driver = "fs"
	DriverS3         Driver = "s3"
)

var (
	ErrExists   = errors.New("archive object already exists")
	ErrDisabled = errors.New("archive disabled")
)

type PutOptions struct {
	ContentType string
	Metadata    map[string]string
}

// Info describes a stored object.
type Info struct {
	Key          string
	Size         int64
	ContentType  string
	ETag         string
	Metadata     map[string]string
	LastModified time.Time
	URL          string
}

// Store is a create-only object store. Put fails with ErrExists when the key is taken.
type Store interface {
	Driver() Driver
	Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (Info, error)
	Head(ctx context.Context, key string) (Info, error)
}

type Config struct {
	Driver Driver
	// Dir is the root of the filesystem store.
	Dir string
	S3  S3Config
}

// Open returns the store for cfg.Driver, or ErrDisabled for none.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch Driver(strings.ToLower(string(cfg.Driver))) {
	case "", DriverNone:
		return nil, ErrDisabled
	case DriverFilesystem:
		return NewFS(cfg.Dir)
	case DriverS3:
		return NewS3(ctx, cfg.S3)
	}
	return nil, fmt.Errorf("unsupported archive driver %q", cfg.Driver)
}

// Key is the object key of a run's workbook: reports/<date>/<run id>/<name>.
func Key(reportDate time.Time, runID, name string) string {
	return path.Join("reports", reportDate.Format("2006-01-02"), runID, name)
}
