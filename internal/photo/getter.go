// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package photo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // register decoder
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/hashicorp/go-getter/v2"
	"github.com/matt-FFFFFF/puff/internal/ctxlog"
	"github.com/spf13/afero"
)

var (
	// ErrEmptyAddress is returned when the source address is empty.
	ErrEmptyAddress = errors.New("empty source address")
	// ErrFetch is returned when the source cannot be downloaded or read back.
	ErrFetch = errors.New("failed to fetch photo")
	// ErrNotImage is returned when the downloaded content is not an image.
	ErrNotImage = errors.New("content is not an image")
	// ErrDecode is returned when the image header cannot be decoded.
	ErrDecode = errors.New("failed to decode photo")
)

// FsFactory is a function that returns the filesystem downloaded files are read from.
var FsFactory = func() afero.Fs {
	return afero.NewOsFs()
}

var _ Fetcher = (*GetterFetcher)(nil)

// GetterFetcher downloads photos with go-getter into a destination directory.
type GetterFetcher struct {
	dest   string
	client *getter.Client
}

// NewGetterFetcher creates a fetcher that stores downloads under dest.
func NewGetterFetcher(dest string) *GetterFetcher {
	return &GetterFetcher{
		dest: dest,
		client: &getter.Client{
			DisableSymlinks: true,
		},
	}
}

// Dest returns the download directory.
func (f *GetterFetcher) Dest() string {
	return f.dest
}

// Fetch implements Fetcher.
func (f *GetterFetcher) Fetch(ctx context.Context, address string) (Photo, error) {
	if address == "" {
		return Photo{}, ErrEmptyAddress
	}

	logger := ctxlog.Logger(ctx).With("address", address)

	wd, err := os.Getwd()
	if err != nil {
		return Photo{}, errors.Join(ErrFetch, err)
	}

	id := uuid.New()
	dst := filepath.Join(f.dest, id.String()+extension(address))

	req := &getter.Request{
		Src:     address,
		Dst:     dst,
		Pwd:     wd,
		GetMode: getter.ModeFile,
		Copy:    true,
	}

	logger.Debug("fetching photo", "dst", dst)

	if _, err := f.client.Get(ctx, req); err != nil {
		return Photo{}, errors.Join(ErrFetch, err)
	}

	data, err := afero.ReadFile(FsFactory(), dst)
	if err != nil {
		return Photo{}, errors.Join(ErrFetch, err)
	}

	p, err := Decode(address, data)
	if err != nil {
		return Photo{}, err
	}

	p.ID = id
	p.Path = dst

	logger.Debug("fetched photo", "contentType", p.ContentType, "width", p.Width, "height", p.Height)

	return p, nil
}

// Decode builds a Photo from the raw bytes fetched from address.
// Only the image header is decoded.
func Decode(address string, data []byte) (Photo, error) {
	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return Photo{}, fmt.Errorf("%w: %s is %s", ErrNotImage, address, mt.String())
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Photo{}, errors.Join(ErrDecode, err)
	}

	return Photo{
		ID:          uuid.New(),
		Address:     address,
		Size:        int64(len(data)),
		ContentType: mt.String(),
		Format:      format,
		Width:       cfg.Width,
		Height:      cfg.Height,
		FetchedAt:   time.Now(),
	}, nil
}

// extension returns the file extension of the path part of address, ignoring
// any go-getter forcing prefix and query string.
func extension(address string) string {
	if i := strings.Index(address, "::"); i >= 0 {
		address = address[i+2:]
	}

	if u, err := url.Parse(address); err == nil && u.Path != "" {
		address = u.Path
	}

	return path.Ext(address)
}
