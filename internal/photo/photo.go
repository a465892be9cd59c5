// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package photo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Photo is a downloaded and decoded image.
type Photo struct {
	ID          uuid.UUID `json:"id"`
	Address     string    `json:"address"`
	Path        string    `json:"path"`
	Size        int64     `json:"size"`
	ContentType string    `json:"contentType"`
	Format      string    `json:"format"`
	Width       int       `json:"width"`
	Height      int       `json:"height"`
	FetchedAt   time.Time `json:"fetchedAt"`
}

// String returns a short human readable description of the photo.
func (p Photo) String() string {
	return fmt.Sprintf("%s (%s %dx%d, %d bytes)", p.Address, p.ContentType, p.Width, p.Height, p.Size)
}

// Fetcher fetches and decodes the photo at address.
// Fetch may block for a long time and should honour ctx.
type Fetcher interface {
	Fetch(ctx context.Context, address string) (Photo, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, address string) (Photo, error)

// Fetch implements Fetcher.
func (f FetcherFunc) Fetch(ctx context.Context, address string) (Photo, error) {
	return f(ctx, address)
}
