// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package photo defines the Photo item and the fetchers that produce it.
//
// GetterFetcher downloads a source address with Hashicorp's go-getter, which
// means addresses can be anything go-getter understands: http(s) URLs, local
// paths, s3:: or gcs:: sources and so on. The downloaded file is then sniffed
// for its content type and decoded far enough to learn its dimensions.
package photo
