// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package config reads batch definitions.
//
// A batch definition is a YAML document naming the addresses to download, how
// many times the list is repeated and which jobs may be cancelled. Definitions
// can be loaded from any source supported by Hashicorp's go-getter.
package config
