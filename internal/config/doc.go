// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// Package config defines the format-agnostic model of a pipeline binding.
//
// A pipeline diagram only says which stages exist and in which order data
// flows between them. The binding model says what each stage does: which
// runner executes it, which upstream tables it consumes, and the raw,
// not-yet-evaluated arguments handed to the runner. Loaders for concrete
// formats (see internal/hcl) translate their syntax into this model so the
// rest of the application never depends on a particular file format.
package config
