// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import "fmt"

// NotFoundError indicates an unknown provider key. It is surfaced
// synchronously from Registry.Get and from discovery with a provider filter;
// callers must handle it explicitly.
type NotFoundError struct {
	Provider string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("provider not found: %s", e.Provider)
}

// InvalidModelError indicates a model string that cannot be resolved to any
// known (provider, model) pair. Surfaced synchronously from Registry.Resolve.
type InvalidModelError struct {
	Model string
}

func (e *InvalidModelError) Error() string {
	return fmt.Sprintf("model not found: %s", e.Model)
}
