// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package webfetch

import "errors"

var (
	// ErrBlacklisted indicates the URL's host is on the skip list.
	ErrBlacklisted = errors.New("host is blacklisted")

	// ErrUnsupportedContent indicates a non-text content type.
	ErrUnsupportedContent = errors.New("unsupported content type")

	// ErrResponseTooLarge indicates the response exceeded the byte budget.
	ErrResponseTooLarge = errors.New("response too large")

	// ErrFetchTimeout indicates the fetch exceeded its time budget.
	ErrFetchTimeout = errors.New("fetch timed out")

	// ErrInvalidLimit indicates a non-positive limit.
	ErrInvalidLimit = errors.New("limit must be positive")

	// ErrNilLogger indicates a nil logger.
	ErrNilLogger = errors.New("logger cannot be nil")
)
