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


package cache

import "errors"

var (
	// ErrEmptyName indicates the cache name is empty.
	ErrEmptyName = errors.New("cache name cannot be empty")

	// ErrNilBackend indicates no storage backend was provided.
	ErrNilBackend = errors.New("backend cannot be nil")

	// ErrNilCodec indicates no value codec was provided.
	ErrNilCodec = errors.New("codec cannot be nil")

	// ErrInvalidTTL indicates a non-positive expiry interval.
	ErrInvalidTTL = errors.New("ttl must be positive")

	// ErrNilClock indicates a nil time source.
	ErrNilClock = errors.New("clock cannot be nil")

	// ErrNilLogger indicates a nil logger.
	ErrNilLogger = errors.New("logger cannot be nil")
)
