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


// Package retrieve assembles answer context for a query from every
// available source.
//
// The Orchestrator runs independent branches concurrently over a bounded
// worker pool:
//   - similarity ranking of the caller's stored documents
//   - a short availability probe of the web search provider
//   - link, image, and video search, only when the probe succeeds
//   - page fetching for searched links, under a hard stage budget
//   - chat-name and related-query generation as side tasks
//
// Branches degrade independently: a failed or timed-out branch contributes
// an empty result and the query still completes. Only malformed input
// (a missing query or owner) fails a retrieval.
package retrieve
