// Copyright (C) 2026 Alexis Argyris
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package critic is the client SDK for the lit-critic analysis service.
//
// The service owns all review state: sessions, critiques, and their
// disposition. This package provides the wire types, the HTTP transport,
// the SSE stream decoder, and the one-shot interactive recovery wrapper
// that the rest of the client is built on. It deliberately knows nothing
// about caching or presentation; see pkg/review and pkg/discussion for
// those layers.
//
// # Architecture
//
//	CLI / runner → Service → Client → http.Client
//	                          ↓
//	                    EventStream (SSE decode)
//
// All blocking operations take a context.Context. Plain request/response
// calls share one long fixed timeout, since the backing analysis is slow.
// Streams carry no overall timeout; callers apply their own watchdogs.
package critic
