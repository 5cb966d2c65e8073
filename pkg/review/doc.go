// Copyright (C) 2026 Alexis Argyris
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package review keeps the client's local view of a session synchronized
// with the critic service.
//
// The Engine owns the critique cache: an ordered collection keyed by each
// critique's stable number, a single current-index pointer, and the
// session-scoped staleness flags. Server responses are applied through the
// Apply* methods; the presentation layer observes the results through the
// Listener interface and never mutates the cache directly.
//
// The engine holds explicitly constructed state passed by reference to its
// collaborators. There are no package-level singletons; constructing a new
// Engine (or calling Reset) is the only way to start over.
package review
