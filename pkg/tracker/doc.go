// Copyright (C) 2026 Alexis Argyris
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package tracker wraps remote operations with latency-scaled feedback.
//
// A tracked operation races its own completion against two thresholds.
// Settling before the slow threshold produces only a logged outcome line.
// Between the slow and progress thresholds a transient status indicator
// is shown and disposed on settlement. Past the progress threshold a
// cancellable progress surface appears as well; its cancel signal reaches
// the operation through its context, which the operation may poll but is
// never forced to honor. Errors are logged with the operation id and
// rethrown unchanged.
//
// The tracker is independent of the session machinery and usable around
// any operation taking a context.
package tracker
