// Copyright (C) 2026 Alexis Argyris
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package discussion drives one token-streamed conversational exchange
// about a critique with the analysis service.
//
// A Controller holds at most one exchange at a time. Send cancels any
// exchange still in flight (last request wins, nothing is queued), emits
// the user's message to the listener immediately, then opens the stream
// and accumulates tokens until the service settles the exchange. A fixed
// watchdog forces a synthetic timeout settlement when the service stops
// responding. Cancelling an exchange discards its partial accumulation;
// no partial reply surfaces afterwards.
package discussion
