// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package turn

import "sync/atomic"

// CancelFlag is the cooperative cancellation signal a front-end flips to
// stop an in-flight turn (spec.md §5 "should_streaming_continue"). It is
// polled inside the streaming parser between chunks and at every loop
// boundary; in-flight subprocesses are not killed.
type CancelFlag struct {
	flag atomic.Bool
}

// ShouldContinue reports whether the turn should keep running.
func (c *CancelFlag) ShouldContinue() bool {
	if c == nil {
		return true
	}
	return !c.flag.Load()
}

// Cancel requests the turn stop at its next check point.
func (c *CancelFlag) Cancel() {
	if c == nil {
		return
	}
	c.flag.Store(true)
}

// Cancelled reports whether Cancel has been called.
func (c *CancelFlag) Cancelled() bool {
	if c == nil {
		return false
	}
	return c.flag.Load()
}
