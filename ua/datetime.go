/*
Copyright (c) The open62541-go Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package ua

import "time"

// unixEpochTicks is the number of 100-ns intervals between the OPC UA
// DateTime origin (1601-01-01 UTC) and the Unix epoch. The conversion goes
// through Unix seconds rather than time.Duration, whose 290-year span can't
// reach from 1601 to the present.
const unixEpochTicks = 116444736000000000

const ticksPerSecond = 10000000

// DateTime is a signed 64-bit count of 100-ns intervals since 1601-01-01
// UTC, per the protocol.
type DateTime int64

// NewDateTime converts a time.Time to a DateTime.
func NewDateTime(t time.Time) DateTime {
	return DateTime(t.Unix()*ticksPerSecond + int64(t.Nanosecond())/100 + unixEpochTicks)
}

// Time converts a DateTime back to a time.Time.
func (d DateTime) Time() time.Time {
	rel := int64(d) - unixEpochTicks
	sec := rel / ticksPerSecond
	nsec := (rel % ticksPerSecond) * 100
	return time.Unix(sec, nsec).UTC()
}

// String renders DateTime as RFC3339 with nanosecond precision.
func (d DateTime) String() string {
	return d.Time().Format(time.RFC3339Nano)
}
