// SPDX-License-Identifier: MIT

package validate

// LogLevels lists the accepted level names in increasing severity.
var LogLevels = []string{"trace", "debug", "info", "warn", "error"}

// TraceExporters lists the OTLP exporter transports.
var TraceExporters = []string{"grpc", "http"}

// LogLevel checks that value is one of LogLevels. Matching is exact: the
// loader lowercases levels before validation.
func (v *Validator) LogLevel(field, value string) {
	v.OneOf(field, value, LogLevels)
}
