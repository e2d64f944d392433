// Package types defines the wire types shared by the server and the mock
// upstream provider: stores, their profile metrics and raw order records.
//
// Decoding is lenient on purpose-built fields. Order.TotalAmount accepts a
// JSON number, a numeric string or null, and Order.ProcessingTimeSeconds
// accepts a number, a numeric string or null. Values that cannot be parsed
// decode as "absent" instead of failing the whole record.
package types
