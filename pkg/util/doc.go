// Package util provides shared helpers for safe file-path validation and
// log-body truncation used across soapconnect packages.
//
//   - SafeFilePath / SafeFilePathAllowAbsolute: reject path-traversal attempts
//     before a capability document or credential file is read from disk
//   - CompactEnvelope: compact and cut SOAP envelopes for debug logging
package util
