// Package logging configures log/slog for soapconnect.
//
// Library packages accept a *slog.Logger through their options and fall back
// to Nop. The CLI builds the process logger from settings and flags:
//
//	logger := logging.New(logging.Config{
//	    Level:  logging.ParseLevel("debug"),
//	    Format: logging.FormatJSON,
//	    Tee:    logFile,
//	})
//
// A Tee writer receives a JSON copy of every record at TeeLevel, independent
// of the console level. Credential attributes (password, token, passphrase
// and similar) are written as Redacted on every sink.
package logging
