// Package cli implements the soapconnect command line.
package cli
