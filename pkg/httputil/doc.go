// Package httputil provides HTTP handler utilities for the administrative
// API: consistent JSON responses, request decoding, and server middleware
// (request logging, metrics, panic recovery).
package httputil
