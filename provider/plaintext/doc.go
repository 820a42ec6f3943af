// Package plaintext provides the local text extraction provider.
package plaintext
