// Package openai provides the remote extraction provider backed by
// OpenAI-compatible chat APIs.
package openai
