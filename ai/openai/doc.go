// Package openai provides an ai.Embedder backed by OpenAI-compatible APIs.
package openai
