// Package openai provides ai interface implementations backed by
// OpenAI-compatible APIs (OpenAI, Ollama, LocalAI, vLLM, etc).
//
// All services are built on langchaingo clients. Generation and reranking
// request JSON mode and parse responses defensively, since local models
// occasionally emit fenced or slightly malformed JSON.
package openai
