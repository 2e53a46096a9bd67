// Package llm provides an OpenAI-compatible chat completion client (OpenRouter
// by default) used as a translation backend.
//
// # Translation
//
// Client.Translate sends one subtitle line with a prompt that asks for a JSON
// object {"translation": "..."}; the model detects the source language itself.
// Responses wrapped in code fences or surrounded by prose are tolerated by
// DecodeLLMJSON.
//
// # Configuration
//
// Requires api_key and model, optionally base_url, referer, title and
// timeout_seconds.
//
// # Retry Behaviour
//
// Requests are retried on HTTP 408/429/5xx, network timeouts and empty model
// content with exponential backoff (base 1s, max 10s, up to 5 attempts by
// default). Context cancellation aborts retries immediately.
package llm
