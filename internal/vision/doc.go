// Package vision talks to remote vision-capable language models that read meter
// displays from photos.
//
// Two wire protocols are supported:
//   - openai: chat-completions compatible endpoints (OpenAI, Gemini's
//     OpenAI-compatible endpoint, OpenRouter). The image travels as a data URL.
//   - anthropic: the Messages API with a base64 image content block.
//
// # Retry Behaviour
//
// The client retries on HTTP 408/429/5xx errors, empty content and network
// timeouts with exponential backoff. Context cancellation aborts retries
// immediately. Callers bound the whole call with their own deadline.
package vision
