// Package comfyui is a client for the ComfyUI HTTP + WebSocket API
// (spec.md §4.3.c): submitting a workflow prompt and awaiting its
// completion notification.
//
// Grounded on original_source/comfyui_agent/executor.py's ComfyUIClient,
// translated from its httpx + websocket-client pair into net/http (the
// teacher's own outbound-call style, e.g. RomanQed-gqs has no HTTP client
// of its own, so the stdlib client is used directly as the teacher would)
// plus github.com/gorilla/websocket for the completion-await socket.
package comfyui
