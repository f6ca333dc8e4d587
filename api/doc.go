// Package api is the scheduler's Control API (spec.md §4.4): a
// go-chi/chi router exposing job inspection and administrative mutation
// endpoints over the store, plus Prometheus metrics.
//
// Routes and their semantics are grounded on
// original_source/comfyui_agent/ui_server.py's FastAPI app, translated
// into chi handlers; request bodies are validated with
// github.com/go-playground/validator/v10 in place of FastAPI's pydantic
// models, and CORS is handled by github.com/go-chi/cors rather than
// Starlette's CORSMiddleware.
package api
