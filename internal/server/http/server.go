// Package http exposes the transcription service over HTTP.
package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"

	"github.com/ekisa-team/scribe/internal/model"
	"github.com/ekisa-team/scribe/internal/service"
)

// NewServer builds the HTTP server with all handlers registered.
func NewServer(port int, svc *service.Transcriber, models *model.Registry) *http.Server {
	mux := http.NewServeMux()
	api := humago.New(mux, huma.DefaultConfig("Audio Transcription API", "1.0.0"))

	NewTranscribeHandler(api, svc)
	NewStatusHandler(api, models)

	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           RequestID(AccessLog(mux)),
		ReadHeaderTimeout: 10 * time.Second,
	}
}
