package handler

import "net/http"

// UsageHandler serves the API description at the root path.
type UsageHandler struct {
	engine string
}

// NewUsageHandler creates a new usage handler.
func NewUsageHandler(engine string) *UsageHandler {
	return &UsageHandler{engine: engine}
}

// UsageResponse describes how to call the download endpoint.
type UsageResponse struct {
	Message string     `json:"message"`
	Usage   UsagePaths `json:"usage"`
	Example string     `json:"example"`
	Engine  string     `json:"engine"`
}

// UsagePaths lists the path shape per media type.
type UsagePaths struct {
	Audio string `json:"audio"`
	Video string `json:"video"`
}

// Index handles GET /.
func (h *UsageHandler) Index(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, UsageResponse{
		Message: "YouTube Downloader API",
		Usage: UsagePaths{
			Audio: "/videoId/type=audio",
			Video: "/videoId/type=video",
		},
		Example: "/dQw4w9WgXcQ/type=audio",
		Engine:  h.engine,
	})
}
