package handlers

import (
	"log/slog"
	"net/http"

	"kindergarten/internal/apiclient"
)

func respondWithError(w http.ResponseWriter, status int, userMsg, logMsg string, err error) {
	if err != nil {
		if logMsg == "" {
			logMsg = userMsg
		}
		slog.Error(logMsg, "status", status, "error", err)
	}

	http.Error(w, userMsg, status)
}

// alertMessage is the text of the alert dialog for a failed remote call
func alertMessage(prefix string, err error) string {
	return prefix + ": " + apiclient.Message(err)
}
