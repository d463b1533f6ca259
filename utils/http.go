package utils

import (
	"net/http"
	"time"
)

// HTTPClient is shared by the outbound provider clients (payments, places).
var HTTPClient = &http.Client{
	Timeout: 15 * time.Second,
}
