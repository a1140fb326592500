package server

// CreateResponse is the body of a successful POST /v1/{collection}.
type CreateResponse struct {
	ID string `json:"id"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status string `json:"status"`
}

// Order query values accepted by GET /v1/{collection}.
const (
	OrderArrival = "arrival"
	OrderNewest  = "newest"
)
