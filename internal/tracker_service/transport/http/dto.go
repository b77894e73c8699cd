package http

// DeliverRequest confirms delivered boxes against a client display name.
// DeliveredQty defaults to 1 when omitted and must be positive when given.
type DeliverRequest struct {
	Name         string `json:"name" validate:"required"`
	DeliveredQty *int   `json:"delivered_qty" validate:"omitempty,gt=0"`
}

// DeliverResponse carries the recomputed client status.
type DeliverResponse struct {
	Status string `json:"status"`
}

// DeleteClientRequest removes a client by display name or ID. At least one
// identifier must be supplied.
type DeleteClientRequest struct {
	Name     string `json:"name"`
	ClientID *int64 `json:"client_id"`
}

// DeleteClientResponse reports the outcome of a delete request. Error is set
// on the not-found response, mirroring the deleted=false body.
type DeleteClientResponse struct {
	Deleted bool   `json:"deleted"`
	Error   string `json:"error,omitempty"`
}

// ErrorResponse is the generic error payload.
type ErrorResponse struct {
	Error string `json:"error"`
}
