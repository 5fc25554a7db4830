// Package types contains the response shapes shared by the service and the HTTP layer.
package types

// Messages returned by the ingestion and reporting endpoints.
const (
	MessageNoInput        = "No input data provided."
	MessageStored         = "Data received and stored successfully!"
	MessageNoCategoryData = "No category data available for the specified ASIN."
)

// MessageResponse is the body of the ingestion endpoint.
type MessageResponse struct {
	Message string `json:"message"`
}

// ChartsResponse is the body of the reporting endpoint. At most one of
// Message and Error is set, and only when no chart is present.
type ChartsResponse struct {
	Chart1  string `json:"chart1,omitempty"`
	Chart2  string `json:"chart2,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ChartCount returns how many chart fragments the response carries.
func (r ChartsResponse) ChartCount() int {
	n := 0
	if r.Chart1 != "" {
		n++
	}
	if r.Chart2 != "" {
		n++
	}
	return n
}
