package tasku

// StatusMessage is the fixed body of the status endpoint.
const StatusMessage = "Tasku API está funcionando"

const contentTypeText = "text/plain; charset=utf-8"

// StatusOutput carries the plain-text status response. A []byte body is
// written by huma as-is, bypassing content negotiation.
type StatusOutput struct {
	ContentType string `header:"Content-Type"`
	Body        []byte
}
