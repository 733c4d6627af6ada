package authority

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/sierraromeo/go-pbs-authority/internal/breaker"
	clienterrors "github.com/sierraromeo/go-pbs-authority/internal/errors"
	"github.com/sierraromeo/go-pbs-authority/questions"
)

// BearerSource supplies the current access token for the Authorization
// header. The session manager implements it.
type BearerSource interface {
	BearerToken() string
}

// Controller submits authority requests to the assessment service and owns
// the editability transitions that follow each assessment.
type Controller struct {
	endpoint  string
	productID string
	userAgent string
	bearer    BearerSource
	client    *http.Client
	breaker   *breaker.Breaker
	log       zerolog.Logger
}

// ControllerOption modifies a Controller at construction time.
type ControllerOption func(*Controller)

// WithHTTPClient sets the HTTP client used for assessment service calls.
func WithHTTPClient(client *http.Client) ControllerOption {
	return func(c *Controller) { c.client = client }
}

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) ControllerOption {
	return func(c *Controller) { c.log = log }
}

// WithUserAgent overrides the default User-Agent header.
func WithUserAgent(ua string) ControllerOption {
	return func(c *Controller) { c.userAgent = ua }
}

// NewController creates a Controller for the assessment service at
// endpoint. productID is sent as dhs-productId on every call.
func NewController(endpoint, productID string, bearer BearerSource, options ...ControllerOption) *Controller {
	c := &Controller{
		endpoint:  endpoint,
		productID: productID,
		userAgent: "SierraRomeo/1.0.0",
		bearer:    bearer,
		client:    http.DefaultClient,
		log:       zerolog.Nop(),
	}
	for _, opt := range options {
		opt(c)
	}
	c.breaker = breaker.New(breaker.DefaultConfig("assessment-service"), c.log)
	return c
}

// Submit validates and submits req for assessment. A rejection is a normal
// terminal outcome, not an error; errors mean the call itself failed and
// req was not mutated.
func (c *Controller) Submit(ctx context.Context, req *Request) (*Response, error) {
	return c.send(ctx, http.MethodPost, req)
}

// Update attaches an override to req and resubmits it. The same decode and
// editability rules as Submit apply.
func (c *Controller) Update(ctx context.Context, req *Request, override OverrideDetail) (*Response, error) {
	req.OverrideCode = override.Code
	return c.send(ctx, http.MethodPut, req)
}

func (c *Controller) send(ctx context.Context, method string, req *Request) (*Response, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	req.normalizeForSubmit()

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(err, "[send] serializing request")
	}

	httpReq, err := c.prepareRequest(ctx, method, c.endpoint+"/assess/submit", req.PrescriberID, payload)
	if err != nil {
		return nil, err
	}

	body, err := c.do(httpReq)
	if err != nil {
		return nil, err
	}
	return c.decodeAssessment(req, body)
}

// RestrictionQuestions fetches the raw restriction question response for
// the item and restriction on req. Cancellation is observed as soon as the
// network call returns so a superseded lookup can never reach the caller.
func (c *Controller) RestrictionQuestions(ctx context.Context, req *Request) (*questions.Response, error) {
	u := fmt.Sprintf("%s/question/%s/%s/%s", c.endpoint,
		url.PathEscape(req.PrescriberID),
		url.PathEscape(req.ItemDetails.ItemCode),
		url.PathEscape(req.RestrictionQuestionDetails.RestrictionCode))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, errors.Wrap(err, "[RestrictionQuestions] building request")
	}
	c.addHeaders(httpReq, req.PrescriberID)

	body, err := c.do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, clienterrors.Wrapf(clienterrors.ErrCancelled, "question lookup for item %s", req.ItemDetails.ItemCode)
		}
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, clienterrors.Wrapf(clienterrors.ErrCancelled, "question lookup for item %s", req.ItemDetails.ItemCode)
	}

	var resp questions.Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, clienterrors.Wrapf(clienterrors.ErrDecode, "question response %q: %v", string(body), err)
	}
	return &resp, nil
}

// do executes an HTTP request through the circuit breaker and returns the
// response body. Non-2xx replies are decode-class failures carrying the
// raw body; they are never silently swallowed.
func (c *Controller) do(req *http.Request) ([]byte, error) {
	res, err := c.breaker.Do(func() (*http.Response, error) {
		return c.client.Do(req)
	})
	if err != nil {
		return nil, clienterrors.Wrapf(clienterrors.ErrTransport, "%s %s: %v", req.Method, req.URL, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, clienterrors.Wrapf(clienterrors.ErrTransport, "reading response body: %v", err)
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		statusErr := &StatusError{StatusCode: res.StatusCode, RawBody: string(body)}
		return nil, clienterrors.Wrapf(clienterrors.ErrDecode, "%s", statusErr.Error())
	}
	return body, nil
}

// decodeAssessment interprets an assessment reply and applies the
// editability transition. Replies with status messages but no assessment
// are a known service quirk and are folded into a synthesized rejection so
// callers always see a terminal-with-reason shape.
func (c *Controller) decodeAssessment(req *Request, body []byte) (*Response, error) {
	var result Response
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, clienterrors.Wrapf(clienterrors.ErrDecode, "assessment response %q: %v", string(body), err)
	}

	if result.AuthorityUniqueID != "" {
		req.AuthorityUniqueID = result.AuthorityUniqueID
	}

	switch {
	case result.AssessmentDetails != nil:
		// Assessed.
	case len(result.StatusMessages) > 0:
		result.AssessmentDetails = &AssessmentDetails{Code: CodeRejected, Text: "Rejected"}
	default:
		serviceErr := &ServiceError{
			Code:    result.ErrorCode.String(),
			Message: result.ErrorMessage,
			RawBody: string(body),
		}
		return nil, clienterrors.Wrapf(clienterrors.ErrDecode, "%s", serviceErr.Error())
	}

	if finalized(result.AssessmentDetails.Code) {
		req.Editable = false
	}
	c.log.Debug().
		Str("code", result.AssessmentDetails.Code).
		Str("text", result.AssessmentDetails.Text).
		Bool("editable", req.Editable).
		Msg("assessment outcome")
	return &result, nil
}

// prepareRequest wraps the serialized request in the multipart envelope the
// service expects: one part named authoritydetails with a quoted filename.
func (c *Controller) prepareRequest(ctx context.Context, method, url, prescriberID string, payload []byte) (*http.Request, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="authoritydetails"; filename="AssessAuthorityRequest.json"`)
	header.Set("Content-Type", "application/json")
	part, err := w.CreatePart(header)
	if err != nil {
		return nil, errors.Wrap(err, "[prepareRequest] creating multipart part")
	}
	if _, err := part.Write(payload); err != nil {
		return nil, errors.Wrap(err, "[prepareRequest] writing payload")
	}
	if err := w.Close(); err != nil {
		return nil, errors.Wrap(err, "[prepareRequest] closing multipart writer")
	}

	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return nil, errors.Wrap(err, "[prepareRequest] building request")
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	c.addHeaders(req, prescriberID)
	return req, nil
}

// addHeaders attaches the audit/subject identity block, the correlation
// identifiers and the bearer token. Message and correlation ids are drawn
// independently for every call and never reused.
func (c *Controller) addHeaders(req *http.Request, prescriberID string) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("dhs-messageId", uuid.NewString())
	req.Header.Set("dhs-correlationId", uuid.NewString())
	req.Header.Set("dhs-auditIdType", "PRESCRIBER")
	req.Header.Set("dhs-auditId", prescriberID)
	req.Header.Set("dhs-subjectId", prescriberID)
	req.Header.Set("dhs-subjectIdType", "PRESCRIBER")
	req.Header.Set("dhs-productId", c.productID)
	req.Header.Set("Authorization", c.bearer.BearerToken())
}
