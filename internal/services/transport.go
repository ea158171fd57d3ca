package services

import (
	"bytes"
	"crypto/tls"
	"encoding/xml"
	"fmt"
	"net/http"
	"time"

	"unfuddle-plugin/internal/models"

	"github.com/go-resty/resty/v2"
	"github.com/ternarybob/arbor"
)

const defaultTrackerTimeout = 5 * time.Second

// transport issues signed requests against one tracker instance. Transport
// failures never escape as errors; they come back as a synthesized status-500
// response so callers only ever deal with one shape.
type transport struct {
	client      *resty.Client
	instanceURL string
	logger      arbor.ILogger
}

func newTransport(cfg models.ClientConfig, logger arbor.ILogger) *transport {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTrackerTimeout
	}

	client := resty.New().
		SetBaseURL(cfg.InstanceURL).
		SetBasicAuth(cfg.Username, cfg.Password).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	// Verified TLS unless the operator explicitly opts out for a legacy
	// instance.
	if cfg.InsecureSkipVerify {
		client.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}

	return &transport{
		client:      client,
		instanceURL: cfg.InstanceURL,
		logger:      logger,
	}
}

// Get issues a GET with optional query parameters. Relative paths resolve
// against the instance URL; absolute URLs pass through unchanged.
func (t *transport) Get(path string, query map[string]string) *models.TrackerResponse {
	req := t.client.R()
	if len(query) > 0 {
		req.SetQueryParams(query)
	}

	resp, err := req.Get(path)
	if err != nil {
		return t.failure(path, err)
	}

	return models.NewTrackerResponse(resp.String(), resp.Header(), resp.StatusCode())
}

// Post serializes the ticket fields to XML and issues a POST. The tracker
// requires XML request bodies even though it answers in JSON.
func (t *transport) Post(path string, ticket *models.OrderedMap) *models.TrackerResponse {
	resp, err := t.client.R().
		SetHeader("Content-Type", "application/xml").
		SetBody(encodeTicketXML(ticket)).
		Post(path)
	if err != nil {
		return t.failure(path, err)
	}

	return models.NewTrackerResponse(resp.String(), resp.Header(), resp.StatusCode())
}

func (t *transport) failure(url string, err error) *models.TrackerResponse {
	t.logger.Error().Err(err).Str("url", url).Msg("Tracker request failed")
	body := fmt.Sprintf("There was a problem reaching %s: %v", url, err)
	return models.NewTrackerResponse(body, http.Header{}, http.StatusInternalServerError)
}

// encodeTicketXML renders the ordered ticket fields as a <ticket> document
// with no attribute type annotations.
func encodeTicketXML(fields *models.OrderedMap) string {
	var buf bytes.Buffer
	buf.WriteString("<ticket>")
	for _, key := range fields.Keys() {
		value, _ := fields.Get(key)
		buf.WriteString("<" + key + ">")
		_ = xml.EscapeText(&buf, []byte(models.StringValue(value)))
		buf.WriteString("</" + key + ">")
	}
	buf.WriteString("</ticket>")
	return buf.String()
}
