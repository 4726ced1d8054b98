// Package gateway provides payment.Gateway implementations: an HTTP client
// for a remote confirmation endpoint and an in-process sandbox.
package gateway

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/xenking/kart-backoffice/internal/domain/payment"
)

const confirmPath = "/v1/payments/confirm"

// maxResponseSize bounds the gateway response body read into memory.
const maxResponseSize = 64 << 10

var _ payment.Gateway = (*Client)(nil)

// Client confirms payments against a remote gateway over HTTP.
//
// The gateway receives {"amount": <minor units>, "currency": "EUR"} and
// answers {"success": bool, "reference": string, "reason": string}. A 2xx or
// 402 response is a decision; anything else is a transport failure.
type Client struct {
	baseURL string
	http    *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) { cl.http = c }
}

// NewClient returns a Client for the gateway at baseURL. Requests are traced
// with otelhttp and bounded by timeout.
func NewClient(baseURL string, timeout time.Duration, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// ConfirmPayment asks the gateway to confirm a charge.
func (c *Client) ConfirmPayment(ctx context.Context, amountMinor int64, currency string) (*payment.Confirmation, error) {
	body := encodeConfirmRequest(amountMinor, currency)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+confirmPath, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "send request")
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, errors.Wrap(err, "read response")
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300, resp.StatusCode == http.StatusPaymentRequired:
	default:
		return nil, errors.Errorf("gateway responded %d", resp.StatusCode)
	}

	conf, err := decodeConfirmation(data)
	if err != nil {
		return nil, errors.Wrap(err, "decode response")
	}
	if resp.StatusCode == http.StatusPaymentRequired {
		conf.Success = false
	}
	return conf, nil
}

func encodeConfirmRequest(amountMinor int64, currency string) []byte {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	e.ObjStart()
	e.FieldStart("amount")
	e.Int64(amountMinor)
	e.FieldStart("currency")
	e.Str(currency)
	e.ObjEnd()

	return append([]byte(nil), e.Bytes()...)
}

func decodeConfirmation(data []byte) (*payment.Confirmation, error) {
	var conf payment.Confirmation
	d := jx.DecodeBytes(data)
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		switch string(key) {
		case "success":
			v, err := d.Bool()
			if err != nil {
				return errors.Wrap(err, "success")
			}
			conf.Success = v
		case "reference":
			v, err := decodeOptStr(d)
			if err != nil {
				return errors.Wrap(err, "reference")
			}
			conf.Reference = v
		case "reason":
			v, err := decodeOptStr(d)
			if err != nil {
				return errors.Wrap(err, "reason")
			}
			conf.Reason = v
		default:
			return d.Skip()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &conf, nil
}

func decodeOptStr(d *jx.Decoder) (string, error) {
	if d.Next() == jx.Null {
		return "", d.Null()
	}
	return d.Str()
}
