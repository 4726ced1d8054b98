package gateway

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-faster/jx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_ConfirmPayment(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantErr     bool
		wantSuccess bool
		wantRef     string
		wantReason  string
	}{
		{
			name:        "approved",
			status:      http.StatusOK,
			body:        `{"success":true,"reference":"txn_42","extra":{"a":[1,2]}}`,
			wantSuccess: true,
			wantRef:     "txn_42",
		},
		{
			name:       "declined in body",
			status:     http.StatusOK,
			body:       `{"success":false,"reference":null,"reason":"insufficient funds"}`,
			wantReason: "insufficient funds",
		},
		{
			name:       "payment required overrides body",
			status:     http.StatusPaymentRequired,
			body:       `{"success":true,"reason":"card expired"}`,
			wantReason: "card expired",
		},
		{
			name:    "server error",
			status:  http.StatusBadGateway,
			body:    `upstream down`,
			wantErr: true,
		},
		{
			name:    "malformed body",
			status:  http.StatusOK,
			body:    `{"success":"yes"}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotAmount int64
			var gotCurrency string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, confirmPath, r.URL.Path)

				data, err := io.ReadAll(r.Body)
				assert.NoError(t, err)
				assert.NoError(t, jx.DecodeBytes(data).ObjBytes(func(d *jx.Decoder, key []byte) error {
					switch string(key) {
					case "amount":
						v, err := d.Int64()
						gotAmount = v
						return err
					case "currency":
						v, err := d.Str()
						gotCurrency = v
						return err
					default:
						return d.Skip()
					}
				}))

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewClient(srv.URL+"/", time.Second)
			conf, err := c.ConfirmPayment(context.Background(), 5000, "EUR")

			assert.Equal(t, int64(5000), gotAmount)
			assert.Equal(t, "EUR", gotCurrency)

			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSuccess, conf.Success)
			assert.Equal(t, tt.wantRef, conf.Reference)
			assert.Equal(t, tt.wantReason, conf.Reason)
		})
	}
}

func TestClient_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 20*time.Millisecond)
	_, err := c.ConfirmPayment(context.Background(), 100, "EUR")
	require.Error(t, err)
}

func TestSandbox(t *testing.T) {
	s := &Sandbox{Limit: 10000}
	ctx := context.Background()

	conf, err := s.ConfirmPayment(ctx, 5000, "EUR")
	require.NoError(t, err)
	assert.True(t, conf.Success)
	assert.Equal(t, "sandbox-000001", conf.Reference)

	conf, err = s.ConfirmPayment(ctx, 10001, "EUR")
	require.NoError(t, err)
	assert.False(t, conf.Success)
	assert.Contains(t, conf.Reason, "exceeds sandbox limit")

	conf, err = s.ConfirmPayment(ctx, 0, "EUR")
	require.NoError(t, err)
	assert.False(t, conf.Success)

	unlimited := &Sandbox{}
	conf, err = unlimited.ConfirmPayment(ctx, 1<<40, "EUR")
	require.NoError(t, err)
	assert.True(t, conf.Success)
}
