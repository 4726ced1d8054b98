package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/kart-backoffice/internal/domain/cart"
	"github.com/xenking/kart-backoffice/internal/domain/order"
)

const maxBodySize = 1 << 20

type addLineRequest struct {
	ProductID string
	Quantity  int
}

type createOrderRequest struct {
	UserID            string
	ShippingMethodID  string
	ShippingAddressID string
	BillingAddressID  string
	TrackingNumber    string
	Weight            decimal.Decimal
	InitialStatus     string
}

type changeStatusRequest struct {
	Status string
}

// decodeBody parses a JSON object body, calling field for every key.
func decodeBody(r *http.Request, field func(d *jx.Decoder, key string) error) error {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return badRequest(errors.Wrap(err, "read body"))
	}
	if err := jx.DecodeBytes(data).Obj(field); err != nil {
		return badRequest(err)
	}
	return nil
}

func decodeAddLine(r *http.Request) (addLineRequest, error) {
	var req addLineRequest
	err := decodeBody(r, func(d *jx.Decoder, key string) (err error) {
		switch key {
		case "productId":
			req.ProductID, err = d.Str()
		case "quantity":
			// Quantities are stored as 32-bit integers.
			var q int32
			q, err = d.Int32()
			req.Quantity = int(q)
		default:
			err = d.Skip()
		}
		return errors.Wrap(err, key)
	})
	if err != nil {
		return req, err
	}
	if req.ProductID == "" {
		return req, badRequest(errors.New("productId is required"))
	}
	return req, nil
}

func decodeCreateOrder(r *http.Request) (createOrderRequest, error) {
	var req createOrderRequest
	err := decodeBody(r, func(d *jx.Decoder, key string) (err error) {
		switch key {
		case "userId":
			req.UserID, err = d.Str()
		case "shippingMethodId":
			req.ShippingMethodID, err = d.Str()
		case "shippingAddressId":
			req.ShippingAddressID, err = d.Str()
		case "billingAddressId":
			req.BillingAddressID, err = decodeOptStr(d)
		case "trackingNumber":
			req.TrackingNumber, err = decodeOptStr(d)
		case "initialStatus":
			req.InitialStatus, err = decodeOptStr(d)
		case "weight":
			req.Weight, err = decodeDecimal(d)
		default:
			err = d.Skip()
		}
		return errors.Wrap(err, key)
	})
	if err != nil {
		return req, err
	}
	switch {
	case req.ShippingMethodID == "":
		return req, badRequest(errors.New("shippingMethodId is required"))
	case req.ShippingAddressID == "":
		return req, badRequest(errors.New("shippingAddressId is required"))
	case req.Weight.IsNegative():
		return req, badRequest(errors.New("weight must not be negative"))
	}
	return req, nil
}

func decodeChangeStatus(r *http.Request) (changeStatusRequest, error) {
	var req changeStatusRequest
	err := decodeBody(r, func(d *jx.Decoder, key string) (err error) {
		switch key {
		case "status":
			req.Status, err = d.Str()
		default:
			err = d.Skip()
		}
		return errors.Wrap(err, key)
	})
	return req, err
}

func decodeOptStr(d *jx.Decoder) (string, error) {
	if d.Next() == jx.Null {
		return "", d.Null()
	}
	return d.Str()
}

// decodeDecimal accepts a JSON number or a numeric string.
func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	switch d.Next() {
	case jx.Null:
		return decimal.Zero, d.Null()
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromString(s)
	default:
		n, err := d.Num()
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromString(n.String())
	}
}

func writeJSON(w http.ResponseWriter, status int, encode func(e *jx.Encoder)) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	encode(e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

func encodeTime(e *jx.Encoder, t time.Time) {
	e.Str(t.UTC().Format(time.RFC3339))
}

func encodeCart(e *jx.Encoder, c *cart.Cart) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(c.ID)
	e.FieldStart("userId")
	e.Str(c.UserID)
	e.FieldStart("status")
	e.Str(string(c.Status))
	e.FieldStart("itemCount")
	e.Int(c.ItemCount())
	e.FieldStart("total")
	e.Str(c.Total.String())
	e.FieldStart("lines")
	e.ArrStart()
	for _, l := range c.Lines {
		e.ObjStart()
		e.FieldStart("id")
		e.Str(l.ID)
		e.FieldStart("productId")
		e.Str(l.ProductID)
		e.FieldStart("quantity")
		e.Int(l.Quantity)
		e.FieldStart("unitPrice")
		e.Str(l.UnitPrice.String())
		e.FieldStart("total")
		e.Str(l.Total.String())
		e.ObjEnd()
	}
	e.ArrEnd()
	if !c.CreatedAt.IsZero() {
		e.FieldStart("createdAt")
		encodeTime(e, c.CreatedAt)
	}
	if !c.UpdatedAt.IsZero() {
		e.FieldStart("updatedAt")
		encodeTime(e, c.UpdatedAt)
	}
	e.ObjEnd()
}

func encodeStatus(e *jx.Encoder, st order.Status) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(st.ID)
	e.FieldStart("label")
	e.Str(st.Label)
	e.ObjEnd()
}

func encodeOrder(e *jx.Encoder, o *order.Order) {
	optStr := func(name, v string) {
		if v != "" {
			e.FieldStart(name)
			e.Str(v)
		}
	}

	e.ObjStart()
	e.FieldStart("id")
	e.Str(o.ID)
	e.FieldStart("reference")
	e.Str(o.Reference)
	e.FieldStart("userId")
	e.Str(o.UserID)
	optStr("cartId", o.CartID)
	optStr("billingAddressId", o.BillingAddressID)
	optStr("shippingAddressId", o.ShippingAddressID)
	optStr("carrierId", o.CarrierID)
	optStr("shippingMethodId", o.ShippingMethodID)
	e.FieldStart("productsTotal")
	e.Str(o.ProductsTotal.String())
	e.FieldStart("shippingFee")
	e.Str(o.ShippingFee.String())
	e.FieldStart("grandTotal")
	e.Str(o.GrandTotal.String())
	e.FieldStart("weight")
	e.Str(o.Weight.String())
	optStr("trackingNumber", o.TrackingNumber)
	if o.Status != nil {
		e.FieldStart("status")
		encodeStatus(e, *o.Status)
	}
	e.FieldStart("createdAt")
	encodeTime(e, o.CreatedAt)
	e.ObjEnd()
}

func encodeHistory(e *jx.Encoder, orderID string, entries []order.HistoryEntry) {
	e.ObjStart()
	e.FieldStart("orderId")
	e.Str(orderID)
	e.FieldStart("entries")
	e.ArrStart()
	for _, h := range entries {
		e.ObjStart()
		e.FieldStart("id")
		e.Str(h.ID)
		e.FieldStart("status")
		encodeStatus(e, h.Status)
		e.FieldStart("createdAt")
		encodeTime(e, h.CreatedAt)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.ObjEnd()
}
