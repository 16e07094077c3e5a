// Package notification formats operator announcements and delivers them
// through a push provider, keeping a history of every attempt.
package notification

import (
	"fmt"

	"github.com/medreza/bookstore-voucher-service/pkg/pricing"
	"github.com/shopspring/decimal"
)

const (
	KindNewDiscount = "new_discount"
	KindNewBook     = "new_book"
)

// Message is one of NewDiscount, NewBook or Generic.
type Message interface {
	Kind() string
	Title() string
	Body() string
}

type NewDiscount struct {
	BookTitle          string
	DiscountPercentage decimal.Decimal
	// OriginalPrice is optional; when set the body quotes the reduced price.
	OriginalPrice *decimal.Decimal
}

func (NewDiscount) Kind() string  { return KindNewDiscount }
func (NewDiscount) Title() string { return "New Discount Available!" }

func (m NewDiscount) Body() string {
	body := fmt.Sprintf("Get %s%% off on %q.", m.DiscountPercentage.String(), m.BookTitle)
	if m.OriginalPrice != nil {
		if price, err := pricing.DiscountedPrice(*m.OriginalPrice, m.DiscountPercentage); err == nil {
			body += fmt.Sprintf(" Now only %s.", price.StringFixed(2))
		}
	}
	return body
}

type NewBook struct {
	BookTitle string
	Author    string
}

func (NewBook) Kind() string  { return KindNewBook }
func (NewBook) Title() string { return "New Book Released!" }

func (m NewBook) Body() string {
	if m.Author == "" {
		return fmt.Sprintf("%q is now available in the store.", m.BookTitle)
	}
	return fmt.Sprintf("%q by %s is now available in the store.", m.BookTitle, m.Author)
}

// Generic passes an operator-written title and message through unchanged.
type Generic struct {
	Type    string
	Heading string
	Text    string
}

func (m Generic) Kind() string  { return m.Type }
func (m Generic) Title() string { return m.Heading }
func (m Generic) Body() string  { return m.Text }

type FieldError struct {
	Kind  string
	Field string
	Msg   string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s notification: %s %s", e.Kind, e.Field, e.Msg)
}

func required(kind string, vars map[string]string, field string) (string, error) {
	v := vars[field]
	if v == "" {
		return "", FieldError{Kind: kind, Field: field, Msg: "is required"}
	}
	return v, nil
}

// Parse turns the wire form {type, variables} into a typed message. Unknown
// types are treated as generic and need "title" and "message".
func Parse(kind string, vars map[string]string) (Message, error) {
	switch kind {
	case KindNewDiscount:
		title, err := required(kind, vars, "book_title")
		if err != nil {
			return nil, err
		}
		raw, err := required(kind, vars, "discount_percentage")
		if err != nil {
			return nil, err
		}
		pct, err := decimal.NewFromString(raw)
		if err != nil || pct.IsNegative() || pct.GreaterThan(decimal.NewFromInt(100)) {
			return nil, FieldError{Kind: kind, Field: "discount_percentage", Msg: "must be a number between 0 and 100"}
		}
		m := NewDiscount{BookTitle: title, DiscountPercentage: pct}
		if rawPrice := vars["original_price"]; rawPrice != "" {
			price, err := decimal.NewFromString(rawPrice)
			if err != nil || price.IsNegative() {
				return nil, FieldError{Kind: kind, Field: "original_price", Msg: "must be a non-negative number"}
			}
			m.OriginalPrice = &price
		}
		return m, nil
	case KindNewBook:
		title, err := required(kind, vars, "book_title")
		if err != nil {
			return nil, err
		}
		return NewBook{BookTitle: title, Author: vars["author"]}, nil
	default:
		title, err := required(kind, vars, "title")
		if err != nil {
			return nil, err
		}
		text, err := required(kind, vars, "message")
		if err != nil {
			return nil, err
		}
		return Generic{Type: kind, Heading: title, Text: text}, nil
	}
}
