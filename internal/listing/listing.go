// Package listing defines the member-submitted post variants. Each post_type
// carries its own field set and validation instead of one object with
// optional fields for every type.
package listing

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"realestate/internal/money"
	"realestate/internal/validator"

	"github.com/shopspring/decimal"
)

type Type string

const (
	TypeProperty Type = "property"
	TypeLand     Type = "land"
	TypeSim      Type = "sim"
)

var (
	ErrInvalid     = errors.New("invalid listing")
	ErrUnknownType = errors.New("unknown post_type")
)

func ParseType(raw string) (Type, error) {
	switch Type(raw) {
	case TypeProperty, TypeLand, TypeSim:
		return Type(raw), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownType, raw)
}

type Details interface {
	Type() Type
	Validate() error
}

// Draft is the member-editable part of a listing post.
type Draft struct {
	PostType     Type
	Title        string
	Description  string
	Price        int64
	Images       []string
	ContactPhone string
	ContactEmail string
	Details      Details
}

type envelope struct {
	PostType     string          `json:"post_type"`
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	Price        decimal.Decimal `json:"price"`
	Images       []string        `json:"images"`
	ContactPhone string          `json:"contact_phone"`
	ContactEmail string          `json:"contact_email"`
}

// DecodeDraft reads a flat JSON object: the common fields plus the fields of
// the variant named by post_type.
func DecodeDraft(raw []byte) (Draft, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Draft{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	postType, err := ParseType(env.PostType)
	if err != nil {
		return Draft{}, err
	}
	price, err := money.FromDecimal(env.Price)
	if err != nil {
		return Draft{}, fmt.Errorf("%w: %w", ErrInvalid, &validator.FieldError{Field: "price", Reason: err.Error()})
	}
	details, err := DecodeDetails(postType, raw)
	if err != nil {
		return Draft{}, err
	}
	return Draft{
		PostType:     postType,
		Title:        strings.TrimSpace(env.Title),
		Description:  strings.TrimSpace(env.Description),
		Price:        price,
		Images:       env.Images,
		ContactPhone: validator.NormalizePhone(env.ContactPhone),
		ContactEmail: strings.TrimSpace(env.ContactEmail),
		Details:      details,
	}, nil
}

func DecodeDetails(postType Type, raw []byte) (Details, error) {
	var details Details
	switch postType {
	case TypeProperty:
		details = &Property{}
	case TypeLand:
		details = &Land{}
	case TypeSim:
		details = &Sim{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, postType)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return details, nil
	}
	if err := json.Unmarshal(raw, details); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return details, nil
}

func EncodeDetails(details Details) ([]byte, error) {
	return json.Marshal(details)
}

func (d Draft) Validate() error {
	err := validator.First(
		validator.Required("title", d.Title),
		validator.MaxLength("title", d.Title, 200),
		validator.Required("description", d.Description),
		validator.Required("contact_phone", d.ContactPhone),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if d.Price <= 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, &validator.FieldError{Field: "price", Reason: "must be positive"})
	}
	if err := validator.ValidatePhone(d.ContactPhone); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, &validator.FieldError{Field: "contact_phone", Reason: err.Error()})
	}
	if d.ContactEmail != "" {
		if err := validator.ValidateEmail(d.ContactEmail); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalid, &validator.FieldError{Field: "contact_email", Reason: err.Error()})
		}
	}
	if len(d.Images) > 20 {
		return fmt.Errorf("%w: %w", ErrInvalid, &validator.FieldError{Field: "images", Reason: "at most 20 images"})
	}
	if d.Details == nil || d.Details.Type() != d.PostType {
		return fmt.Errorf("%w: details do not match post_type %s", ErrInvalid, d.PostType)
	}
	if err := d.Details.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}
