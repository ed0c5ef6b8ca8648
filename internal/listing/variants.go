package listing

import (
	"realestate/internal/validator"
)

type Property struct {
	PropertyType   string  `json:"property_type"`
	PropertyStatus string  `json:"property_status"`
	Area           float64 `json:"area"`
	Bedrooms       int     `json:"bedrooms"`
	Bathrooms      int     `json:"bathrooms"`
	Address        string  `json:"address"`
	District       string  `json:"district"`
	City           string  `json:"city"`
}

func (p *Property) Type() Type { return TypeProperty }

func (p *Property) Validate() error {
	if err := validator.First(
		validator.OneOf("property_type", p.PropertyType, "apartment", "house", "villa", "shophouse", "office", "land"),
		validator.OneOf("property_status", p.PropertyStatus, "for_sale", "for_rent", "sold", "rented"),
		validator.Required("address", p.Address),
		validator.Required("district", p.District),
		validator.Required("city", p.City),
	); err != nil {
		return err
	}
	if p.Area <= 0 {
		return &validator.FieldError{Field: "area", Reason: "must be positive"}
	}
	if p.Bedrooms < 0 {
		return &validator.FieldError{Field: "bedrooms", Reason: "must not be negative"}
	}
	if p.Bathrooms < 0 {
		return &validator.FieldError{Field: "bathrooms", Reason: "must not be negative"}
	}
	return nil
}

type Land struct {
	LandType       string   `json:"land_type"`
	PropertyStatus string   `json:"property_status"`
	Area           float64  `json:"area"`
	Width          *float64 `json:"width,omitempty"`
	Length         *float64 `json:"length,omitempty"`
	RoadWidth      *float64 `json:"road_width,omitempty"`
	LegalStatus    string   `json:"legal_status"`
	Orientation    string   `json:"orientation,omitempty"`
	Address        string   `json:"address"`
	District       string   `json:"district"`
	City           string   `json:"city"`
}

func (l *Land) Type() Type { return TypeLand }

func (l *Land) Validate() error {
	if err := validator.First(
		validator.OneOf("land_type", l.LandType, "residential", "commercial", "industrial", "agricultural"),
		validator.Required("legal_status", l.LegalStatus),
		validator.Required("address", l.Address),
		validator.Required("district", l.District),
		validator.Required("city", l.City),
	); err != nil {
		return err
	}
	if l.PropertyStatus != "" {
		if err := validator.OneOf("property_status", l.PropertyStatus, "for_sale", "for_rent", "sold", "rented"); err != nil {
			return err
		}
	}
	if l.Area <= 0 {
		return &validator.FieldError{Field: "area", Reason: "must be positive"}
	}
	for field, value := range map[string]*float64{"width": l.Width, "length": l.Length, "road_width": l.RoadWidth} {
		if value != nil && *value < 0 {
			return &validator.FieldError{Field: field, Reason: "must not be negative"}
		}
	}
	return nil
}

type Sim struct {
	PhoneNumber string   `json:"phone_number"`
	Network     string   `json:"network"`
	SimType     string   `json:"sim_type"`
	IsVIP       bool     `json:"is_vip"`
	Features    []string `json:"features"`
}

func (s *Sim) Type() Type { return TypeSim }

func (s *Sim) Validate() error {
	if err := validator.First(
		validator.Required("phone_number", s.PhoneNumber),
		validator.OneOf("network", s.Network, "viettel", "mobifone", "vinaphone", "vietnamobile", "itelecom"),
		validator.OneOf("sim_type", s.SimType, "prepaid", "postpaid"),
	); err != nil {
		return err
	}
	if err := validator.ValidatePhone(s.PhoneNumber); err != nil {
		return &validator.FieldError{Field: "phone_number", Reason: err.Error()}
	}
	return nil
}
