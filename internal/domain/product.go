package domain

type Product struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Code        string   `json:"code"`
	Price       float64  `json:"price"`
	Status      bool     `json:"status"`
	Stock       int64    `json:"stock"`
	Category    string   `json:"category"`
	Thumbnails  []string `json:"thumbnails"`
}

// ProductInput carries client-supplied product fields. Pointers tell an absent
// field apart from its zero value; field order is the order in which missing
// fields are reported. There is no id field: an id in the body is dropped
// whatever its JSON type.
type ProductInput struct {
	Title       *string  `json:"title" validate:"required"`
	Description *string  `json:"description" validate:"required"`
	Code        *string  `json:"code" validate:"required"`
	Price       *float64 `json:"price" validate:"required,gte=0"`
	Status      *bool    `json:"status" validate:"required"`
	Stock       *int64   `json:"stock" validate:"required,gte=0"`
	Category    *string  `json:"category" validate:"required"`
	Thumbnails  []string `json:"thumbnails" validate:"required"`
}

// Apply copies every supplied field onto p. p.ID is never touched.
func (in ProductInput) Apply(p *Product) {
	if in.Title != nil {
		p.Title = *in.Title
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.Code != nil {
		p.Code = *in.Code
	}
	if in.Price != nil {
		p.Price = *in.Price
	}
	if in.Status != nil {
		p.Status = *in.Status
	}
	if in.Stock != nil {
		p.Stock = *in.Stock
	}
	if in.Category != nil {
		p.Category = *in.Category
	}
	if in.Thumbnails != nil {
		p.Thumbnails = append([]string{}, in.Thumbnails...)
	}
}
