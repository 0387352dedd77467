package products

import "github.com/shopspring/decimal"

type ProductForm struct {
	Name  string          `json:"name" validate:"required,max=200"`
	Unit  string          `json:"unit" validate:"omitempty,max=20"`
	Price decimal.Decimal `json:"price"`
}

func (f ProductForm) toProduct() Product {
	return Product{Name: f.Name, Unit: f.Unit, Price: f.Price}
}
