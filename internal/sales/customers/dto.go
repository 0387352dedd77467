package customers

type CreateCustomerRequest struct {
	Name  string  `json:"name" validate:"required,max=200"`
	Phone *string `json:"phone,omitempty" validate:"omitempty,max=32"`
}

type UpdateCustomerRequest struct {
	Name  *string `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Phone *string `json:"phone,omitempty" validate:"omitempty,max=32"`
}

type ListCustomersRequest struct {
	Search *string
	Limit  int
	Offset int
}
