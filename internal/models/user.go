package models

// Customer is a marketplace user placing orders.
type Customer struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Phone    string   `json:"phone"`
	Email    string   `json:"email"`
	Location Location `json:"location"`
}

// Contact is where notifications about an order are addressed.
type Contact struct {
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

func (c *Customer) Contact() Contact {
	return Contact{Name: c.Name, Phone: c.Phone, Email: c.Email}
}
