package models

// User is one row of the operator directory. Capability flags gate the
// workflows the user may enter.
type User struct {
	ID          int64  `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Warehouse   bool   `json:"warehouse"`
	Documents   bool   `json:"documents"`
	Vehicles    bool   `json:"vehicles"`
	Invoices    bool   `json:"invoices"`
	Admin       bool   `json:"admin"`
	Active      bool   `json:"active"`
}

// Counterparty is a selectable supplier/customer from the directory.
type Counterparty struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

// Place is a selectable issue destination inside the warehouse.
type Place struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Zone   string `json:"zone"`
	Active bool   `json:"active"`
}
