package model

// StatusCount is one row of the orders-by-status breakdown.
type StatusCount struct {
	Status OrderStatus `json:"status"`
	Count  int64       `json:"count"`
}

// Overview is the dashboard summary shown to admins and managers.
type Overview struct {
	Users     int64         `json:"users"`
	Orders    int64         `json:"orders"`
	Open      int64         `json:"open"`
	Completed int64         `json:"completed"`
	ByStatus  []StatusCount `json:"byStatus"`
}
