// internal/domain/customer/dto.go
package customer

import "time"

type CreateCustomerRequest struct {
	Name         string `json:"name" binding:"required,max=100"`
	Address      string `json:"address" binding:"max=255"`
	Neighborhood string `json:"neighborhood" binding:"max=100"`
	Phone        string `json:"phone" binding:"max=40"`
}

// StatusFilter selects customers by their computed consumption status.
type StatusFilter string

const (
	StatusAny            StatusFilter = ""
	StatusChurned        StatusFilter = "churned"
	StatusDelinquent     StatusFilter = "delinquent"
	StatusNeverPurchased StatusFilter = "never_purchased"
)

func (s StatusFilter) Valid() bool {
	switch s {
	case StatusAny, StatusChurned, StatusDelinquent, StatusNeverPurchased:
		return true
	}
	return false
}

type CustomerListFilters struct {
	Neighborhood string       `form:"neighborhood"`
	GroupingID   *int64       `form:"grouping_id"`
	Status       StatusFilter `form:"status"`
}

// Query is the storage-level subset of the list filters.
type Query struct {
	Neighborhood string
	GroupingID   *int64
	IDs          []int64
}

type Tag struct {
	Code  string `json:"code"`
	Label string `json:"label"`
	Level string `json:"level"`
}

// Snapshot is the computed consumption status of a customer at a point in time.
type Snapshot struct {
	CycleDays             float64    `json:"cycle_days"`
	DaysSinceLastPurchase *int       `json:"days_since_last_purchase"`
	NextPurchaseOn        *time.Time `json:"next_purchase_on,omitempty"`
	NeverPurchased        bool       `json:"never_purchased"`
	Delinquent            bool       `json:"delinquent"`
	Churned               bool       `json:"churned"`
	Tags                  []Tag      `json:"tags"`
}

// View pairs a customer with its snapshot.
type View struct {
	Customer
	Status Snapshot `json:"status"`
}
