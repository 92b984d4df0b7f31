package model

// CatalogTotals counts the rows behind the dashboards
type CatalogTotals struct {
	Users    int64 `json:"users"`
	Places   int64 `json:"places"`
	Routes   int64 `json:"routes"`
	Comments int64 `json:"comments"`
}

// RoleCount is the number of users holding one role
type RoleCount struct {
	Role  RoleKind `json:"role"`
	Count int64    `json:"count"`
}

// CategoryCount is the number of audit entries in one category
type CategoryCount struct {
	Category LogCategory `json:"category"`
	Count    int64       `json:"count"`
}
