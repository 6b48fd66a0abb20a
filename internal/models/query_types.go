// internal/models/query_types.go
package models

// QueryType names a case repository operation. It labels metrics, spans and error details.
type QueryType string

const (
	QueryTypeCaseByNumber  QueryType = "case_by_number"
	QueryTypeCaseByID      QueryType = "case_by_id"
	QueryTypeCaseSearch    QueryType = "case_search"
	QueryTypeCasesByStatus QueryType = "cases_by_status"
	QueryTypeCaseComments  QueryType = "case_comments"
	QueryTypeCaseHistory   QueryType = "case_history"
	QueryTypeCaseFeed      QueryType = "case_feed"
)
